package question

import "slices"

// Evaluation is the opaque verdict of the free-text evaluation collaborator.
type Evaluation struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
}

// Timing carries the time spent on an answer.
type Timing struct {
	TimeTakenSeconds float64 `json:"time_taken_seconds"`
}

// TimeTaken returns the recorded time in seconds.
func (t Timing) TimeTaken() float64 { return t.TimeTakenSeconds }

// Answer mirrors Variant: one implementation per question kind.
type Answer interface {
	Kind() Kind
	TimeTaken() float64
	// WithTimeTaken returns a deep copy carrying the given time.
	WithTimeTaken(seconds float64) Answer
}

// TrueFalseAnswer answers a TrueFalse question.
type TrueFalseAnswer struct {
	Value bool `json:"value"`
	Timing
}

// MultipleChoiceAnswer selects one option index.
type MultipleChoiceAnswer struct {
	Index int `json:"index"`
	Timing
}

// MultiSelectAnswer selects a set of option indices.
type MultiSelectAnswer struct {
	Indices []int `json:"indices"`
	Timing
}

// FillInTheBlankAnswer fills every blank in template order.
type FillInTheBlankAnswer struct {
	Blanks []string `json:"blanks"`
	Timing
}

// MatchPairsAnswer lists the submitted pairs.
type MatchPairsAnswer struct {
	Pairs []Pair `json:"pairs"`
	Timing
}

// InterviewAnswer collects the learner's interview responses.
type InterviewAnswer struct {
	Responses  []string    `json:"responses"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Timing
}

// ExplanationAnswer is a free-text topic explanation.
type ExplanationAnswer struct {
	Text       string      `json:"explanation"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Timing
}

func (TrueFalseAnswer) Kind() Kind      { return KindTrueFalse }
func (MultipleChoiceAnswer) Kind() Kind { return KindMultipleChoice }
func (MultiSelectAnswer) Kind() Kind    { return KindMultiSelect }
func (FillInTheBlankAnswer) Kind() Kind { return KindFillInTheBlank }
func (MatchPairsAnswer) Kind() Kind     { return KindMatchPairs }
func (InterviewAnswer) Kind() Kind      { return KindInteractiveInterview }
func (ExplanationAnswer) Kind() Kind    { return KindTopicExplanation }

func (a TrueFalseAnswer) WithTimeTaken(s float64) Answer {
	a.TimeTakenSeconds = s
	return a
}

func (a MultipleChoiceAnswer) WithTimeTaken(s float64) Answer {
	a.TimeTakenSeconds = s
	return a
}

func (a MultiSelectAnswer) WithTimeTaken(s float64) Answer {
	a.Indices = slices.Clone(a.Indices)
	a.TimeTakenSeconds = s
	return a
}

func (a FillInTheBlankAnswer) WithTimeTaken(s float64) Answer {
	a.Blanks = slices.Clone(a.Blanks)
	a.TimeTakenSeconds = s
	return a
}

func (a MatchPairsAnswer) WithTimeTaken(s float64) Answer {
	a.Pairs = slices.Clone(a.Pairs)
	a.TimeTakenSeconds = s
	return a
}

func (a InterviewAnswer) WithTimeTaken(s float64) Answer {
	a.Responses = slices.Clone(a.Responses)
	a.Evaluation = cloneEvaluation(a.Evaluation)
	a.TimeTakenSeconds = s
	return a
}

func (a ExplanationAnswer) WithTimeTaken(s float64) Answer {
	a.Evaluation = cloneEvaluation(a.Evaluation)
	a.TimeTakenSeconds = s
	return a
}

func cloneEvaluation(e *Evaluation) *Evaluation {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// IsFreeText reports whether answers of kind k are judged by the
// evaluation collaborator.
func IsFreeText(k Kind) bool {
	return k == KindInteractiveInterview || k == KindTopicExplanation
}
