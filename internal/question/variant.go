package question

import (
	"math"
	"slices"
	"strings"

	"github.com/stemsi/quizlr/internal/apperror"
)

// Kind enumerates the seven supported question kinds.
type Kind string

const (
	KindTrueFalse            Kind = "TRUE_FALSE"
	KindMultipleChoice       Kind = "MULTIPLE_CHOICE"
	KindMultiSelect          Kind = "MULTI_SELECT"
	KindFillInTheBlank       Kind = "FILL_IN_THE_BLANK"
	KindMatchPairs           Kind = "MATCH_PAIRS"
	KindInteractiveInterview Kind = "INTERACTIVE_INTERVIEW"
	KindTopicExplanation     Kind = "TOPIC_EXPLANATION"
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindTrueFalse,
	KindMultipleChoice,
	KindMultiSelect,
	KindFillInTheBlank,
	KindMatchPairs,
	KindInteractiveInterview,
	KindTopicExplanation,
}

// BlankMarker marks one blank in a FillInTheBlank template.
const BlankMarker = "{}"

// Variant is the kind-specific payload of a Question. The set of
// implementations is closed: only the seven types in this file satisfy it.
type Variant interface {
	Kind() Kind
	validate() error
	clone() Variant
	explanation() string
}

// TrueFalse asks whether a statement holds.
type TrueFalse struct {
	Statement     string `json:"statement"`
	CorrectAnswer bool   `json:"correct_answer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

// MultipleChoice has exactly one correct option.
type MultipleChoice struct {
	Prompt       string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// MultiSelect has one or more correct options.
type MultiSelect struct {
	Prompt         string   `json:"question"`
	Options        []string `json:"options"`
	CorrectIndices []int    `json:"correct_indices,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
}

// FillInTheBlank holds a template with BlankMarker placeholders.
type FillInTheBlank struct {
	Template       string   `json:"template"`
	CorrectAnswers []string `json:"correct_answers,omitempty"`
	CaseSensitive  bool     `json:"case_sensitive"`
	Explanation    string   `json:"explanation,omitempty"`
}

// Pair links a left item index to a right item index.
type Pair struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// MatchPairs asks to match every left item with one right item.
type MatchPairs struct {
	Instruction  string   `json:"instruction"`
	LeftItems    []string `json:"left_items"`
	RightItems   []string `json:"right_items"`
	CorrectPairs []Pair   `json:"correct_pairs,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// FollowUpRule drives the next interview question.
type FollowUpRule struct {
	Condition        string  `json:"condition"`
	FollowUpQuestion string  `json:"follow_up_question"`
	Weight           float64 `json:"weight"`
}

// InteractiveInterview is a free-text dialogue judged by the evaluation
// collaborator.
type InteractiveInterview struct {
	Topic                  string         `json:"topic"`
	InitialQuestion        string         `json:"initial_question"`
	FollowUpRules          []FollowUpRule `json:"follow_up_rules"`
	ComprehensionThreshold float64        `json:"comprehension_threshold"`
}

// TopicExplanation asks for a free-text explanation of a topic.
type TopicExplanation struct {
	Topic        string   `json:"topic"`
	Prompt       string   `json:"prompt"`
	KeyConcepts  []string `json:"key_concepts,omitempty"`
	MinWordCount int      `json:"min_word_count"`
}

func (TrueFalse) Kind() Kind            { return KindTrueFalse }
func (MultipleChoice) Kind() Kind       { return KindMultipleChoice }
func (MultiSelect) Kind() Kind          { return KindMultiSelect }
func (FillInTheBlank) Kind() Kind       { return KindFillInTheBlank }
func (MatchPairs) Kind() Kind           { return KindMatchPairs }
func (InteractiveInterview) Kind() Kind { return KindInteractiveInterview }
func (TopicExplanation) Kind() Kind     { return KindTopicExplanation }

func (v TrueFalse) explanation() string          { return v.Explanation }
func (v MultipleChoice) explanation() string     { return v.Explanation }
func (v MultiSelect) explanation() string        { return v.Explanation }
func (v FillInTheBlank) explanation() string     { return v.Explanation }
func (v MatchPairs) explanation() string         { return v.Explanation }
func (InteractiveInterview) explanation() string { return "" }
func (TopicExplanation) explanation() string     { return "" }

func invalid(format string, args ...any) error {
	return apperror.New(apperror.ErrInvalidQuestion, format, args...)
}

func (v TrueFalse) validate() error { return nil }

func (v MultipleChoice) validate() error {
	if len(v.Options) < 2 {
		return invalid("multiple choice needs at least 2 options, got %d", len(v.Options))
	}
	if v.CorrectIndex < 0 || v.CorrectIndex >= len(v.Options) {
		return invalid("correct index %d out of range for %d options", v.CorrectIndex, len(v.Options))
	}
	return nil
}

func (v MultiSelect) validate() error {
	if len(v.CorrectIndices) == 0 {
		return invalid("multi select needs at least one correct index")
	}
	seen := make(map[int]struct{}, len(v.CorrectIndices))
	for _, idx := range v.CorrectIndices {
		if idx < 0 || idx >= len(v.Options) {
			return invalid("correct index %d out of range for %d options", idx, len(v.Options))
		}
		if _, dup := seen[idx]; dup {
			return invalid("correct index %d listed twice", idx)
		}
		seen[idx] = struct{}{}
	}
	return nil
}

func (v FillInTheBlank) validate() error {
	blanks := CountBlanks(v.Template)
	if blanks != len(v.CorrectAnswers) {
		return invalid("template has %d blanks but %d answers", blanks, len(v.CorrectAnswers))
	}
	return nil
}

func (v MatchPairs) validate() error {
	if len(v.LeftItems) == 0 {
		return invalid("match pairs needs at least one item")
	}
	if len(v.LeftItems) != len(v.RightItems) || len(v.CorrectPairs) != len(v.LeftItems) {
		return invalid("match pairs needs equal left (%d), right (%d) and pair (%d) counts",
			len(v.LeftItems), len(v.RightItems), len(v.CorrectPairs))
	}
	left := make(map[int]struct{}, len(v.CorrectPairs))
	right := make(map[int]struct{}, len(v.CorrectPairs))
	for _, p := range v.CorrectPairs {
		if p.Left < 0 || p.Left >= len(v.LeftItems) || p.Right < 0 || p.Right >= len(v.RightItems) {
			return invalid("pair (%d,%d) out of range", p.Left, p.Right)
		}
		if _, dup := left[p.Left]; dup {
			return invalid("left item %d paired twice", p.Left)
		}
		if _, dup := right[p.Right]; dup {
			return invalid("right item %d paired twice", p.Right)
		}
		left[p.Left] = struct{}{}
		right[p.Right] = struct{}{}
	}
	return nil
}

func (v InteractiveInterview) validate() error {
	if !unit(v.ComprehensionThreshold) {
		return invalid("comprehension threshold %v outside [0,1]", v.ComprehensionThreshold)
	}
	for i, r := range v.FollowUpRules {
		if !unit(r.Weight) {
			return invalid("follow-up rule %d weight %v outside [0,1]", i, r.Weight)
		}
	}
	return nil
}

func (v TopicExplanation) validate() error {
	if v.MinWordCount < 0 {
		return invalid("min word count %d is negative", v.MinWordCount)
	}
	return nil
}

func (v TrueFalse) clone() Variant { return v }

func (v MultipleChoice) clone() Variant {
	v.Options = slices.Clone(v.Options)
	return v
}

func (v MultiSelect) clone() Variant {
	v.Options = slices.Clone(v.Options)
	v.CorrectIndices = slices.Clone(v.CorrectIndices)
	return v
}

func (v FillInTheBlank) clone() Variant {
	v.CorrectAnswers = slices.Clone(v.CorrectAnswers)
	return v
}

func (v MatchPairs) clone() Variant {
	v.LeftItems = slices.Clone(v.LeftItems)
	v.RightItems = slices.Clone(v.RightItems)
	v.CorrectPairs = slices.Clone(v.CorrectPairs)
	return v
}

func (v InteractiveInterview) clone() Variant {
	v.FollowUpRules = slices.Clone(v.FollowUpRules)
	return v
}

func (v TopicExplanation) clone() Variant {
	v.KeyConcepts = slices.Clone(v.KeyConcepts)
	return v
}

// CountBlanks returns the number of BlankMarker occurrences in template.
func CountBlanks(template string) int {
	return strings.Count(template, BlankMarker)
}

func unit(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}
