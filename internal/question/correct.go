package question

import (
	"slices"
	"strings"
)

// CorrectAnswerFor returns an answer that ValidateAnswer accepts as correct
// for q. Free-text kinds get a synthetic perfect evaluation and enough words
// to satisfy any minimum. Returns nil when q has no variant.
func CorrectAnswerFor(q *Question) Answer {
	if q == nil || q.Variant == nil {
		return nil
	}

	switch v := q.Variant.(type) {
	case TrueFalse:
		return TrueFalseAnswer{Value: v.CorrectAnswer}
	case MultipleChoice:
		return MultipleChoiceAnswer{Index: v.CorrectIndex}
	case MultiSelect:
		return MultiSelectAnswer{Indices: slices.Clone(v.CorrectIndices)}
	case FillInTheBlank:
		return FillInTheBlankAnswer{Blanks: slices.Clone(v.CorrectAnswers)}
	case MatchPairs:
		return MatchPairsAnswer{Pairs: slices.Clone(v.CorrectPairs)}
	case InteractiveInterview:
		return InterviewAnswer{
			Responses:  []string{"I understand " + nonEmpty(v.Topic, "the topic")},
			Evaluation: &Evaluation{Score: 1, Feedback: "complete"},
		}
	case TopicExplanation:
		words := strings.Fields(strings.Join(v.KeyConcepts, " "))
		for len(words) < v.MinWordCount || len(words) == 0 {
			words = append(words, strings.Fields(nonEmpty(v.Topic, "topic"))...)
		}
		return ExplanationAnswer{
			Text:       strings.Join(words, " "),
			Evaluation: &Evaluation{Score: 1, Feedback: "complete"},
		}
	default:
		return nil
	}
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
