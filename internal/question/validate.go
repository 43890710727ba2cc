package question

import (
	"math"
	"strings"

	"github.com/stemsi/quizlr/internal/apperror"
)

// ExplanationPassScore is the minimum evaluation score for a topic
// explanation to count as correct.
const ExplanationPassScore = 0.5

// ValidateAnswer reports whether a answers q correctly. It never panics; a
// variant mismatch yields ANSWER_TYPE_MISMATCH and malformed answers yield
// the matching validation code.
func ValidateAnswer(q *Question, a Answer) (bool, error) {
	if q == nil || q.Variant == nil || a == nil {
		return false, apperror.New(apperror.ErrAnswerTypeMismatch, "question or answer missing")
	}

	switch v := q.Variant.(type) {
	case TrueFalse:
		ans, ok := a.(TrueFalseAnswer)
		if !ok {
			return false, mismatch(v.Kind(), a.Kind())
		}
		return ans.Value == v.CorrectAnswer, nil

	case MultipleChoice:
		ans, ok := a.(MultipleChoiceAnswer)
		if !ok {
			return false, mismatch(v.Kind(), a.Kind())
		}
		if ans.Index < 0 || ans.Index >= len(v.Options) {
			return false, apperror.New(apperror.ErrIndexOutOfBounds,
				"option %d out of range for %d options", ans.Index, len(v.Options))
		}
		return ans.Index == v.CorrectIndex, nil

	case MultiSelect:
		ans, ok := a.(MultiSelectAnswer)
		if !ok {
			return false, mismatch(v.Kind(), a.Kind())
		}
		if len(ans.Indices) == 0 {
			return false, apperror.New(apperror.ErrEmptySelection, "no option selected")
		}
		for _, idx := range ans.Indices {
			if idx < 0 || idx >= len(v.Options) {
				return false, apperror.New(apperror.ErrIndexOutOfBounds,
					"option %d out of range for %d options", idx, len(v.Options))
			}
		}
		return sameSet(ans.Indices, v.CorrectIndices), nil

	case FillInTheBlank:
		ans, ok := a.(FillInTheBlankAnswer)
		if !ok {
			return false, mismatch(v.Kind(), a.Kind())
		}
		if len(ans.Blanks) != len(v.CorrectAnswers) {
			return false, apperror.New(apperror.ErrBlankCountMismatch,
				"expected %d blanks, got %d", len(v.CorrectAnswers), len(ans.Blanks))
		}
		for i, want := range v.CorrectAnswers {
			got := ans.Blanks[i]
			if v.CaseSensitive {
				if got != want {
					return false, nil
				}
			} else if !strings.EqualFold(got, want) {
				return false, nil
			}
		}
		return true, nil

	case MatchPairs:
		ans, ok := a.(MatchPairsAnswer)
		if !ok {
			return false, mismatch(v.Kind(), a.Kind())
		}
		for _, p := range ans.Pairs {
			if p.Left < 0 || p.Left >= len(v.LeftItems) || p.Right < 0 || p.Right >= len(v.RightItems) {
				return false, apperror.New(apperror.ErrIndexOutOfBounds, "pair (%d,%d) out of range", p.Left, p.Right)
			}
		}
		return sameSet(ans.Pairs, v.CorrectPairs), nil

	case InteractiveInterview:
		ans, ok := a.(InterviewAnswer)
		if !ok {
			return false, mismatch(v.Kind(), a.Kind())
		}
		if !anyNonBlank(ans.Responses) {
			return false, apperror.New(apperror.ErrEmptyResponse, "interview has no responses")
		}
		if err := checkEvaluation(ans.Evaluation); err != nil {
			return false, err
		}
		if ans.Evaluation == nil {
			return false, nil
		}
		return ans.Evaluation.Score >= v.ComprehensionThreshold, nil

	case TopicExplanation:
		ans, ok := a.(ExplanationAnswer)
		if !ok {
			return false, mismatch(v.Kind(), a.Kind())
		}
		if strings.TrimSpace(ans.Text) == "" {
			return false, apperror.New(apperror.ErrEmptyResponse, "explanation is empty")
		}
		if err := checkEvaluation(ans.Evaluation); err != nil {
			return false, err
		}
		if ans.Evaluation == nil || WordCount(ans.Text) < v.MinWordCount {
			return false, nil
		}
		return ans.Evaluation.Score >= ExplanationPassScore, nil

	default:
		return false, apperror.New(apperror.ErrAnswerTypeMismatch, "unsupported question variant %T", q.Variant)
	}
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

func mismatch(want, got Kind) error {
	return apperror.New(apperror.ErrAnswerTypeMismatch, "question is %s, answer is %s", want, got)
}

func checkEvaluation(e *Evaluation) error {
	if e == nil {
		return nil
	}
	if math.IsNaN(e.Score) || math.IsInf(e.Score, 0) || e.Score < 0 || e.Score > 1 {
		return apperror.New(apperror.ErrInvalidEvaluation, "evaluation score %v outside [0,1]", e.Score)
	}
	return nil
}

func anyNonBlank(s []string) bool {
	for _, r := range s {
		if strings.TrimSpace(r) != "" {
			return true
		}
	}
	return false
}

func sameSet[T comparable](a, b []T) bool {
	left := make(map[T]struct{}, len(a))
	for _, x := range a {
		left[x] = struct{}{}
	}
	right := make(map[T]struct{}, len(b))
	for _, x := range b {
		right[x] = struct{}{}
	}
	if len(left) != len(right) {
		return false
	}
	for x := range left {
		if _, ok := right[x]; !ok {
			return false
		}
	}
	return true
}
