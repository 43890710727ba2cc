// Package evaluation holds the content collaborators of the quiz engine:
// question generation and free-text evaluation.
package evaluation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
)

// ErrNoCandidates is returned by BankGenerator when no stored question
// matches the request.
var ErrNoCandidates = errors.New("no question matches the request")

// Evaluator judges free-text answers (interviews and topic explanations).
type Evaluator interface {
	EvaluateFreeText(ctx context.Context, q *question.Question, text string) (question.Evaluation, error)
}

// Params describes the questions a Generator should produce.
type Params struct {
	TopicID       uuid.UUID
	Kinds         []question.Kind
	MinDifficulty float64
	MaxDifficulty float64
	Tags          []string
}

// Generator produces new questions.
type Generator interface {
	GenerateQuestion(ctx context.Context, p Params) (*question.Question, error)
}

// Attach returns a with an evaluation from ev when a is a free-text answer
// that arrived without one. Other answers are returned unchanged.
func Attach(ctx context.Context, ev Evaluator, q *question.Question, a question.Answer) (question.Answer, error) {
	if ev == nil || a == nil || q == nil || !question.IsFreeText(q.Kind()) {
		return a, nil
	}

	switch v := a.(type) {
	case question.InterviewAnswer:
		if v.Evaluation != nil {
			return a, nil
		}
		e, err := ev.EvaluateFreeText(ctx, q, strings.Join(v.Responses, "\n"))
		if err != nil {
			return nil, err
		}
		v.Evaluation = &e
		return v, nil
	case question.ExplanationAnswer:
		if v.Evaluation != nil {
			return a, nil
		}
		e, err := ev.EvaluateFreeText(ctx, q, v.Text)
		if err != nil {
			return nil, err
		}
		v.Evaluation = &e
		return v, nil
	}
	// kind mismatch; ValidateAnswer reports it
	return a, nil
}

func notFreeText(q *question.Question) error {
	return apperror.New(apperror.ErrAnswerTypeMismatch, "question %s of kind %s is not free text", q.ID, q.Kind())
}
