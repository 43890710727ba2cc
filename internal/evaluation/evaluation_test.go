package evaluation_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/evaluation"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stemsi/quizlr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kindOf(t *testing.T, k question.Kind) *question.Question {
	t.Helper()
	for _, q := range testutil.AllKinds(t) {
		if q.Kind() == k {
			return q
		}
	}
	t.Fatalf("no fixture of kind %s", k)
	return nil
}

func TestKeywordEvaluator_Explanation(t *testing.T) {
	ev := evaluation.NewKeywordEvaluator()
	q := kindOf(t, question.KindTopicExplanation)

	got, err := ev.EvaluateFreeText(context.Background(), q, "Values that escape go to the Heap through a pointer")
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, got.Score, 1e-9)
	assert.Contains(t, got.Feedback, "covered 2 of 3")
	assert.Contains(t, got.Feedback, "missing: stack")

	got, err = ev.EvaluateFreeText(context.Background(), q, "heap")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, got.Score, 1e-9)
	assert.Contains(t, got.Feedback, "1 of 5 required words")
}

func TestKeywordEvaluator_Interview(t *testing.T) {
	ev := evaluation.NewKeywordEvaluator()
	q := kindOf(t, question.KindInteractiveInterview)

	got, err := ev.EvaluateFreeText(context.Background(), q, "Interfaces are satisfied implicitly by method sets")
	require.NoError(t, err)
	assert.InDelta(t, 0.7+0.3*7.0/30.0, got.Score, 1e-9)

	got, err = ev.EvaluateFreeText(context.Background(), q, "   ")
	require.NoError(t, err)
	assert.Zero(t, got.Score)
}

func TestKeywordEvaluator_Errors(t *testing.T) {
	ev := evaluation.NewKeywordEvaluator()

	_, err := ev.EvaluateFreeText(context.Background(), testutil.TrueFalse(t, true, 0.1), "true")
	assert.ErrorIs(t, err, apperror.ErrAnswerTypeMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ev.EvaluateFreeText(ctx, kindOf(t, question.KindTopicExplanation), "heap")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAttach(t *testing.T) {
	ctx := context.Background()
	ev := evaluation.NewKeywordEvaluator()
	explain := kindOf(t, question.KindTopicExplanation)

	a, err := evaluation.Attach(ctx, ev, explain, question.ExplanationAnswer{Text: "the stack and the heap hold every pointer"})
	require.NoError(t, err)
	ea := a.(question.ExplanationAnswer)
	require.NotNil(t, ea.Evaluation)
	assert.InDelta(t, 1.0, ea.Evaluation.Score, 1e-9)

	ok, err := question.ValidateAnswer(explain, a)
	require.NoError(t, err)
	assert.True(t, ok)

	// an existing evaluation is kept
	preset := question.ExplanationAnswer{Text: "x", Evaluation: &question.Evaluation{Score: 0.1}}
	a, err = evaluation.Attach(ctx, ev, explain, preset)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, a.(question.ExplanationAnswer).Evaluation.Score, 1e-9)

	// non free-text answers pass through
	tf := testutil.TrueFalse(t, true, 0.1)
	a, err = evaluation.Attach(ctx, ev, tf, question.TrueFalseAnswer{Value: true})
	require.NoError(t, err)
	assert.Equal(t, question.TrueFalseAnswer{Value: true}, a)
}

type failingEvaluator struct{}

func (failingEvaluator) EvaluateFreeText(context.Context, *question.Question, string) (question.Evaluation, error) {
	return question.Evaluation{}, errors.New("provider down")
}

func TestAttach_ProviderError(t *testing.T) {
	q := kindOf(t, question.KindInteractiveInterview)
	_, err := evaluation.Attach(context.Background(), failingEvaluator{}, q, question.InterviewAnswer{Responses: []string{"hi"}})
	assert.EqualError(t, err, "provider down")
}

type staticSource []*quiz.Quiz

func (s staticSource) List(context.Context) ([]*quiz.Quiz, error) { return s, nil }

func TestBankGenerator(t *testing.T) {
	ctx := context.Background()
	all := testutil.AllKinds(t)
	qz := testutil.Quiz(t, nil, all...)
	gen := evaluation.NewBankGenerator(staticSource{qz, qz}, rand.New(rand.NewPCG(1, 2)))

	q, err := gen.GenerateQuestion(ctx, evaluation.Params{Kinds: []question.Kind{question.KindMatchPairs}})
	require.NoError(t, err)
	assert.Equal(t, question.KindMatchPairs, q.Kind())
	assert.NotEqual(t, all[4].ID, q.ID, "generated questions get fresh ids")
	assert.False(t, qz.Contains(q.ID))

	qs, err := gen.Generate(ctx, evaluation.Params{TopicID: testutil.Topic, MinDifficulty: 0.5}, 10)
	require.NoError(t, err)
	assert.Len(t, qs, 3, "difficulties 4/7, 5/7 and 6/7 qualify; duplicates across quizzes are dropped")
	for _, q := range qs {
		assert.GreaterOrEqual(t, q.Difficulty, 0.5)
	}

	_, err = gen.GenerateQuestion(ctx, evaluation.Params{TopicID: uuid.New()})
	assert.ErrorIs(t, err, evaluation.ErrNoCandidates)
}
