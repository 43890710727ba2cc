package session_test

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stemsi/quizlr/internal/session"
	"github.com/stemsi/quizlr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, q *quiz.Quiz, clock *testutil.Clock, opts ...session.Option) *session.Session {
	t.Helper()
	s, err := session.New(q, append([]session.Option{session.WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	return s
}

func snapshot(t *testing.T, s *session.Session) string {
	t.Helper()
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	return string(raw)
}

func twoChoiceQuiz(t *testing.T, configure func(*quiz.Builder) *quiz.Builder) (*quiz.Quiz, *question.Question, *question.Question) {
	t.Helper()
	q1 := testutil.MultipleChoice(t, 0, 0.3)
	q2 := testutil.MultipleChoice(t, 2, 0.6)
	return testutil.Quiz(t, configure, q1, q2), q1, q2
}

func TestSession_Lifecycle(t *testing.T) {
	clock := testutil.NewClock()
	qz, q1, q2 := twoChoiceQuiz(t, func(b *quiz.Builder) *quiz.Builder { return b.PassThreshold(0.5) })
	s := newSession(t, qz, clock, session.WithUser(uuid.New()))

	assert.Equal(t, session.StateNotStarted, s.State())
	assert.True(t, s.UserID().Valid)
	assert.Same(t, qz, s.Quiz())

	require.NoError(t, s.Start())
	assert.Equal(t, session.StateInProgress, s.State())
	assert.Equal(t, testutil.Epoch, s.StartedAt())

	clock.Advance(2 * time.Second)
	r, err := s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, r.IsCorrect)
	assert.Equal(t, 1, r.Attempts)

	clock.Advance(5 * time.Second)
	r, err = s.SubmitAnswer(q2.ID, question.MultipleChoiceAnswer{Index: 1}, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, r.IsCorrect)

	summary, err := s.Complete()
	require.NoError(t, err)
	assert.Equal(t, session.StateCompleted, s.State())
	assert.Equal(t, 2, summary.AnsweredCount)
	assert.Equal(t, 1, summary.CorrectCount)
	assert.Equal(t, 0, summary.SkippedCount)
	assert.Equal(t, 7*time.Second, summary.TotalTime)
	assert.Equal(t, 7*time.Second, summary.ActiveDuration)
	assert.InDelta(t, 0.5, summary.Score, 1e-9)
	assert.True(t, summary.Passed)
	assert.Equal(t, "F", summary.Grade)

	stored, ok := s.Summary()
	require.True(t, ok)
	assert.Equal(t, summary, stored)
	assert.Equal(t, clock.Now(), s.CompletedAt())
}

func TestSession_InvalidTransitionsLeaveSessionUnchanged(t *testing.T) {
	qz, q1, _ := twoChoiceQuiz(t, nil)

	reach := map[session.State]func(*session.Session){
		session.StateNotStarted: func(*session.Session) {},
		session.StateInProgress: func(s *session.Session) { _ = s.Start() },
		session.StatePaused:     func(s *session.Session) { _ = s.Start(); _ = s.Pause() },
		session.StateCompleted:  func(s *session.Session) { _ = s.Start(); _, _ = s.Complete() },
		session.StateAbandoned:  func(s *session.Session) { _ = s.Abandon() },
	}
	ops := map[string]struct {
		run     func(*session.Session) error
		allowed []session.State
	}{
		"start":    {func(s *session.Session) error { return s.Start() }, []session.State{session.StateNotStarted}},
		"pause":    {func(s *session.Session) error { return s.Pause() }, []session.State{session.StateInProgress}},
		"resume":   {func(s *session.Session) error { return s.Resume() }, []session.State{session.StatePaused}},
		"complete": {func(s *session.Session) error { _, err := s.Complete(); return err }, []session.State{session.StateInProgress}},
		"abandon": {func(s *session.Session) error { return s.Abandon() },
			[]session.State{session.StateNotStarted, session.StateInProgress, session.StatePaused}},
		"submit": {func(s *session.Session) error {
			_, err := s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, time.Second)
			return err
		}, []session.State{session.StateInProgress}},
	}

	for state, setup := range reach {
		for name, op := range ops {
			allowed := false
			for _, a := range op.allowed {
				allowed = allowed || a == state
			}
			if allowed {
				continue
			}
			t.Run(name+" from "+string(state), func(t *testing.T) {
				s := newSession(t, qz, testutil.NewClock())
				setup(s)
				require.Equal(t, state, s.State())
				before := snapshot(t, s)

				err := op.run(s)
				require.Error(t, err)
				assert.ErrorIs(t, err, apperror.ErrInvalidState)
				assert.Equal(t, apperror.CategorySession, apperror.CategoryOf(err))
				assert.Equal(t, before, snapshot(t, s))
			})
		}
	}
}

func TestSubmitAnswer_Errors(t *testing.T) {
	qz, q1, _ := twoChoiceQuiz(t, nil)
	s := newSession(t, qz, testutil.NewClock())
	require.NoError(t, s.Start())

	before := snapshot(t, s)
	_, err := s.SubmitAnswer(uuid.New(), question.MultipleChoiceAnswer{Index: 0}, time.Second)
	assert.ErrorIs(t, err, apperror.ErrUnknownQuestion)

	_, err = s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 9}, time.Second)
	assert.ErrorIs(t, err, apperror.ErrIndexOutOfBounds)

	_, err = s.SubmitAnswer(q1.ID, question.TrueFalseAnswer{Value: true}, time.Second)
	assert.ErrorIs(t, err, apperror.ErrAnswerTypeMismatch)

	_, err = s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, -time.Second)
	assert.ErrorIs(t, err, apperror.ErrInvalidTiming)
	assert.Equal(t, before, snapshot(t, s), "failed submissions do not touch the session")

	_, err = s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 1}, time.Second)
	require.NoError(t, err)
	_, err = s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, time.Second)
	assert.ErrorIs(t, err, apperror.ErrDuplicateAnswer)

	r, ok := s.Response(q1.ID)
	require.True(t, ok)
	assert.False(t, r.IsCorrect, "first answer kept")
}

func TestSubmitAnswer_Resubmission(t *testing.T) {
	qz, q1, _ := twoChoiceQuiz(t, nil)
	s := newSession(t, qz, testutil.NewClock(), session.AllowResubmission())
	require.NoError(t, s.Start())

	_, err := s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 1}, 3*time.Second)
	require.NoError(t, err)
	r, err := s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, 4*time.Second)
	require.NoError(t, err)

	assert.True(t, r.IsCorrect)
	assert.Equal(t, 2, r.Attempts)
	assert.Equal(t, 7*time.Second, r.TimeTaken)
	assert.InDelta(t, 7.0, r.Answer.TimeTaken(), 1e-9)
	assert.Len(t, s.Responses(), 1)
}

func TestSession_PausesAreExcluded(t *testing.T) {
	clock := testutil.NewClock()
	qz, q1, _ := twoChoiceQuiz(t, nil)
	s := newSession(t, qz, clock)
	require.NoError(t, s.Start())

	clock.Advance(10 * time.Second)
	require.NoError(t, s.Pause())
	clock.Advance(100 * time.Second)
	assert.Equal(t, 10*time.Second, s.ActiveDuration(), "paused time does not count while paused")
	require.NoError(t, s.Resume())
	clock.Advance(5 * time.Second)

	assert.Equal(t, 15*time.Second, s.ActiveDuration())
	assert.Equal(t, 100*time.Second, s.PausedTotal())
	assert.Equal(t, 15*time.Second, s.SinceLastActivity())

	_, err := s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, s.SinceLastActivity())
	require.NoError(t, err)
	r, _ := s.Response(q1.ID)
	assert.Equal(t, 15*time.Second, r.TimeTaken)
	assert.Zero(t, s.SinceLastActivity())

	clock.Advance(3 * time.Second)
	require.NoError(t, s.Pause())
	clock.Advance(time.Hour)
	require.NoError(t, s.Resume())
	assert.Equal(t, 3*time.Second, s.SinceLastActivity())
}

func TestAbandon_FromPausedClosesPause(t *testing.T) {
	clock := testutil.NewClock()
	qz, _, _ := twoChoiceQuiz(t, nil)
	s := newSession(t, qz, clock)
	require.NoError(t, s.Start())
	clock.Advance(4 * time.Second)
	require.NoError(t, s.Pause())
	clock.Advance(time.Minute)

	require.NoError(t, s.Abandon())
	clock.Advance(time.Hour)

	assert.Equal(t, session.StateAbandoned, s.State())
	assert.Equal(t, 4*time.Second, s.ActiveDuration())
	_, ok := s.Summary()
	assert.False(t, ok)
	assert.True(t, s.CompletedAt().IsZero())
}

func TestComplete_RequiresAllAnswersWhenSkipDisallowed(t *testing.T) {
	qz, q1, q2 := twoChoiceQuiz(t, func(b *quiz.Builder) *quiz.Builder { return b.AllowSkip(false) })
	s := newSession(t, qz, testutil.NewClock())
	require.NoError(t, s.Start())
	_, err := s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, time.Second)
	require.NoError(t, err)

	_, err = s.Complete()
	assert.ErrorIs(t, err, apperror.ErrIncompleteQuiz)
	assert.Equal(t, session.StateInProgress, s.State())

	assert.ErrorIs(t, s.Skip(q2.ID), apperror.ErrSkipNotAllowed)

	_, err = s.SubmitAnswer(q2.ID, question.MultipleChoiceAnswer{Index: 2}, time.Second)
	require.NoError(t, err)
	summary, err := s.Complete()
	require.NoError(t, err)
	assert.Equal(t, "A", summary.Grade)
}

func TestSkip(t *testing.T) {
	qz, q1, _ := twoChoiceQuiz(t, nil)
	s := newSession(t, qz, testutil.NewClock())
	require.NoError(t, s.Start())

	require.NoError(t, s.Skip(q1.ID))
	require.NoError(t, s.Skip(q1.ID))
	assert.Equal(t, []uuid.UUID{q1.ID}, s.Skipped())
	assert.ErrorIs(t, s.Skip(uuid.New()), apperror.ErrUnknownQuestion)

	_, err := s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, time.Second)
	require.NoError(t, err)
	assert.Empty(t, s.Skipped())
	assert.ErrorIs(t, s.Skip(q1.ID), apperror.ErrDuplicateAnswer)

	summary, err := s.Complete()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedCount)
	assert.InDelta(t, 0.5, summary.CompletionRate, 1e-9)
}

func TestSession_RandomizedPresentation(t *testing.T) {
	qz, q1, q2 := twoChoiceQuiz(t, func(b *quiz.Builder) *quiz.Builder {
		return b.RandomizeQuestions(true).RandomizeAnswers(true)
	})
	s := newSession(t, qz, testutil.NewClock(), session.WithRand(testutil.ReversePerm{}))
	require.NoError(t, s.Start())

	assert.Equal(t, []uuid.UUID{q2.ID, q1.ID}, s.QuestionOrder())
	assert.Equal(t, []uuid.UUID{q1.ID, q2.ID}, qz.QuestionIDs(), "quiz order is untouched")
	assert.Equal(t, []int{3, 2, 1, 0}, s.OptionOrder(q1.ID))

	first, err := s.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, q2.ID, first.ID)
	mc := first.Variant.(question.MultipleChoice)
	assert.Equal(t, []string{"thread", "spawn", "async", "go"}, mc.Options)
	assert.Equal(t, 1, mc.CorrectIndex, "canonical 2 is shown at position 1")

	r, err := s.SubmitAnswer(q2.ID, question.MultipleChoiceAnswer{Index: 1}, time.Second)
	require.NoError(t, err)
	assert.True(t, r.IsCorrect)
	assert.Equal(t, question.MultipleChoiceAnswer{Index: 2}, r.Answer.WithTimeTaken(0))

	r, err = s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, time.Second)
	require.NoError(t, err)
	assert.False(t, r.IsCorrect, "position 0 shows canonical option 3")
}

func TestSession_MultiSelectRemap(t *testing.T) {
	ms := testutil.AllKinds(t)[2]
	qz := testutil.Quiz(t, func(b *quiz.Builder) *quiz.Builder { return b.RandomizeAnswers(true) }, ms)
	s := newSession(t, qz, testutil.NewClock(), session.WithRand(testutil.ReversePerm{}))
	require.NoError(t, s.Start())

	// canonical {0,2} of four options is presented as {3,1}
	r, err := s.SubmitAnswer(ms.ID, question.MultiSelectAnswer{Indices: []int{1, 3}}, time.Second)
	require.NoError(t, err)
	assert.True(t, r.IsCorrect)
	assert.ElementsMatch(t, []int{0, 2}, r.Answer.(question.MultiSelectAnswer).Indices)
}

func TestSession_IndependentOrders(t *testing.T) {
	qs := make([]*question.Question, 0, 8)
	for i := 0; i < 8; i++ {
		qs = append(qs, testutil.TrueFalse(t, i%2 == 0, 0.5))
	}
	qz := testutil.Quiz(t, func(b *quiz.Builder) *quiz.Builder { return b.RandomizeQuestions(true) }, qs...)

	a := newSession(t, qz, testutil.NewClock(), session.WithRand(rand.New(rand.NewSource(1))))
	b := newSession(t, qz, testutil.NewClock(), session.WithRand(testutil.ReversePerm{}))
	c := newSession(t, qz, testutil.NewClock(), session.WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	require.NoError(t, c.Start())

	assert.NotEqual(t, a.QuestionOrder(), b.QuestionOrder())
	assert.Equal(t, a.QuestionOrder(), c.QuestionOrder(), "same seed, same order")
	assert.ElementsMatch(t, qz.QuestionIDs(), a.QuestionOrder())
}

type brokenRand struct{}

func (brokenRand) Perm(int) []int { return []int{0, 0} }

func TestSession_BadRandSourceFallsBackToQuizOrder(t *testing.T) {
	qz, q1, q2 := twoChoiceQuiz(t, func(b *quiz.Builder) *quiz.Builder { return b.RandomizeQuestions(true) })
	s := newSession(t, qz, testutil.NewClock(), session.WithRand(brokenRand{}))
	require.NoError(t, s.Start())
	assert.Equal(t, []uuid.UUID{q1.ID, q2.ID}, s.QuestionOrder())
}

func TestSession_Navigation(t *testing.T) {
	qz, q1, q2 := twoChoiceQuiz(t, nil)
	s := newSession(t, qz, testutil.NewClock())

	assert.ErrorIs(t, s.Next(), apperror.ErrInvalidState)
	require.NoError(t, s.Start())

	assert.ErrorIs(t, s.Previous(), apperror.ErrNavigationOutOfRange)
	cur, err := s.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, q1.ID, cur.ID)

	require.NoError(t, s.Next())
	cur, err = s.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, q2.ID, cur.ID)
	assert.ErrorIs(t, s.Next(), apperror.ErrNavigationOutOfRange)
	assert.Equal(t, 1, s.Cursor())

	require.NoError(t, s.Previous())
	assert.Equal(t, 0, s.Cursor())
	assert.ErrorIs(t, s.Goto(2), apperror.ErrNavigationOutOfRange)
}

func TestSession_ExplanationModes(t *testing.T) {
	tf := testutil.TrueFalse(t, true, 0.2)

	for _, tt := range []struct {
		mode          quiz.ExplanationMode
		afterAnswer   bool
		afterComplete bool
	}{
		{quiz.ShowNever, false, false},
		{quiz.ShowAfterEach, true, true},
		{quiz.ShowAtEnd, false, true},
	} {
		t.Run(string(tt.mode), func(t *testing.T) {
			qz := testutil.Quiz(t, func(b *quiz.Builder) *quiz.Builder { return b.ShowExplanations(tt.mode) }, tf)
			s := newSession(t, qz, testutil.NewClock())
			require.NoError(t, s.Start())

			_, ok := s.Explanation(tf.ID)
			assert.False(t, ok, "nothing before answering")

			_, err := s.SubmitAnswer(tf.ID, question.TrueFalseAnswer{Value: true}, time.Second)
			require.NoError(t, err)
			_, ok = s.Explanation(tf.ID)
			assert.Equal(t, tt.afterAnswer, ok)

			_, err = s.Complete()
			require.NoError(t, err)
			text, ok := s.Explanation(tf.ID)
			assert.Equal(t, tt.afterComplete, ok)
			if ok {
				assert.Equal(t, "Goroutines are part of the language", text)
			}
		})
	}
}

func TestSession_JSONRoundTrip(t *testing.T) {
	clock := testutil.NewClock()
	qz := testutil.Quiz(t, func(b *quiz.Builder) *quiz.Builder {
		return b.RandomizeQuestions(true).RandomizeAnswers(true)
	}, testutil.AllKinds(t)...)
	s := newSession(t, qz, clock, session.WithRand(testutil.ReversePerm{}), session.WithUser(uuid.New()))
	require.NoError(t, s.Start())

	for _, q := range qz.Questions()[:4] {
		clock.Advance(2 * time.Second)
		_, err := s.SubmitAnswer(q.ID, presentedCorrect(t, s, q.ID), s.SinceLastActivity())
		require.NoError(t, err)
	}
	require.NoError(t, s.Pause())
	clock.Advance(time.Minute)

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.EqualValues(t, 1, envelope["version"])
	assert.NotContains(t, envelope, "questions", "the quiz is referenced by id only")

	restored, err := session.Decode(raw, qz, session.WithClock(clock))
	require.NoError(t, err)
	assert.Equal(t, s.ID(), restored.ID())
	assert.Equal(t, s.UserID(), restored.UserID())
	assert.Equal(t, session.StatePaused, restored.State())
	assert.Equal(t, s.QuestionOrder(), restored.QuestionOrder())
	assert.Equal(t, s.Responses(), restored.Responses())
	assert.Equal(t, s.ActiveDuration(), restored.ActiveDuration())
	assert.Equal(t, raw, mustMarshal(t, restored))

	require.NoError(t, restored.Resume())
	other := testutil.Quiz(t, nil, testutil.TrueFalse(t, true, 0.1))
	_, err = session.Decode(raw, other)
	assert.ErrorIs(t, err, apperror.ErrQuizMismatch)
}

func TestDecode_RejectsCorruptRecords(t *testing.T) {
	qz, _, _ := twoChoiceQuiz(t, nil)

	_, err := session.Decode([]byte(`{"version":7}`), qz)
	assert.ErrorIs(t, err, apperror.ErrUnsupportedVersion)

	bad := `{"version":1,"quiz_id":"` + qz.ID().String() + `","state":"IN_PROGRESS","responses":[{"question_id":"` +
		uuid.NewString() + `","answer":{"kind":"TRUE_FALSE","data":{"value":true}}}]}`
	_, err = session.Decode([]byte(bad), qz)
	assert.ErrorIs(t, err, apperror.ErrCorruptRecord)

	_, err = session.Decode([]byte(`{"version":1,"quiz_id":"`+qz.ID().String()+`","state":"DREAMING"}`), qz)
	assert.ErrorIs(t, err, apperror.ErrCorruptRecord)
}

func TestDurationFromSeconds(t *testing.T) {
	d, err := session.DurationFromSeconds(1.5)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1), 1e300} {
		_, err := session.DurationFromSeconds(bad)
		assert.ErrorIs(t, err, apperror.ErrInvalidTiming, bad)
	}
}

func TestGrade(t *testing.T) {
	assert.Equal(t, "A", session.Grade(0.95))
	assert.Equal(t, "B", session.Grade(0.85))
	assert.Equal(t, "C", session.Grade(0.75))
	assert.Equal(t, "D", session.Grade(0.65))
	assert.Equal(t, "F", session.Grade(0.55))
}

func TestProgress(t *testing.T) {
	qz, q1, _ := twoChoiceQuiz(t, nil)
	s := newSession(t, qz, testutil.NewClock())
	require.NoError(t, s.Start())
	assert.Zero(t, s.Progress())
	_, err := s.SubmitAnswer(q1.ID, question.MultipleChoiceAnswer{Index: 0}, time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s.Progress(), 1e-9)
}

// presentedCorrect returns the correct answer for id expressed in the
// session's presented option order.
func presentedCorrect(t *testing.T, s *session.Session, id uuid.UUID) question.Answer {
	t.Helper()
	for p, qid := range s.QuestionOrder() {
		if qid != id {
			continue
		}
		q, err := s.PresentedQuestion(p)
		require.NoError(t, err)
		return question.CorrectAnswerFor(q)
	}
	t.Fatalf("question %s not presented", id)
	return nil
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
