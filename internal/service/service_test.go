package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/evaluation"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stemsi/quizlr/internal/repository"
	"github.com/stemsi/quizlr/internal/scoring"
	"github.com/stemsi/quizlr/internal/service"
	"github.com/stemsi/quizlr/internal/session"
	"github.com/stemsi/quizlr/internal/storage"
	"github.com/stemsi/quizlr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []model.SessionEvent
	jobs   []model.ScoreJob
}

func (r *recorder) Publish(_ context.Context, e model.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Enqueue(_ context.Context, job model.ScoreJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recorder) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type env struct {
	quizzes  *repository.QuizRepository
	sessions *service.SessionService
	scoring  *service.ScoringService
	monitor  *service.MonitorService
	quizSvc  *service.QuizService
	bus      *recorder
	clock    *testutil.Clock
}

func newEnv(opts ...session.Option) *env {
	store := storage.NewMemoryStore()
	clock := testutil.NewClock()
	bus := &recorder{}
	opts = append([]session.Option{session.WithClock(clock)}, opts...)

	quizRepo := repository.NewQuizRepository(store, nil)
	sessionRepo := repository.NewSessionRepository(store, quizRepo, session.WithClock(clock))
	scoreRepo := repository.NewScoreRepository(store)

	return &env{
		quizzes:  quizRepo,
		sessions: service.NewSessionService(sessionRepo, quizRepo, evaluation.NewKeywordEvaluator(), bus, bus, zerolog.Nop(), opts...),
		scoring:  service.NewScoringService(sessionRepo, scoreRepo, bus, zerolog.Nop()),
		monitor:  service.NewMonitorService(quizRepo, sessionRepo, scoreRepo),
		quizSvc:  service.NewQuizService(quizRepo, sessionRepo, scoreRepo, evaluation.NewBankGenerator(quizRepo, nil)),
		bus:      bus,
		clock:    clock,
	}
}

func user() uuid.NullUUID { return uuid.NullUUID{UUID: uuid.New(), Valid: true} }

func dur(d time.Duration) *time.Duration { return &d }

func TestSessionService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	q1 := testutil.MultipleChoice(t, 0, 0.4)
	q2 := testutil.TrueFalse(t, true, 0.8)
	qz := testutil.Quiz(t, nil, q1, q2)
	require.NoError(t, e.quizzes.Create(ctx, qz))

	me := user()
	sess, err := e.sessions.Create(ctx, qz.ID(), me)
	require.NoError(t, err)
	assert.Equal(t, session.StateNotStarted, sess.State())

	_, err = e.sessions.Start(ctx, sess.ID(), me)
	require.NoError(t, err)

	e.clock.Advance(5 * time.Second)
	resp, err := e.sessions.SubmitAnswer(ctx, sess.ID(), me, q1.ID, question.MultipleChoiceAnswer{Index: 0}, dur(5*time.Second))
	require.NoError(t, err)
	assert.True(t, resp.IsCorrect)

	e.clock.Advance(3 * time.Second)
	_, err = e.sessions.SubmitAnswer(ctx, sess.ID(), me, q2.ID, question.TrueFalseAnswer{Value: false}, dur(3*time.Second))
	require.NoError(t, err)

	summary, err := e.sessions.Complete(ctx, sess.ID(), me)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.AnsweredCount)
	assert.Equal(t, 1, summary.CorrectCount)
	assert.InDelta(t, 0.5, summary.Score, 1e-9)

	assert.Equal(t, []model.EventType{
		model.EventSessionCreated,
		model.EventSessionStarted,
		model.EventAnswerSubmitted,
		model.EventAnswerSubmitted,
		model.EventSessionCompleted,
	}, e.bus.types())
	require.Len(t, e.bus.jobs, 1)
	assert.Equal(t, sess.ID(), e.bus.jobs[0].SessionID)

	stored, err := e.sessions.Get(ctx, sess.ID(), me)
	require.NoError(t, err)
	assert.Equal(t, session.StateCompleted, stored.State())
}

func TestSessionService_FailedOperationIsNotSaved(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	q1 := testutil.MultipleChoice(t, 0, 0.4)
	qz := testutil.Quiz(t, nil, q1)
	require.NoError(t, e.quizzes.Create(ctx, qz))

	sess, err := e.sessions.Create(ctx, qz.ID(), uuid.NullUUID{})
	require.NoError(t, err)

	_, err = e.sessions.SubmitAnswer(ctx, sess.ID(), uuid.NullUUID{}, q1.ID, question.MultipleChoiceAnswer{Index: 0}, dur(time.Second))
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = e.sessions.Start(ctx, sess.ID(), uuid.NullUUID{})
	require.NoError(t, err)
	_, err = e.sessions.SubmitAnswer(ctx, sess.ID(), uuid.NullUUID{}, q1.ID, question.MultipleChoiceAnswer{Index: 9}, dur(time.Second))
	assert.ErrorIs(t, err, apperror.ErrIndexOutOfBounds)

	stored, err := e.sessions.Get(ctx, sess.ID(), uuid.NullUUID{})
	require.NoError(t, err)
	assert.Empty(t, stored.Responses())
	assert.Equal(t, []model.EventType{model.EventSessionCreated, model.EventSessionStarted}, e.bus.types())
}

func TestSessionService_Ownership(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	qz := testutil.Quiz(t, nil, testutil.TrueFalse(t, true, 0.2))
	require.NoError(t, e.quizzes.Create(ctx, qz))

	owner := user()
	sess, err := e.sessions.Create(ctx, qz.ID(), owner)
	require.NoError(t, err)

	_, err = e.sessions.Start(ctx, sess.ID(), user())
	assert.ErrorIs(t, err, service.ErrNotSessionOwner)
	_, err = e.sessions.Get(ctx, sess.ID(), uuid.NullUUID{})
	assert.ErrorIs(t, err, service.ErrNotSessionOwner)

	_, err = e.sessions.Get(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = e.sessions.Create(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionService_EvaluatesFreeText(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	var explain *question.Question
	for _, q := range testutil.AllKinds(t) {
		if q.Kind() == question.KindTopicExplanation {
			explain = q
		}
	}
	qz := testutil.Quiz(t, nil, explain)
	require.NoError(t, e.quizzes.Create(ctx, qz))

	me := user()
	sess, err := e.sessions.Create(ctx, qz.ID(), me)
	require.NoError(t, err)
	_, err = e.sessions.Start(ctx, sess.ID(), me)
	require.NoError(t, err)

	resp, err := e.sessions.SubmitAnswer(ctx, sess.ID(), me, explain.ID,
		question.ExplanationAnswer{Text: "locals live on the stack unless a pointer escapes to the heap"}, dur(30*time.Second))
	require.NoError(t, err)
	assert.True(t, resp.IsCorrect)

	stored := resp.Answer.(question.ExplanationAnswer)
	require.NotNil(t, stored.Evaluation)
	assert.InDelta(t, 1.0, stored.Evaluation.Score, 1e-9)
}

func TestSessionService_NavigationAndPresentation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(session.WithRand(testutil.ReversePerm{}))
	q1 := testutil.MultipleChoice(t, 0, 0.4)
	q2 := testutil.TrueFalse(t, true, 0.8)
	qz := testutil.Quiz(t, func(b *quiz.Builder) *quiz.Builder {
		return b.RandomizeQuestions(true).RandomizeAnswers(true).ShowExplanations(quiz.ShowAfterEach)
	}, q1, q2)
	require.NoError(t, e.quizzes.Create(ctx, qz))

	me := user()
	sess, err := e.sessions.Create(ctx, qz.ID(), me)
	require.NoError(t, err)
	_, err = e.sessions.Start(ctx, sess.ID(), me)
	require.NoError(t, err)

	cur, err := e.sessions.Current(ctx, sess.ID(), me)
	require.NoError(t, err)
	assert.Equal(t, q2.ID, cur.Question.ID, "reversed question order")
	assert.Equal(t, 2, cur.Total)
	assert.Empty(t, cur.Explanation)

	_, err = e.sessions.SubmitAnswer(ctx, sess.ID(), me, q2.ID, question.TrueFalseAnswer{Value: true}, dur(time.Second))
	require.NoError(t, err)

	next, err := e.sessions.Navigate(ctx, sess.ID(), me, service.MoveNext, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Position)
	mc := next.Question.Variant.(question.MultipleChoice)
	assert.Equal(t, []string{"thread", "spawn", "async", "go"}, mc.Options)
	assert.Zero(t, mc.CorrectIndex, "answer key is redacted")

	_, err = e.sessions.Navigate(ctx, sess.ID(), me, service.MoveNext, 0)
	assert.ErrorIs(t, err, apperror.ErrNavigationOutOfRange)

	// presented position 3 is canonical option 0 ("go")
	resp, err := e.sessions.SubmitAnswer(ctx, sess.ID(), me, q1.ID, question.MultipleChoiceAnswer{Index: 3}, dur(time.Second))
	require.NoError(t, err)
	assert.True(t, resp.IsCorrect)

	back, err := e.sessions.Navigate(ctx, sess.ID(), me, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Position)
	assert.True(t, back.Answered)
	assert.NotEmpty(t, back.Explanation, "AFTER_EACH reveals the explanation once answered")
}

func TestSessionService_MeasuresTimeWhenNotReported(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	q1 := testutil.MultipleChoice(t, 0, 0.4)
	q2 := testutil.TrueFalse(t, true, 0.8)
	qz := testutil.Quiz(t, nil, q1, q2)
	require.NoError(t, e.quizzes.Create(ctx, qz))

	me := user()
	sess, err := e.sessions.Create(ctx, qz.ID(), me)
	require.NoError(t, err)
	_, err = e.sessions.Start(ctx, sess.ID(), me)
	require.NoError(t, err)

	e.clock.Advance(4 * time.Second)
	_, err = e.sessions.Pause(ctx, sess.ID(), me)
	require.NoError(t, err)
	e.clock.Advance(time.Hour)
	_, err = e.sessions.Resume(ctx, sess.ID(), me)
	require.NoError(t, err)
	e.clock.Advance(2 * time.Second)

	resp, err := e.sessions.SubmitAnswer(ctx, sess.ID(), me, q1.ID, question.MultipleChoiceAnswer{Index: 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Second, resp.TimeTaken, "the pause is not counted")

	e.clock.Advance(7 * time.Second)
	resp, err = e.sessions.SubmitAnswer(ctx, sess.ID(), me, q2.ID, question.TrueFalseAnswer{Value: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, resp.TimeTaken, "measured from the previous answer")
}

func TestSessionService_SkipAndAbandon(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	q1 := testutil.TrueFalse(t, true, 0.2)
	q2 := testutil.TrueFalse(t, false, 0.3)
	qz := testutil.Quiz(t, nil, q1, q2)
	require.NoError(t, e.quizzes.Create(ctx, qz))

	sess, err := e.sessions.Create(ctx, qz.ID(), uuid.NullUUID{})
	require.NoError(t, err)
	_, err = e.sessions.Start(ctx, sess.ID(), uuid.NullUUID{})
	require.NoError(t, err)

	got, err := e.sessions.Skip(ctx, sess.ID(), uuid.NullUUID{}, q1.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{q1.ID}, got.Skipped())

	_, err = e.sessions.Pause(ctx, sess.ID(), uuid.NullUUID{})
	require.NoError(t, err)
	_, err = e.sessions.Resume(ctx, sess.ID(), uuid.NullUUID{})
	require.NoError(t, err)
	got, err = e.sessions.Abandon(ctx, sess.ID(), uuid.NullUUID{})
	require.NoError(t, err)
	assert.Equal(t, session.StateAbandoned, got.State())

	_, err = e.sessions.Complete(ctx, sess.ID(), uuid.NullUUID{})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Empty(t, e.bus.jobs)
}

func TestSessionService_ConcurrentSubmissionsAreSerialized(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	qs := make([]*question.Question, 8)
	for i := range qs {
		qs[i] = testutil.TrueFalse(t, true, 0.5)
	}
	qz := testutil.Quiz(t, nil, qs...)
	require.NoError(t, e.quizzes.Create(ctx, qz))

	me := user()
	sess, err := e.sessions.Create(ctx, qz.ID(), me)
	require.NoError(t, err)
	_, err = e.sessions.Start(ctx, sess.ID(), me)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, q := range qs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.sessions.SubmitAnswer(ctx, sess.ID(), me, q.ID, question.TrueFalseAnswer{Value: true}, dur(time.Second))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := e.sessions.Get(ctx, sess.ID(), me)
	require.NoError(t, err)
	assert.Len(t, stored.Responses(), len(qs), "no submission is lost to a concurrent save")
}

func TestScoringService_ScoreSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	q1 := testutil.MultipleChoice(t, 0, 0.4)
	q2 := testutil.TrueFalse(t, true, 0.8)
	qz := testutil.Quiz(t, nil, q1, q2)
	require.NoError(t, e.quizzes.Create(ctx, qz))

	me := user()
	sess, err := e.sessions.Create(ctx, qz.ID(), me)
	require.NoError(t, err)

	strategies, err := scoring.ParseList("simple,adaptive")
	require.NoError(t, err)

	_, err = e.scoring.ScoreSession(ctx, sess.ID(), strategies)
	assert.ErrorIs(t, err, apperror.ErrInvalidState, "only completed sessions are scored")

	_, err = e.sessions.Start(ctx, sess.ID(), me)
	require.NoError(t, err)
	_, err = e.sessions.SubmitAnswer(ctx, sess.ID(), me, q1.ID, question.MultipleChoiceAnswer{Index: 0}, dur(10*time.Second))
	require.NoError(t, err)
	_, err = e.sessions.Complete(ctx, sess.ID(), me)
	require.NoError(t, err)

	records, err := e.scoring.ScoreSession(ctx, sess.ID(), strategies)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, scoring.NameSimple, records[0].Strategy)
	assert.InDelta(t, 0.5, records[0].Score.RawScore, 1e-9)
	assert.Equal(t, me, records[0].UserID)

	stored, err := e.scoring.List(ctx, sess.ID())
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	snap, err := e.monitor.Snapshot(ctx, qz.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stats.TotalSessions)
	assert.Equal(t, 1, snap.Stats.ByState[session.StateCompleted])
	require.Len(t, snap.Sessions, 1)
	require.NotNil(t, snap.Sessions[0].Score)
	assert.InDelta(t, 0.5, *snap.Sessions[0].Score, 1e-9)
	assert.Equal(t, 1, snap.Sessions[0].Correct)
	require.NotNil(t, snap.Stats.AverageScore)

	var scored int
	for _, ev := range e.bus.events {
		if ev.Type == model.EventSessionScored {
			scored++
			require.NotNil(t, ev.Score)
		}
	}
	assert.Equal(t, 2, scored)
}

func TestQuizService_CreateAndGenerate(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	author := uuid.New()

	threshold := 0.5
	req := &model.CreateQuizRequest{
		Title:            "Concurrency",
		Questions:        []question.Question{{Variant: question.TrueFalse{Statement: "Channels are typed", CorrectAnswer: true}, TopicID: testutil.Topic, Difficulty: 0.3}},
		PassThreshold:    &threshold,
		ShowExplanations: string(quiz.ShowNever),
		Tags:             []string{"go"},
	}
	q, err := e.quizSvc.Create(ctx, req, author)
	require.NoError(t, err)
	assert.Equal(t, 0.5, q.PassThreshold())
	assert.True(t, service.IsAuthor(q, author))
	assert.NotEqual(t, uuid.Nil, q.QuestionIDs()[0], "missing question ids are assigned")
	first, _ := q.At(0)
	assert.Equal(t, question.DefaultEstimatedTimeSeconds, first.EstimatedTimeSeconds)

	list, err := e.quizSvc.List(ctx, "go")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Concurrency", list[0].Title)
	list, err = e.quizSvc.List(ctx, "rust")
	require.NoError(t, err)
	assert.Empty(t, list)

	gen, err := e.quizSvc.Generate(ctx, &model.GenerateQuizRequest{Title: "Drill", Count: 3, TopicID: testutil.Topic}, author)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.Len(), "the bank holds a single question")

	_, err = e.quizSvc.Generate(ctx, &model.GenerateQuizRequest{Title: "Drill", Count: 3, TopicID: uuid.New()}, author)
	assert.ErrorIs(t, err, evaluation.ErrNoCandidates)

	assert.ErrorIs(t, e.quizSvc.Delete(ctx, q.ID(), uuid.New()), service.ErrNotQuizAuthor)
	require.NoError(t, e.quizSvc.Delete(ctx, q.ID(), author))

	_, err = e.quizSvc.Create(ctx, &model.CreateQuizRequest{Title: ""}, author)
	assert.ErrorIs(t, err, apperror.ErrMissingTitle)
}

func TestQuizService_DeleteKeepsLiveSessionsWorking(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	author := uuid.New()

	q, err := e.quizSvc.Create(ctx, &model.CreateQuizRequest{
		Title: "Scheduling",
		Questions: []question.Question{
			{Variant: question.TrueFalse{Statement: "GOMAXPROCS limits running threads", CorrectAnswer: true}, TopicID: testutil.Topic, Difficulty: 0.4},
			{Variant: question.TrueFalse{Statement: "Goroutines are preempted", CorrectAnswer: true}, TopicID: testutil.Topic, Difficulty: 0.6},
		},
	}, author)
	require.NoError(t, err)
	qid := q.QuestionIDs()[0]

	me := user()
	sess, err := e.sessions.Create(ctx, q.ID(), me)
	require.NoError(t, err)
	_, err = e.sessions.Start(ctx, sess.ID(), me)
	require.NoError(t, err)

	err = e.quizSvc.Delete(ctx, q.ID(), author)
	assert.ErrorIs(t, err, apperror.ErrQuizInUse)
	assert.Equal(t, apperror.CategorySession, apperror.CategoryOf(err))

	_, err = e.sessions.SubmitAnswer(ctx, sess.ID(), me, qid, question.TrueFalseAnswer{Value: true}, dur(time.Second))
	require.NoError(t, err, "the session still reaches its quiz")
	_, err = e.sessions.Complete(ctx, sess.ID(), me)
	require.NoError(t, err)

	strategies, err := scoring.ParseList("simple")
	require.NoError(t, err)
	_, err = e.scoring.ScoreSession(ctx, sess.ID(), strategies)
	require.NoError(t, err)

	require.NoError(t, e.quizSvc.Delete(ctx, q.ID(), author), "finished sessions do not block deletion")

	_, err = e.sessions.Get(ctx, sess.ID(), me)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "finished sessions go with the quiz")
	scores, err := e.scoring.List(ctx, sess.ID())
	require.NoError(t, err)
	assert.Empty(t, scores)
	_, err = e.quizSvc.GetByID(ctx, q.ID())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAuthService_IssueAndValidate(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret", JWTExpiry: time.Hour}
	auth := service.NewAuthService(cfg, nil)
	id := uuid.New()

	token, err := auth.IssueToken(id, service.RoleAuthor)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, service.RoleAuthor, claims.Role)
	assert.Equal(t, uuid.NullUUID{UUID: id, Valid: true}, claims.User())
	assert.NoError(t, auth.CheckRevoked(context.Background(), claims))
	assert.Error(t, auth.Revoke(context.Background(), claims), "revocation needs redis")

	other := service.NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour}, nil)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	expired := service.NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: -time.Minute}, nil)
	old, err := expired.IssueToken(id, service.RoleLearner)
	require.NoError(t, err)
	_, err = auth.ValidateToken(old)
	assert.Error(t, err)

	_, err = auth.IssueToken(id, service.Role("admin"))
	assert.ErrorIs(t, err, service.ErrUnknownRole)
	_, err = auth.IssueToken(uuid.Nil, service.RoleLearner)
	assert.Error(t, err)
}
