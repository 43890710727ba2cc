package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizlr/internal/evaluation"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/repository"
	"github.com/stemsi/quizlr/internal/session"
)

// ErrNotSessionOwner is returned when a user touches someone else's session.
var ErrNotSessionOwner = errors.New("session belongs to another user")

// SessionService drives quiz sessions: load, apply one engine operation,
// save. Operations on the same session are serialized.
type SessionService struct {
	sessionRepo *repository.SessionRepository
	quizRepo    *repository.QuizRepository
	evaluator   evaluation.Evaluator
	events      EventPublisher
	queue       ScoreQueue
	locks       *keyedMutex
	opts        []session.Option
	log         zerolog.Logger
}

// NewSessionService creates a new SessionService. evaluator, events and
// queue may be nil. opts apply to every new session.
func NewSessionService(
	sessionRepo *repository.SessionRepository,
	quizRepo *repository.QuizRepository,
	evaluator evaluation.Evaluator,
	events EventPublisher,
	queue ScoreQueue,
	log zerolog.Logger,
	opts ...session.Option,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		quizRepo:    quizRepo,
		evaluator:   evaluator,
		events:      events,
		queue:       queue,
		locks:       newKeyedMutex(),
		opts:        opts,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// Create opens a new NOT_STARTED session of a quiz for user.
func (s *SessionService) Create(ctx context.Context, quizID uuid.UUID, user uuid.NullUUID) (*session.Session, error) {
	q, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	opts := slices.Clone(s.opts)
	if user.Valid {
		opts = append(opts, session.WithUser(user.UUID))
	}
	sess, err := session.New(q, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.publish(ctx, model.EventSessionCreated, sess)
	return sess, nil
}

// Get loads a session the actor may see.
func (s *SessionService) Get(ctx context.Context, id uuid.UUID, actor uuid.NullUUID) (*session.Session, error) {
	sess, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(sess, actor); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListMine returns the sessions of user.
func (s *SessionService) ListMine(ctx context.Context, user uuid.NullUUID) ([]*session.Session, error) {
	return s.sessionRepo.ListByUser(ctx, user)
}

// Start moves a session to IN_PROGRESS and fixes its presentation order.
func (s *SessionService) Start(ctx context.Context, id uuid.UUID, actor uuid.NullUUID) (*session.Session, error) {
	return s.mutate(ctx, id, actor, func(sess *session.Session) (model.EventType, error) {
		return model.EventSessionStarted, sess.Start()
	})
}

func (s *SessionService) Pause(ctx context.Context, id uuid.UUID, actor uuid.NullUUID) (*session.Session, error) {
	return s.mutate(ctx, id, actor, func(sess *session.Session) (model.EventType, error) {
		return model.EventSessionPaused, sess.Pause()
	})
}

func (s *SessionService) Resume(ctx context.Context, id uuid.UUID, actor uuid.NullUUID) (*session.Session, error) {
	return s.mutate(ctx, id, actor, func(sess *session.Session) (model.EventType, error) {
		return model.EventSessionResumed, sess.Resume()
	})
}

func (s *SessionService) Abandon(ctx context.Context, id uuid.UUID, actor uuid.NullUUID) (*session.Session, error) {
	return s.mutate(ctx, id, actor, func(sess *session.Session) (model.EventType, error) {
		return model.EventSessionAbandoned, sess.Abandon()
	})
}

// Complete finishes a session and queues it for scoring. A queue failure
// is logged; the completion itself stands.
func (s *SessionService) Complete(ctx context.Context, id uuid.UUID, actor uuid.NullUUID) (session.ResultSummary, error) {
	var summary session.ResultSummary
	sess, err := s.mutate(ctx, id, actor, func(sess *session.Session) (model.EventType, error) {
		var err error
		summary, err = sess.Complete()
		return model.EventSessionCompleted, err
	})
	if err != nil {
		return session.ResultSummary{}, err
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, model.ScoreJob{SessionID: sess.ID()}); err != nil {
			s.log.Error().Err(err).Str("session_id", sess.ID().String()).Msg("Failed to queue session for scoring")
		}
	}
	return summary, nil
}

// SubmitAnswer records an answer. Free-text answers without an evaluation
// are evaluated first. A nil timeTaken is measured on the session clock as
// the active time since the previous answer, pauses excluded.
func (s *SessionService) SubmitAnswer(
	ctx context.Context,
	id uuid.UUID,
	actor uuid.NullUUID,
	questionID uuid.UUID,
	answer question.Answer,
	timeTaken *time.Duration,
) (session.Response, error) {
	var resp session.Response
	_, err := s.mutate(ctx, id, actor, func(sess *session.Session) (model.EventType, error) {
		a, err := s.evaluate(ctx, sess, questionID, answer)
		if err != nil {
			return "", err
		}
		took := sess.SinceLastActivity()
		if timeTaken != nil {
			took = *timeTaken
		}
		resp, err = sess.SubmitAnswer(questionID, a, took)
		return model.EventAnswerSubmitted, err
	})
	return resp, err
}

func (s *SessionService) evaluate(ctx context.Context, sess *session.Session, questionID uuid.UUID, a question.Answer) (question.Answer, error) {
	if s.evaluator == nil || a == nil || sess.State() != session.StateInProgress || !question.IsFreeText(a.Kind()) {
		return a, nil
	}
	q, ok := sess.Quiz().Question(questionID)
	if !ok {
		return a, nil
	}
	out, err := evaluation.Attach(ctx, s.evaluator, q, a)
	if err != nil {
		return nil, fmt.Errorf("evaluate answer: %w", err)
	}
	return out, nil
}

// Skip marks a question as skipped.
func (s *SessionService) Skip(ctx context.Context, id uuid.UUID, actor uuid.NullUUID, questionID uuid.UUID) (*session.Session, error) {
	return s.mutate(ctx, id, actor, func(sess *session.Session) (model.EventType, error) {
		return model.EventQuestionSkipped, sess.Skip(questionID)
	})
}

// Navigation moves.
const (
	MoveNext     = "next"
	MovePrevious = "previous"
)

// Navigate moves the cursor and returns the question now under it. move is
// MoveNext, MovePrevious or empty with an explicit position.
func (s *SessionService) Navigate(ctx context.Context, id uuid.UUID, actor uuid.NullUUID, move string, position int) (*model.PresentedQuestionView, error) {
	var view *model.PresentedQuestionView
	_, err := s.mutate(ctx, id, actor, func(sess *session.Session) (model.EventType, error) {
		var err error
		switch move {
		case MoveNext:
			err = sess.Next()
		case MovePrevious:
			err = sess.Previous()
		default:
			err = sess.Goto(position)
		}
		if err != nil {
			return "", err
		}
		view, err = Present(sess, sess.Cursor())
		return "", err
	})
	return view, err
}

// Current returns the question under the cursor.
func (s *SessionService) Current(ctx context.Context, id uuid.UUID, actor uuid.NullUUID) (*model.PresentedQuestionView, error) {
	sess, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if _, err := sess.CurrentQuestion(); err != nil {
		return nil, err
	}
	return Present(sess, sess.Cursor())
}

// Present renders position p of sess for the learner. Answer keys are
// hidden until the session is completed.
func Present(sess *session.Session, p int) (*model.PresentedQuestionView, error) {
	q, err := sess.PresentedQuestion(p)
	if err != nil {
		return nil, err
	}
	_, answered := sess.Response(q.ID)
	explanation, _ := sess.Explanation(q.ID)
	if sess.State() != session.StateCompleted {
		q = question.Redact(q)
	}
	return &model.PresentedQuestionView{
		Position:    p,
		Total:       sess.Quiz().Len(),
		Question:    q,
		Answered:    answered,
		Explanation: explanation,
	}, nil
}

// mutate runs fn on a freshly loaded session under the session's lock and
// saves the result. A failed fn leaves the stored session untouched.
// TODO: take a Redis lock instead once the API runs as more than one instance.
func (s *SessionService) mutate(
	ctx context.Context,
	id uuid.UUID,
	actor uuid.NullUUID,
	fn func(*session.Session) (model.EventType, error),
) (*session.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	event, err := fn(sess)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if event != "" {
		s.publish(ctx, event, sess)
	}
	return sess, nil
}

func (s *SessionService) publish(ctx context.Context, t model.EventType, sess *session.Session) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, model.NewSessionEvent(t, sess, time.Now().UTC())); err != nil {
		s.log.Warn().Err(err).Str("event", string(t)).Str("session_id", sess.ID().String()).Msg("Failed to publish session event")
	}
}

// checkOwner lets anyone holding the id use an anonymous session; a
// session with a user is restricted to that user.
func checkOwner(sess *session.Session, actor uuid.NullUUID) error {
	owner := sess.UserID()
	if !owner.Valid {
		return nil
	}
	if !actor.Valid || actor.UUID != owner.UUID {
		return ErrNotSessionOwner
	}
	return nil
}
