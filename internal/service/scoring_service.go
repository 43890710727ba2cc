package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/repository"
	"github.com/stemsi/quizlr/internal/scoring"
	"github.com/stemsi/quizlr/internal/session"
)

// ScoringService computes and stores strategy scores of sessions.
type ScoringService struct {
	sessionRepo *repository.SessionRepository
	scoreRepo   *repository.ScoreRepository
	events      EventPublisher
	now         func() time.Time
	log         zerolog.Logger
}

// NewScoringService creates a new ScoringService. events may be nil.
func NewScoringService(
	sessionRepo *repository.SessionRepository,
	scoreRepo *repository.ScoreRepository,
	events EventPublisher,
	log zerolog.Logger,
) *ScoringService {
	return &ScoringService{
		sessionRepo: sessionRepo,
		scoreRepo:   scoreRepo,
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With().Str("component", "scoring_service").Logger(),
	}
}

// ScoreSession computes every strategy for a completed session and stores
// the results. It is what the scoring worker runs per job.
func (s *ScoringService) ScoreSession(ctx context.Context, sessionID uuid.UUID, strategies []scoring.Strategy) ([]model.ScoreRecord, error) {
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.State() != session.StateCompleted {
		return nil, apperror.New(apperror.ErrInvalidState, "session %s is %s; only completed sessions are scored", sessionID, sess.State())
	}

	now := s.now()
	records := make([]model.ScoreRecord, 0, len(strategies))
	for _, st := range strategies {
		score, err := scoring.Calculate(st, sess, sess.Quiz())
		if err != nil {
			return nil, fmt.Errorf("calculate %s: %w", nameOf(st), err)
		}
		rec := model.ScoreRecord{
			SessionID:  sess.ID(),
			QuizID:     sess.QuizID(),
			UserID:     sess.UserID(),
			Strategy:   st.Name(),
			Score:      score,
			ComputedAt: now,
		}
		if err := s.scoreRepo.Save(ctx, &rec); err != nil {
			return nil, fmt.Errorf("save score: %w", err)
		}
		records = append(records, rec)
		s.publishScore(ctx, sess, rec)
	}
	return records, nil
}

// Preview scores a session of any state without storing the result.
func (s *ScoringService) Preview(sess *session.Session, st scoring.Strategy) (scoring.Score, error) {
	return scoring.Calculate(st, sess, sess.Quiz())
}

// List returns the stored scores of a session.
func (s *ScoringService) List(ctx context.Context, sessionID uuid.UUID) ([]model.ScoreRecord, error) {
	return s.scoreRepo.ListBySession(ctx, sessionID)
}

func (s *ScoringService) publishScore(ctx context.Context, sess *session.Session, rec model.ScoreRecord) {
	if s.events == nil {
		return
	}
	e := model.NewSessionEvent(model.EventSessionScored, sess, rec.ComputedAt)
	e.Strategy = rec.Strategy
	weighted := rec.Score.WeightedScore
	e.Score = &weighted
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID().String()).Msg("Failed to publish score event")
	}
}

func nameOf(st scoring.Strategy) string {
	if st == nil {
		return "<nil>"
	}
	return st.Name()
}
