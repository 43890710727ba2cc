package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/repository"
	"github.com/stemsi/quizlr/internal/scoring"
	"github.com/stemsi/quizlr/internal/session"
)

// scoreFetchConcurrency bounds the parallel score lookups of one snapshot.
const scoreFetchConcurrency = 8

// MonitorService builds live views of a quiz's sessions.
type MonitorService struct {
	quizRepo    *repository.QuizRepository
	sessionRepo *repository.SessionRepository
	scoreRepo   *repository.ScoreRepository
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(
	quizRepo *repository.QuizRepository,
	sessionRepo *repository.SessionRepository,
	scoreRepo *repository.ScoreRepository,
) *MonitorService {
	return &MonitorService{quizRepo: quizRepo, sessionRepo: sessionRepo, scoreRepo: scoreRepo}
}

// SessionProgress is one row of a monitor snapshot.
type SessionProgress struct {
	SessionID uuid.UUID     `json:"session_id"`
	UserID    *uuid.UUID    `json:"user_id"`
	State     session.State `json:"state"`
	Answered  int           `json:"answered"`
	Correct   int           `json:"correct"`
	Progress  float64       `json:"progress"`
	StartedAt *time.Time    `json:"started_at"`
	// Score is the stored simple score, set once the worker has scored the
	// session.
	Score *float64 `json:"score"`
}

// MonitorStats aggregates a snapshot.
type MonitorStats struct {
	TotalSessions int                   `json:"total_sessions"`
	ByState       map[session.State]int `json:"by_state"`
	AverageScore  *float64              `json:"average_score"`
}

// QuizSnapshot is the full monitor view of one quiz.
type QuizSnapshot struct {
	Quiz     model.QuizSummary `json:"quiz"`
	Stats    MonitorStats      `json:"stats"`
	Sessions []SessionProgress `json:"sessions"`
}

// Snapshot gathers every session of a quiz and the stored simple score of
// the completed ones. Score lookups run concurrently and are best-effort.
func (s *MonitorService) Snapshot(ctx context.Context, quizID uuid.UUID) (*QuizSnapshot, error) {
	q, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	snap := &QuizSnapshot{
		Quiz: model.NewQuizSummary(q),
		Stats: MonitorStats{
			TotalSessions: len(sessions),
			ByState:       make(map[session.State]int),
		},
		Sessions: make([]SessionProgress, len(sessions)),
	}

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, scoreFetchConcurrency)
	)
	for i, sess := range sessions {
		snap.Stats.ByState[sess.State()]++
		snap.Sessions[i] = progressOf(sess)

		if sess.State() != session.StateCompleted {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rec, err := s.scoreRepo.Get(ctx, sess.ID(), scoring.NameSimple)
			if err != nil {
				// not scored yet; the row keeps a nil score
				return
			}
			v := rec.Score.RawScore
			snap.Sessions[i].Score = &v
		}()
	}
	wg.Wait()

	var sum float64
	var n int
	for _, p := range snap.Sessions {
		if p.Score != nil {
			sum += *p.Score
			n++
		}
	}
	if n > 0 {
		avg := sum / float64(n)
		snap.Stats.AverageScore = &avg
	}
	return snap, nil
}

func progressOf(sess *session.Session) SessionProgress {
	p := SessionProgress{
		SessionID: sess.ID(),
		State:     sess.State(),
		Progress:  sess.Progress(),
	}
	for _, r := range sess.Responses() {
		p.Answered++
		if r.IsCorrect {
			p.Correct++
		}
	}
	if u := sess.UserID(); u.Valid {
		p.UserID = &u.UUID
	}
	if t := sess.StartedAt(); !t.IsZero() {
		p.StartedAt = &t
	}
	return p
}
