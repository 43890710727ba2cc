// Package scoring turns a session's responses into a Score. Every strategy
// is pure and deterministic and never yields NaN or Inf: a ratio with a
// zero denominator is 0.
package scoring

import (
	"math"

	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stemsi/quizlr/internal/session"
)

// Components breaks a score down by what it rewards.
type Components struct {
	Correctness float64 `json:"correctness"`
	Speed       float64 `json:"speed"`
	Difficulty  float64 `json:"difficulty"`
	Consistency float64 `json:"consistency"`
}

// Score is the result of one strategy over one session. Percentile is
// never set here; ranking against other users happens elsewhere.
type Score struct {
	RawScore        float64    `json:"raw_score"`
	WeightedScore   float64    `json:"weighted_score"`
	Percentile      *float64   `json:"percentile"`
	TimeBonus       float64    `json:"time_bonus"`
	DifficultyBonus float64    `json:"difficulty_bonus"`
	StreakBonus     float64    `json:"streak_bonus"`
	Components      Components `json:"components"`
}

// Strategy is a scoring algorithm.
type Strategy interface {
	Name() string
	// Validate rejects negative or non-finite parameters.
	Validate() error
	// Calculate scores s against q. It assumes s was created for q; use the
	// package-level Calculate to have that checked.
	Calculate(s *session.Session, q *quiz.Quiz) Score
}

// Calculate validates the strategy and the session/quiz pairing, then
// scores.
func Calculate(strategy Strategy, s *session.Session, q *quiz.Quiz) (Score, error) {
	if strategy == nil {
		return Score{}, apperror.New(apperror.ErrInvalidStrategy, "no strategy")
	}
	if err := strategy.Validate(); err != nil {
		return Score{}, err
	}
	if s == nil || q == nil {
		return Score{}, apperror.New(apperror.ErrQuizMismatch, "session and quiz are both required")
	}
	if s.QuizID() != q.ID() {
		return Score{}, apperror.New(apperror.ErrQuizMismatch, "session %s belongs to quiz %s, not %s", s.ID(), s.QuizID(), q.ID())
	}
	return strategy.Calculate(s, q), nil
}

// scored is one response joined with its question.
type scored struct {
	correct    bool
	seconds    float64
	difficulty float64
}

// collect joins the session's responses, in submission order, with the
// quiz's questions. Responses to questions outside q are dropped.
func collect(s *session.Session, q *quiz.Quiz) []scored {
	if s == nil || q == nil {
		return nil
	}
	responses := s.Responses()
	out := make([]scored, 0, len(responses))
	for _, r := range responses {
		q.View(r.QuestionID, func(qq *question.Question) {
			out = append(out, scored{
				correct:    r.IsCorrect,
				seconds:    r.TimeTaken.Seconds(),
				difficulty: qq.Difficulty,
			})
		})
	}
	return out
}

func totalQuestions(q *quiz.Quiz) int {
	if q == nil {
		return 0
	}
	return q.Len()
}

func correctCount(rs []scored) int {
	n := 0
	for _, r := range rs {
		if r.correct {
			n++
		}
	}
	return n
}

// ratio divides, returning 0 for a zero denominator or a non-finite result.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return finite(num / den)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func checkParam(strategy, name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return apperror.New(apperror.ErrInvalidStrategy, "%s: %s must be a finite non-negative number, got %v", strategy, name, v)
	}
	return nil
}
