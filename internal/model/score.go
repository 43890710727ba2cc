package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/scoring"
)

// ScoreRecordVersion is the schema version of persisted score records.
const ScoreRecordVersion = 1

// ScoreRecord is one strategy's score of a completed session.
type ScoreRecord struct {
	Version    int           `json:"version"`
	SessionID  uuid.UUID     `json:"session_id"`
	QuizID     uuid.UUID     `json:"quiz_id"`
	UserID     uuid.NullUUID `json:"user_id"`
	Strategy   string        `json:"strategy"`
	Score      scoring.Score `json:"score"`
	ComputedAt time.Time     `json:"computed_at"`
}

// ScoreJob is the payload queued for the scoring worker.
type ScoreJob struct {
	SessionID uuid.UUID `json:"session_id"`
	// Strategies overrides the configured list when non-empty.
	Strategies []string `json:"strategies,omitempty"`
}

// ScoreRequest asks for an on-demand score with optional parameters.
type ScoreRequest struct {
	Strategy string             `json:"strategy" binding:"required,oneof=simple time_weighted difficulty_weighted adaptive"`
	Params   map[string]float64 `json:"params"`
}
