package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionSkip     Action = "skip"
	ActionCurrent  Action = "current"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionComplete Action = "complete"
	ActionPing     Action = "ping"
)

// RequestPayload is every client message. Fields unused by an action are
// ignored.
type RequestPayload struct {
	Action           Action            `json:"action"`
	QuestionID       uuid.UUID         `json:"question_id"`
	Answer           question.Envelope `json:"answer"`
	TimeTakenSeconds *float64          `json:"time_taken_seconds,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventAnswered  Event = "answered"
	EventSkipped   Event = "skipped"
	EventQuestion  Event = "question"
	EventCompleted Event = "completed"
	EventPong      Event = "pong"
)

type AnsweredResponse struct {
	Event      Event     `json:"event"`
	QuestionID uuid.UUID `json:"question_id"`
	IsCorrect  bool      `json:"is_correct"`
	Attempts   int       `json:"attempts"`
	Progress   float64   `json:"progress"`
}

type SkippedResponse struct {
	Event      Event     `json:"event"`
	QuestionID uuid.UUID `json:"question_id"`
}

type QuestionResponse struct {
	Event    Event `json:"event"`
	Question any   `json:"question"`
}

type CompletedResponse struct {
	Event   Event                 `json:"event"`
	Summary session.ResultSummary `json:"summary"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
