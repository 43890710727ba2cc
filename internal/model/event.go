package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/session"
)

// EventType names a session lifecycle event published to quiz monitors.
type EventType string

const (
	EventSessionCreated   EventType = "SESSION_CREATED"
	EventSessionStarted   EventType = "SESSION_STARTED"
	EventSessionPaused    EventType = "SESSION_PAUSED"
	EventSessionResumed   EventType = "SESSION_RESUMED"
	EventAnswerSubmitted  EventType = "ANSWER_SUBMITTED"
	EventQuestionSkipped  EventType = "QUESTION_SKIPPED"
	EventSessionCompleted EventType = "SESSION_COMPLETED"
	EventSessionAbandoned EventType = "SESSION_ABANDONED"
	EventSessionScored    EventType = "SESSION_SCORED"
)

// SessionEvent is broadcast on the quiz monitor channel.
type SessionEvent struct {
	Type      EventType     `json:"type"`
	SessionID uuid.UUID     `json:"session_id"`
	QuizID    uuid.UUID     `json:"quiz_id"`
	UserID    *uuid.UUID    `json:"user_id"`
	State     session.State `json:"state"`
	Answered  int           `json:"answered"`
	Total     int           `json:"total"`
	Progress  float64       `json:"progress"`
	At        time.Time     `json:"at"`
	// Strategy and Score are set on SESSION_SCORED.
	Strategy string   `json:"strategy,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// NewSessionEvent snapshots s for a monitor event.
func NewSessionEvent(t EventType, s *session.Session, at time.Time) SessionEvent {
	e := SessionEvent{
		Type:      t,
		SessionID: s.ID(),
		QuizID:    s.QuizID(),
		State:     s.State(),
		Answered:  len(s.Responses()),
		Total:     s.Quiz().Len(),
		Progress:  s.Progress(),
		At:        at,
	}
	if u := s.UserID(); u.Valid {
		e.UserID = &u.UUID
	}
	return e
}
