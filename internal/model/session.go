package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/session"
)

// SubmitAnswerRequest is the payload for answering one question. Option
// indices refer to the order the learner was shown.
type SubmitAnswerRequest struct {
	QuestionID       uuid.UUID         `json:"question_id" binding:"required"`
	Answer           question.Envelope `json:"answer"`
	TimeTakenSeconds *float64          `json:"time_taken_seconds" binding:"omitempty,gte=0"`
}

// SkipQuestionRequest is the payload for skipping a question.
type SkipQuestionRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
}

// GotoRequest moves the cursor to a presented position.
type GotoRequest struct {
	Position *int `json:"position" binding:"required,gte=0"`
}

// ResponseView is one recorded answer as returned to clients.
type ResponseView struct {
	QuestionID       uuid.UUID         `json:"question_id"`
	Answer           question.Envelope `json:"answer"`
	SubmittedAt      time.Time         `json:"submitted_at"`
	TimeTakenSeconds float64           `json:"time_taken_seconds"`
	IsCorrect        bool              `json:"is_correct"`
	Attempts         int               `json:"attempts"`
}

// SessionView is the client-facing projection of a session.
type SessionView struct {
	ID                  uuid.UUID              `json:"id"`
	QuizID              uuid.UUID              `json:"quiz_id"`
	UserID              *uuid.UUID             `json:"user_id"`
	State               session.State          `json:"state"`
	Progress            float64                `json:"progress"`
	Cursor              int                    `json:"cursor"`
	QuestionOrder       []uuid.UUID            `json:"question_order"`
	Responses           []ResponseView         `json:"responses"`
	Skipped             []uuid.UUID            `json:"skipped"`
	ActiveSeconds       float64                `json:"active_seconds"`
	CreatedAt           time.Time              `json:"created_at"`
	StartedAt           *time.Time             `json:"started_at"`
	EndedAt             *time.Time             `json:"ended_at"`
	Summary             *session.ResultSummary `json:"summary,omitempty"`
	AllowsResubmissions bool                   `json:"allows_resubmission"`
}

// NewSessionView projects s into its client view.
func NewSessionView(s *session.Session) SessionView {
	v := SessionView{
		ID:                  s.ID(),
		QuizID:              s.QuizID(),
		State:               s.State(),
		Progress:            s.Progress(),
		Cursor:              s.Cursor(),
		QuestionOrder:       s.QuestionOrder(),
		Skipped:             s.Skipped(),
		ActiveSeconds:       s.ActiveDuration().Seconds(),
		CreatedAt:           s.CreatedAt(),
		StartedAt:           timePtr(s.StartedAt()),
		EndedAt:             timePtr(s.EndedAt()),
		AllowsResubmissions: s.AllowsResubmission(),
	}
	if u := s.UserID(); u.Valid {
		v.UserID = &u.UUID
	}
	for _, r := range s.Responses() {
		v.Responses = append(v.Responses, NewResponseView(r))
	}
	if sum, ok := s.Summary(); ok {
		v.Summary = &sum
	}
	return v
}

// NewResponseView projects a recorded answer into its client view.
func NewResponseView(r session.Response) ResponseView {
	return ResponseView{
		QuestionID:       r.QuestionID,
		Answer:           question.Envelope{Answer: r.Answer},
		SubmittedAt:      r.SubmittedAt,
		TimeTakenSeconds: r.TimeTaken.Seconds(),
		IsCorrect:        r.IsCorrect,
		Attempts:         r.Attempts,
	}
}

// PresentedQuestionView is a question as shown at one position, with
// options already permuted and answers stripped.
type PresentedQuestionView struct {
	Position    int                `json:"position"`
	Total       int                `json:"total"`
	Question    *question.Question `json:"question"`
	Answered    bool               `json:"answered"`
	Explanation string             `json:"explanation,omitempty"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
