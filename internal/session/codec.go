package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
)

// RecordVersion is the JSON schema version written by MarshalJSON.
const RecordVersion = 1

type responseRecord struct {
	QuestionID  uuid.UUID         `json:"question_id"`
	Answer      question.Envelope `json:"answer"`
	SubmittedAt time.Time         `json:"submitted_at"`
	TimeTaken   time.Duration     `json:"time_taken_ns"`
	IsCorrect   bool              `json:"is_correct"`
	Attempts    int               `json:"attempts"`
}

type record struct {
	Version           int                 `json:"version"`
	ID                uuid.UUID           `json:"id"`
	QuizID            uuid.UUID           `json:"quiz_id"`
	UserID            uuid.NullUUID       `json:"user_id"`
	State             State               `json:"state"`
	AllowResubmission bool                `json:"allow_resubmission"`
	Responses         []responseRecord    `json:"responses"`
	Skipped           []uuid.UUID         `json:"skipped,omitempty"`
	QuestionOrder     []uuid.UUID         `json:"question_order,omitempty"`
	OptionOrder       map[uuid.UUID][]int `json:"option_order,omitempty"`
	Cursor            int                 `json:"cursor"`
	CreatedAt         time.Time           `json:"created_at"`
	StartedAt         time.Time           `json:"started_at,omitzero"`
	PausedAt          time.Time           `json:"paused_at,omitzero"`
	EndedAt           time.Time           `json:"ended_at,omitzero"`
	PausedTotal       time.Duration       `json:"paused_total_ns"`
	ActiveMark        time.Duration       `json:"active_mark_ns"`
	Summary           *ResultSummary      `json:"summary,omitempty"`
}

// MarshalJSON writes a versioned record. Only the quiz id is stored; the
// quiz itself is persisted on its own.
func (s *Session) MarshalJSON() ([]byte, error) {
	r := record{
		Version:           RecordVersion,
		ID:                s.id,
		QuizID:            s.quiz.ID(),
		UserID:            s.userID,
		State:             s.state,
		AllowResubmission: s.allowResubmission,
		Responses:         make([]responseRecord, len(s.responses)),
		Skipped:           s.skipped,
		OptionOrder:       s.optionOrder,
		Cursor:            s.cursor,
		CreatedAt:         s.createdAt,
		StartedAt:         s.startedAt,
		PausedAt:          s.pausedAt,
		EndedAt:           s.endedAt,
		PausedTotal:       s.pausedTotal,
		ActiveMark:        s.activeMark,
		Summary:           s.summary,
	}
	if s.questionOrder != nil {
		r.QuestionOrder = s.QuestionOrder()
	}
	for i, resp := range s.responses {
		r.Responses[i] = responseRecord{
			QuestionID:  resp.QuestionID,
			Answer:      question.Envelope{Answer: resp.Answer},
			SubmittedAt: resp.SubmittedAt,
			TimeTaken:   resp.TimeTaken,
			IsCorrect:   resp.IsCorrect,
			Attempts:    resp.Attempts,
		}
	}
	return json.Marshal(r)
}

// Decode restores a session record against the quiz it was created for.
// The record must name q's id. Options such as WithClock and WithRand
// apply; WithID and WithUser are overridden by the record.
func Decode(b []byte, q *quiz.Quiz, opts ...Option) (*Session, error) {
	if q == nil {
		return nil, apperror.New(apperror.ErrQuizMismatch, "restoring a session needs its quiz")
	}
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, apperror.New(apperror.ErrCorruptRecord, "decode session: %v", err)
	}
	if r.Version != RecordVersion {
		return nil, apperror.New(apperror.ErrUnsupportedVersion, "session record version %d", r.Version)
	}
	if r.QuizID != q.ID() {
		return nil, apperror.New(apperror.ErrQuizMismatch, "session %s belongs to quiz %s, not %s", r.ID, r.QuizID, q.ID())
	}
	if !r.State.valid() {
		return nil, corrupt(r.ID, "unknown state %q", r.State)
	}

	s, err := New(q, opts...)
	if err != nil {
		return nil, err
	}
	s.id = r.ID
	s.userID = r.UserID
	s.state = r.State
	s.allowResubmission = r.AllowResubmission
	s.createdAt = r.CreatedAt
	s.startedAt = r.StartedAt
	s.pausedAt = r.PausedAt
	s.endedAt = r.EndedAt
	s.pausedTotal = r.PausedTotal
	s.activeMark = r.ActiveMark
	s.summary = r.Summary

	if len(r.QuestionOrder) > 0 {
		if len(r.QuestionOrder) != q.Len() {
			return nil, corrupt(r.ID, "question order has %d entries, quiz has %d", len(r.QuestionOrder), q.Len())
		}
		order := make([]int, len(r.QuestionOrder))
		for p, id := range r.QuestionOrder {
			order[p] = q.IndexOf(id)
		}
		if !isPermutation(order, q.Len()) {
			return nil, corrupt(r.ID, "question order does not match quiz %s", q.ID())
		}
		s.questionOrder = order
	}

	if len(r.OptionOrder) > 0 {
		s.optionOrder = make(map[uuid.UUID][]int, len(r.OptionOrder))
		for id, order := range r.OptionOrder {
			var n int
			if !q.View(id, func(qq *question.Question) { n = optionCount(qq) }) || !isPermutation(order, n) {
				return nil, corrupt(r.ID, "bad option order for question %s", id)
			}
			s.optionOrder[id] = order
		}
	}

	for _, rr := range r.Responses {
		if !q.Contains(rr.QuestionID) {
			return nil, corrupt(r.ID, "response for unknown question %s", rr.QuestionID)
		}
		if _, dup := s.answered[rr.QuestionID]; dup {
			return nil, corrupt(r.ID, "two responses for question %s", rr.QuestionID)
		}
		if rr.Answer.Answer == nil {
			return nil, corrupt(r.ID, "response for question %s has no answer", rr.QuestionID)
		}
		s.answered[rr.QuestionID] = len(s.responses)
		s.responses = append(s.responses, Response{
			QuestionID:  rr.QuestionID,
			Answer:      rr.Answer.Answer,
			SubmittedAt: rr.SubmittedAt,
			TimeTaken:   rr.TimeTaken,
			IsCorrect:   rr.IsCorrect,
			Attempts:    rr.Attempts,
		})
	}

	for _, id := range r.Skipped {
		if !q.Contains(id) {
			return nil, corrupt(r.ID, "skipped unknown question %s", id)
		}
	}
	s.skipped = r.Skipped

	if r.Cursor < 0 || r.Cursor >= max(q.Len(), 1) {
		return nil, corrupt(r.ID, "cursor %d out of range", r.Cursor)
	}
	s.cursor = r.Cursor
	return s, nil
}

func corrupt(id uuid.UUID, format string, args ...any) error {
	return apperror.New(apperror.ErrCorruptRecord, "session %s: "+format, append([]any{id}, args...)...)
}
