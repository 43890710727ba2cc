// Package session implements the per-learner quiz session state machine.
//
// A Session references a shared, immutable *quiz.Quiz and records its own
// presentation order, responses and timing. It does no locking: one caller
// at a time per session. Every transition checks all of its preconditions
// before touching any field, so a failed call leaves the session unchanged.
package session

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
)

// State is a session lifecycle state.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateInProgress State = "IN_PROGRESS"
	StatePaused     State = "PAUSED"
	StateCompleted  State = "COMPLETED"
	StateAbandoned  State = "ABANDONED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

func (s State) valid() bool {
	switch s {
	case StateNotStarted, StateInProgress, StatePaused, StateCompleted, StateAbandoned:
		return true
	}
	return false
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// RandSource produces permutations. *rand.Rand from math/rand and
// math/rand/v2 both satisfy it.
type RandSource interface {
	Perm(n int) []int
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type defaultRand struct{}

func (defaultRand) Perm(n int) []int { return rand.Perm(n) }

// Response is one recorded answer.
type Response struct {
	QuestionID  uuid.UUID       `json:"question_id"`
	Answer      question.Answer `json:"-"`
	SubmittedAt time.Time       `json:"submitted_at"`
	TimeTaken   time.Duration   `json:"time_taken"`
	IsCorrect   bool            `json:"is_correct"`
	Attempts    int             `json:"attempts"`
}

// Option configures a new Session.
type Option func(*Session)

// WithClock injects the time source.
func WithClock(c Clock) Option { return func(s *Session) { s.clock = c } }

// WithRand injects the permutation source used by Start.
func WithRand(r RandSource) Option { return func(s *Session) { s.rand = r } }

// WithID fixes the session id.
func WithID(id uuid.UUID) Option { return func(s *Session) { s.id = id } }

// WithUser attaches the session to a user. Sessions without one are
// anonymous.
func WithUser(id uuid.UUID) Option {
	return func(s *Session) { s.userID = uuid.NullUUID{UUID: id, Valid: id != uuid.Nil} }
}

// AllowResubmission lets a question be answered again. The new answer
// replaces the old one, Attempts grows and time accumulates.
func AllowResubmission() Option { return func(s *Session) { s.allowResubmission = true } }

// Session is a single attempt at a quiz.
type Session struct {
	id                uuid.UUID
	quiz              *quiz.Quiz
	userID            uuid.NullUUID
	state             State
	allowResubmission bool

	responses []Response
	answered  map[uuid.UUID]int
	skipped   []uuid.UUID

	// questionOrder[p] is the quiz index shown at presentation position p.
	questionOrder []int
	// optionOrder[id][p] is the canonical option index shown at position p.
	optionOrder map[uuid.UUID][]int
	cursor      int

	createdAt   time.Time
	startedAt   time.Time
	pausedAt    time.Time
	endedAt     time.Time
	pausedTotal time.Duration
	activeMark  time.Duration

	summary *ResultSummary

	clock Clock
	rand  RandSource
}

// New creates a NOT_STARTED session over q. The quiz handle is shared, not
// copied.
func New(q *quiz.Quiz, opts ...Option) (*Session, error) {
	if q == nil {
		return nil, apperror.New(apperror.ErrQuizMismatch, "session needs a quiz")
	}
	s := &Session{
		id:       uuid.New(),
		quiz:     q,
		state:    StateNotStarted,
		answered: make(map[uuid.UUID]int),
		clock:    systemClock{},
		rand:     defaultRand{},
	}
	for _, o := range opts {
		o(s)
	}
	s.createdAt = s.clock.Now()
	return s, nil
}

func (s *Session) ID() uuid.UUID              { return s.id }
func (s *Session) QuizID() uuid.UUID          { return s.quiz.ID() }
func (s *Session) Quiz() *quiz.Quiz           { return s.quiz }
func (s *Session) UserID() uuid.NullUUID      { return s.userID }
func (s *Session) State() State               { return s.state }
func (s *Session) CreatedAt() time.Time       { return s.createdAt }
func (s *Session) StartedAt() time.Time       { return s.startedAt }
func (s *Session) PausedTotal() time.Duration { return s.pausedTotal }
func (s *Session) AllowsResubmission() bool   { return s.allowResubmission }

// CompletedAt returns the completion time, or the zero time unless the
// session is COMPLETED.
func (s *Session) CompletedAt() time.Time {
	if s.state != StateCompleted {
		return time.Time{}
	}
	return s.endedAt
}

// EndedAt returns when the session reached a terminal state.
func (s *Session) EndedAt() time.Time { return s.endedAt }

// Responses returns the recorded responses in submission order.
func (s *Session) Responses() []Response {
	out := make([]Response, len(s.responses))
	for i, r := range s.responses {
		out[i] = r.clone()
	}
	return out
}

// Response returns the response for a question, if any.
func (s *Session) Response(questionID uuid.UUID) (Response, bool) {
	i, ok := s.answered[questionID]
	if !ok {
		return Response{}, false
	}
	return s.responses[i].clone(), true
}

// Skipped returns the explicitly skipped question ids that are still
// unanswered.
func (s *Session) Skipped() []uuid.UUID { return slices.Clone(s.skipped) }

// QuestionOrder returns question ids in presentation order. Before Start
// this is the quiz order.
func (s *Session) QuestionOrder() []uuid.UUID {
	ids := s.quiz.QuestionIDs()
	if s.questionOrder == nil {
		return ids
	}
	out := make([]uuid.UUID, len(s.questionOrder))
	for p, qi := range s.questionOrder {
		out[p] = ids[qi]
	}
	return out
}

// OptionOrder returns the option permutation for a question, or nil when
// its options are shown in canonical order.
func (s *Session) OptionOrder(questionID uuid.UUID) []int {
	return slices.Clone(s.optionOrder[questionID])
}

// Summary returns the result summary of a completed session.
func (s *Session) Summary() (ResultSummary, bool) {
	if s.summary == nil {
		return ResultSummary{}, false
	}
	return *s.summary, true
}

// Progress is the fraction of quiz questions with a response.
func (s *Session) Progress() float64 {
	n := s.quiz.Len()
	if n == 0 {
		return 0
	}
	return float64(len(s.responses)) / float64(n)
}

func (r Response) clone() Response {
	if r.Answer != nil {
		r.Answer = r.Answer.WithTimeTaken(r.Answer.TimeTaken())
	}
	return r
}
