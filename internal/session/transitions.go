package session

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
)

func (s *Session) require(op string, allowed ...State) error {
	if slices.Contains(allowed, s.state) {
		return nil
	}
	return apperror.New(apperror.ErrInvalidState, "cannot %s a session in state %s", op, s.state)
}

// Start moves NOT_STARTED to IN_PROGRESS and fixes this session's
// presentation order.
func (s *Session) Start() error {
	if err := s.require("start", StateNotStarted); err != nil {
		return err
	}

	questionOrder, optionOrder := s.permutation()
	now := s.clock.Now()

	s.questionOrder = questionOrder
	s.optionOrder = optionOrder
	s.startedAt = now
	s.state = StateInProgress
	return nil
}

// permutation draws question and option orders from the random source. A
// source that returns something other than a permutation of the right size
// is ignored for that draw.
func (s *Session) permutation() ([]int, map[uuid.UUID][]int) {
	n := s.quiz.Len()
	questionOrder := identity(n)
	if s.quiz.RandomizeQuestions() {
		questionOrder = s.draw(n)
	}

	var optionOrder map[uuid.UUID][]int
	if s.quiz.RandomizeAnswers() {
		optionOrder = make(map[uuid.UUID][]int)
		s.quiz.Each(func(_ int, q *question.Question) {
			if k := optionCount(q); k > 1 {
				optionOrder[q.ID] = s.draw(k)
			}
		})
	}
	return questionOrder, optionOrder
}

func (s *Session) draw(n int) []int {
	p := s.rand.Perm(n)
	if !isPermutation(p, n) {
		return identity(n)
	}
	return slices.Clone(p)
}

// Pause moves IN_PROGRESS to PAUSED.
func (s *Session) Pause() error {
	if err := s.require("pause", StateInProgress); err != nil {
		return err
	}
	s.pausedAt = s.clock.Now()
	s.state = StatePaused
	return nil
}

// Resume moves PAUSED to IN_PROGRESS. The time spent paused is excluded
// from every later duration.
func (s *Session) Resume() error {
	if err := s.require("resume", StatePaused); err != nil {
		return err
	}
	s.pausedTotal += nonNegative(s.clock.Now().Sub(s.pausedAt))
	s.pausedAt = time.Time{}
	s.state = StateInProgress
	return nil
}

// Complete moves IN_PROGRESS to COMPLETED and freezes the result summary.
// When the quiz disallows skipping every question needs a response.
func (s *Session) Complete() (ResultSummary, error) {
	if err := s.require("complete", StateInProgress); err != nil {
		return ResultSummary{}, err
	}
	if !s.quiz.AllowSkip() && len(s.responses) < s.quiz.Len() {
		return ResultSummary{}, apperror.New(apperror.ErrIncompleteQuiz,
			"%d of %d questions unanswered", s.quiz.Len()-len(s.responses), s.quiz.Len())
	}

	s.endedAt = s.clock.Now()
	s.state = StateCompleted
	summary := s.buildSummary()
	s.summary = &summary
	return summary, nil
}

// Abandon ends a non-terminal session without a summary. A pause in
// progress is closed first.
func (s *Session) Abandon() error {
	if err := s.require("abandon", StateNotStarted, StateInProgress, StatePaused); err != nil {
		return err
	}
	now := s.clock.Now()
	if s.state == StatePaused {
		s.pausedTotal += nonNegative(now.Sub(s.pausedAt))
		s.pausedAt = time.Time{}
	}
	s.endedAt = now
	s.state = StateAbandoned
	return nil
}

// Skip marks an unanswered question as skipped.
func (s *Session) Skip(questionID uuid.UUID) error {
	if err := s.require("skip in", StateInProgress); err != nil {
		return err
	}
	if !s.quiz.AllowSkip() {
		return apperror.New(apperror.ErrSkipNotAllowed, "quiz %s does not allow skipping", s.quiz.ID())
	}
	if !s.quiz.Contains(questionID) {
		return apperror.New(apperror.ErrUnknownQuestion, "question %s is not in quiz %s", questionID, s.quiz.ID())
	}
	if _, ok := s.answered[questionID]; ok {
		return apperror.New(apperror.ErrDuplicateAnswer, "question %s already answered", questionID)
	}
	if !slices.Contains(s.skipped, questionID) {
		s.skipped = append(s.skipped, questionID)
	}
	return nil
}

func identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func isPermutation(p []int, n int) bool {
	if len(p) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range p {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func optionCount(q *question.Question) int {
	switch v := q.Variant.(type) {
	case question.MultipleChoice:
		return len(v.Options)
	case question.MultiSelect:
		return len(v.Options)
	}
	return 0
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
