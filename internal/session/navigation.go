package session

import (
	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
)

// Cursor is the presentation position of the current question.
func (s *Session) Cursor() int { return s.cursor }

// Next advances the cursor.
func (s *Session) Next() error {
	if err := s.require("navigate", StateInProgress); err != nil {
		return err
	}
	if s.cursor+1 >= s.quiz.Len() {
		return apperror.New(apperror.ErrNavigationOutOfRange, "already at the last question")
	}
	s.cursor++
	return nil
}

// Previous moves the cursor back.
func (s *Session) Previous() error {
	if err := s.require("navigate", StateInProgress); err != nil {
		return err
	}
	if s.cursor == 0 {
		return apperror.New(apperror.ErrNavigationOutOfRange, "already at the first question")
	}
	s.cursor--
	return nil
}

// Goto moves the cursor to presentation position p.
func (s *Session) Goto(p int) error {
	if err := s.require("navigate", StateInProgress); err != nil {
		return err
	}
	if p < 0 || p >= s.quiz.Len() {
		return apperror.New(apperror.ErrNavigationOutOfRange, "position %d outside [0,%d)", p, s.quiz.Len())
	}
	s.cursor = p
	return nil
}

// CurrentQuestion returns the question at the cursor as presented.
func (s *Session) CurrentQuestion() (*question.Question, error) {
	if err := s.require("read the current question of", StateInProgress, StatePaused); err != nil {
		return nil, err
	}
	return s.PresentedQuestion(s.cursor)
}

// PresentedQuestion returns a copy of the question at presentation position
// p with its options in this session's order. Correct indices in the copy
// refer to presented positions.
func (s *Session) PresentedQuestion(p int) (*question.Question, error) {
	if p < 0 || p >= s.quiz.Len() {
		return nil, apperror.New(apperror.ErrNavigationOutOfRange, "position %d outside [0,%d)", p, s.quiz.Len())
	}
	qi := p
	if s.questionOrder != nil {
		qi = s.questionOrder[p]
	}
	q, _ := s.quiz.At(qi)

	order := s.optionOrder[q.ID]
	if len(order) == 0 {
		return q, nil
	}
	toPresented := make(map[int]int, len(order))
	for pos, canonical := range order {
		toPresented[canonical] = pos
	}

	switch v := q.Variant.(type) {
	case question.MultipleChoice:
		v.Options = permute(v.Options, order)
		v.CorrectIndex = toPresented[v.CorrectIndex]
		q.Variant = v
	case question.MultiSelect:
		v.Options = permute(v.Options, order)
		indices := make([]int, len(v.CorrectIndices))
		for i, c := range v.CorrectIndices {
			indices[i] = toPresented[c]
		}
		v.CorrectIndices = indices
		q.Variant = v
	}
	return q, nil
}

// Explanation returns the explanation of a question if the quiz's
// explanation mode reveals it at this point of the session.
func (s *Session) Explanation(questionID uuid.UUID) (string, bool) {
	var text string
	if !s.quiz.View(questionID, func(q *question.Question) { text = q.Explanation() }) || text == "" {
		return "", false
	}

	switch s.quiz.ShowExplanations() {
	case quiz.ShowAfterEach:
		_, answered := s.answered[questionID]
		if answered || s.state == StateCompleted {
			return text, true
		}
	case quiz.ShowAtEnd:
		if s.state == StateCompleted {
			return text, true
		}
	}
	return "", false
}

func permute(options []string, order []int) []string {
	if len(order) != len(options) {
		return options
	}
	out := make([]string, len(options))
	for pos, canonical := range order {
		out[pos] = options[canonical]
	}
	return out
}
