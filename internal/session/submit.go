package session

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
)

// SubmitAnswer validates and records an answer. Option indices in a are
// read in this session's presentation order; the stored answer uses the
// canonical indices. The returned Response is the one now recorded.
func (s *Session) SubmitAnswer(questionID uuid.UUID, a question.Answer, timeTaken time.Duration) (Response, error) {
	if err := s.require("submit an answer to", StateInProgress); err != nil {
		return Response{}, err
	}
	if timeTaken < 0 {
		return Response{}, apperror.New(apperror.ErrInvalidTiming, "time taken %s is negative", timeTaken)
	}

	var q *question.Question
	if !s.quiz.View(questionID, func(qq *question.Question) { q = qq }) {
		return Response{}, apperror.New(apperror.ErrUnknownQuestion, "question %s is not in quiz %s", questionID, s.quiz.ID())
	}
	prev, resubmit := s.answered[questionID]
	if resubmit && !s.allowResubmission {
		return Response{}, apperror.New(apperror.ErrDuplicateAnswer, "question %s already answered", questionID)
	}

	canonical := s.canonicalize(questionID, a)
	correct, err := question.ValidateAnswer(q, canonical)
	if err != nil {
		return Response{}, err
	}

	now := s.clock.Now()
	r := Response{
		QuestionID:  questionID,
		SubmittedAt: now,
		TimeTaken:   timeTaken,
		IsCorrect:   correct,
		Attempts:    1,
	}
	if resubmit {
		old := s.responses[prev]
		r.TimeTaken += old.TimeTaken
		r.Attempts = old.Attempts + 1
	}
	r.Answer = canonical.WithTimeTaken(r.TimeTaken.Seconds())

	if resubmit {
		s.responses[prev] = r
	} else {
		s.answered[questionID] = len(s.responses)
		s.responses = append(s.responses, r)
	}
	s.skipped = slices.DeleteFunc(s.skipped, func(id uuid.UUID) bool { return id == questionID })
	s.activeMark = s.activeAt(now)
	return r.clone(), nil
}

// canonicalize maps presented option positions back to canonical indices.
// Positions outside the permutation are passed through so validation can
// report them.
func (s *Session) canonicalize(questionID uuid.UUID, a question.Answer) question.Answer {
	order := s.optionOrder[questionID]
	if len(order) == 0 || a == nil {
		return a
	}
	toCanonical := func(p int) int {
		if p < 0 || p >= len(order) {
			return p
		}
		return order[p]
	}

	switch ans := a.(type) {
	case question.MultipleChoiceAnswer:
		ans.Index = toCanonical(ans.Index)
		return ans
	case question.MultiSelectAnswer:
		indices := make([]int, len(ans.Indices))
		for i, p := range ans.Indices {
			indices[i] = toCanonical(p)
		}
		ans.Indices = indices
		return ans
	}
	return a
}
