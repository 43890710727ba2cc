package session

import (
	"time"

	"github.com/google/uuid"
)

// ResultSummary is the frozen outcome of a completed session.
type ResultSummary struct {
	SessionID      uuid.UUID     `json:"session_id"`
	QuizID         uuid.UUID     `json:"quiz_id"`
	AnsweredCount  int           `json:"answered_count"`
	CorrectCount   int           `json:"correct_count"`
	SkippedCount   int           `json:"skipped_count"`
	TotalQuestions int           `json:"total_questions"`
	TotalTime      time.Duration `json:"total_time"`
	AverageTime    time.Duration `json:"average_time"`
	ActiveDuration time.Duration `json:"active_duration"`
	Score          float64       `json:"score"`
	CompletionRate float64       `json:"completion_rate"`
	Passed         bool          `json:"passed"`
	Grade          string        `json:"grade"`
}

// Grade maps a score in [0,1] to a letter.
func Grade(score float64) string {
	switch {
	case score >= 0.9:
		return "A"
	case score >= 0.8:
		return "B"
	case score >= 0.7:
		return "C"
	case score >= 0.6:
		return "D"
	default:
		return "F"
	}
}

func (s *Session) buildSummary() ResultSummary {
	sum := ResultSummary{
		SessionID:      s.id,
		QuizID:         s.quiz.ID(),
		AnsweredCount:  len(s.responses),
		TotalQuestions: s.quiz.Len(),
		ActiveDuration: s.activeAt(s.endedAt),
	}
	for _, r := range s.responses {
		if r.IsCorrect {
			sum.CorrectCount++
		}
		sum.TotalTime += r.TimeTaken
	}
	sum.SkippedCount = sum.TotalQuestions - sum.AnsweredCount
	if sum.AnsweredCount > 0 {
		sum.AverageTime = sum.TotalTime / time.Duration(sum.AnsweredCount)
	}
	if sum.TotalQuestions > 0 {
		sum.Score = float64(sum.CorrectCount) / float64(sum.TotalQuestions)
		sum.CompletionRate = float64(sum.AnsweredCount) / float64(sum.TotalQuestions)
	}
	sum.Passed = sum.Score >= s.quiz.PassThreshold()
	sum.Grade = Grade(sum.Score)
	return sum
}
