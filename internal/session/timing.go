package session

import (
	"math"
	"time"

	"github.com/stemsi/quizlr/internal/apperror"
)

// ActiveDuration is the wall-clock time since Start minus every pause. It
// stops growing once the session ends.
func (s *Session) ActiveDuration() time.Duration {
	return s.activeAt(s.clock.Now())
}

// SinceLastActivity is the active time elapsed since the last submitted
// answer, or since Start when nothing was submitted. Pauses are excluded,
// so callers can use it as the time taken for the current question.
func (s *Session) SinceLastActivity() time.Duration {
	return nonNegative(s.ActiveDuration() - s.activeMark)
}

func (s *Session) activeAt(now time.Time) time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	end := now
	if !s.endedAt.IsZero() {
		end = s.endedAt
	}
	d := end.Sub(s.startedAt) - s.pausedTotal
	if s.state == StatePaused && !s.pausedAt.IsZero() {
		d -= nonNegative(end.Sub(s.pausedAt))
	}
	return nonNegative(d)
}

// DurationFromSeconds converts a client-reported time in seconds. Negative
// and non-finite values fail with INVALID_TIMING.
func DurationFromSeconds(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, apperror.New(apperror.ErrInvalidTiming, "time taken %v is not a non-negative number", seconds)
	}
	if seconds > math.MaxInt64/float64(time.Second) {
		return 0, apperror.New(apperror.ErrInvalidTiming, "time taken %v is too large", seconds)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
