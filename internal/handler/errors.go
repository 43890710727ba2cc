package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/evaluation"
	"github.com/stemsi/quizlr/internal/response"
	"github.com/stemsi/quizlr/internal/service"
	"github.com/stemsi/quizlr/internal/session"
)

// fail maps a service error onto the response envelope.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotSessionOwner)
	case errors.Is(err, service.ErrNotQuizAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotQuizAuthor)
	case errors.Is(err, evaluation.ErrNoCandidates):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoCandidates)
	case errors.Is(err, service.ErrGenerationDisabled):
		response.Fail(c, http.StatusNotImplemented, response.ErrGenerationUnavailable)
	default:
		if !response.FromError(c, err) {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
	}
}

// paramID parses a UUID path parameter, answering 400 when it is malformed.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// reportedTime converts an optional client time. Nil leaves the measurement
// to the session clock.
func reportedTime(seconds *float64) (*time.Duration, error) {
	if seconds == nil {
		return nil, nil
	}
	d, err := session.DurationFromSeconds(*seconds)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
