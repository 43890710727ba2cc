package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizlr/internal/middleware"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/response"
	"github.com/stemsi/quizlr/internal/scoring"
	"github.com/stemsi/quizlr/internal/service"
	"github.com/stemsi/quizlr/internal/validator"
)

// ScoreHandler exposes scoring strategies over sessions.
type ScoreHandler struct {
	sessionService *service.SessionService
	scoringService *service.ScoringService
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(sessionService *service.SessionService, scoringService *service.ScoringService) *ScoreHandler {
	return &ScoreHandler{sessionService: sessionService, scoringService: scoringService}
}

// ScoreSession godoc
// POST /api/v1/sessions/:session_id/score
// Computes a score with the requested strategy and parameters without
// storing it. Works on sessions in any state.
func (h *ScoreHandler) ScoreSession(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	var req model.ScoreRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	strategy, err := scoring.Parse(req.Strategy, req.Params)
	if err != nil {
		fail(c, err)
		return
	}

	sess, err := h.sessionService.Get(c.Request.Context(), sessionID, middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}

	score, err := h.scoringService.Preview(sess, strategy)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"strategy": strategy.Name(),
		"score":    score,
	})
}

// ListScores godoc
// GET /api/v1/sessions/:session_id/scores
// Returns the scores the worker stored once the session completed.
func (h *ScoreHandler) ListScores(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	if _, err := h.sessionService.Get(c.Request.Context(), sessionID, middleware.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}

	records, err := h.scoringService.List(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"scores": records})
}
