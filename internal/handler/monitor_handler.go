package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizlr/internal/middleware"
	"github.com/stemsi/quizlr/internal/response"
	"github.com/stemsi/quizlr/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow loads from blocking the SSE loop
)

// MonitorHandler streams live progress of a quiz's sessions to its author.
type MonitorHandler struct {
	bus            *service.RedisBus
	quizService    *service.QuizService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler. bus may be nil, in which
// case the stream only carries periodic snapshots.
func NewMonitorHandler(
	bus *service.RedisBus,
	quizService *service.QuizService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		bus:            bus,
		quizService:    quizService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// Snapshot godoc
// GET /api/v1/quizzes/:quiz_id/stats
// Returns one monitor snapshot as plain JSON.
func (h *MonitorHandler) Snapshot(c *gin.Context) {
	quizID, ok := h.authorize(c)
	if !ok {
		return
	}

	snap, err := h.monitorService.Snapshot(c.Request.Context(), quizID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// MonitorQuizSSE godoc
// GET /api/v1/quizzes/:quiz_id/monitor
// Sends a snapshot, then forwards session events as they happen. Snapshots
// are refreshed periodically while events keep arriving.
func (h *MonitorHandler) MonitorQuizSSE(c *gin.Context) {
	quizID, ok := h.authorize(c)
	if !ok {
		return
	}
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx, quizID)

	var events <-chan *redis.Message
	if h.bus != nil {
		pubsub := h.bus.Subscribe(reqCtx, quizID)
		defer pubsub.Close()
		events = pubsub.Channel()
	}

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Without a bus nothing marks the snapshot stale, so refresh every tick.
	dirty := h.bus == nil

	h.log.Info().Str("quiz_id", quizID.String()).Msg("Author attached to live monitor SSE")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("quiz_id", quizID.String()).Msg("Author disconnected from live monitor SSE")
			return

		case msg, ok := <-events:
			if !ok {
				return
			}
			// Forward the published JSON as is
			c.SSEvent("event", json.RawMessage(msg.Payload))
			c.Writer.Flush()
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			h.sendSnapshot(c, reqCtx, quizID)
			dirty = h.bus == nil

		case <-keepAliveTicker.C:
			c.SSEvent("ping", gin.H{"type": "ping"})
			c.Writer.Flush()
		}
	}
}

func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, quizID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snap, err := h.monitorService.Snapshot(ctx, quizID)
	if err != nil {
		h.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Failed to build monitor snapshot")
		return
	}
	c.SSEvent("snapshot", snap)
	c.Writer.Flush()
}

// authorize lets only the quiz's author through.
func (h *MonitorHandler) authorize(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, false
	}

	quizID, ok := paramID(c, "quiz_id")
	if !ok {
		return uuid.Nil, false
	}

	q, err := h.quizService.GetByID(c.Request.Context(), quizID)
	if err != nil {
		fail(c, err)
		return uuid.Nil, false
	}
	if !service.IsAuthor(q, claims.UserID) {
		response.Fail(c, http.StatusForbidden, response.ErrNotQuizAuthor)
		return uuid.Nil, false
	}
	return quizID, true
}
