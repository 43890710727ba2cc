package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/middleware"
	"github.com/stemsi/quizlr/internal/response"
	"github.com/stemsi/quizlr/internal/service"
	ws "github.com/stemsi/quizlr/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler runs live quiz sessions over WebSocket.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/sessions/:session_id?token=...
// Answers, skips and navigation for one session over a single connection.
func (h *WSHandler) SessionStream(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	actor := middleware.CurrentUser(c)

	// Reject before upgrading so the client gets a proper HTTP status.
	if _, err := h.sessionService.Get(c.Request.Context(), sessionID, actor); err != nil {
		fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()
	wsLog.Info().Msg("Learner connected")

	ctx := c.Request.Context()
	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		reply, err := h.dispatch(ctx, sessionID, actor, &msg)
		if err != nil {
			code, text := wsError(err)
			if code == string(response.ErrInternal) {
				wsLog.Error().Err(err).Str("action", string(msg.Action)).Msg("Action failed")
			}
			if err := ws.WriteError(conn, code, text); err != nil {
				return
			}
			continue
		}
		if err := ws.WriteTyped(conn, reply); err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
			return
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, id uuid.UUID, actor uuid.NullUUID, msg *ws.RequestPayload) (any, error) {
	switch msg.Action {
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}, nil

	case ws.ActionAnswer:
		timeTaken, err := reportedTime(msg.TimeTakenSeconds)
		if err != nil {
			return nil, err
		}
		resp, err := h.sessionService.SubmitAnswer(ctx, id, actor, msg.QuestionID, msg.Answer.Answer, timeTaken)
		if err != nil {
			return nil, err
		}
		sess, err := h.sessionService.Get(ctx, id, actor)
		if err != nil {
			return nil, err
		}
		return ws.AnsweredResponse{
			Event:      ws.EventAnswered,
			QuestionID: resp.QuestionID,
			IsCorrect:  resp.IsCorrect,
			Attempts:   resp.Attempts,
			Progress:   sess.Progress(),
		}, nil

	case ws.ActionSkip:
		if _, err := h.sessionService.Skip(ctx, id, actor, msg.QuestionID); err != nil {
			return nil, err
		}
		return ws.SkippedResponse{Event: ws.EventSkipped, QuestionID: msg.QuestionID}, nil

	case ws.ActionCurrent:
		view, err := h.sessionService.Current(ctx, id, actor)
		if err != nil {
			return nil, err
		}
		return ws.QuestionResponse{Event: ws.EventQuestion, Question: view}, nil

	case ws.ActionNext, ws.ActionPrevious:
		move := service.MoveNext
		if msg.Action == ws.ActionPrevious {
			move = service.MovePrevious
		}
		view, err := h.sessionService.Navigate(ctx, id, actor, move, 0)
		if err != nil {
			return nil, err
		}
		return ws.QuestionResponse{Event: ws.EventQuestion, Question: view}, nil

	case ws.ActionComplete:
		summary, err := h.sessionService.Complete(ctx, id, actor)
		if err != nil {
			return nil, err
		}
		return ws.CompletedResponse{Event: ws.EventCompleted, Summary: summary}, nil
	}
	return nil, errUnknownAction
}

var errUnknownAction = errors.New("unknown action")

// wsError picks the code and message sent to the client for err.
func wsError(err error) (code, message string) {
	switch {
	case errors.Is(err, errUnknownAction):
		return string(response.ErrInvalidPayload), err.Error()
	case errors.Is(err, service.ErrNotSessionOwner):
		return string(response.ErrNotSessionOwner), response.GetMessage(response.ErrNotSessionOwner)
	}
	var e *apperror.Error
	if errors.As(err, &e) && e.Category != apperror.CategoryStorage {
		return string(e.Code), e.Message
	}
	return string(response.ErrInternal), response.GetMessage(response.ErrInternal)
}
