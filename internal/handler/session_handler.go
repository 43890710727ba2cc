package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/middleware"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/response"
	"github.com/stemsi/quizlr/internal/service"
	"github.com/stemsi/quizlr/internal/session"
	"github.com/stemsi/quizlr/internal/validator"
)

// SessionHandler handles the learner side of a quiz: sessions, answers and
// navigation. Every route runs behind OptionalJWT; anonymous sessions are
// reachable by anyone holding their id.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// CreateSession godoc
// POST /api/v1/quizzes/:quiz_id/sessions
// Opens a NOT_STARTED session for the caller (or an anonymous learner).
func (h *SessionHandler) CreateSession(c *gin.Context) {
	quizID, ok := paramID(c, "quiz_id")
	if !ok {
		return
	}

	sess, err := h.sessionService.Create(c.Request.Context(), quizID, middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": model.NewSessionView(sess)})
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	sess, err := h.sessionService.Get(c.Request.Context(), sessionID, middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": model.NewSessionView(sess)})
}

// ListMySessions godoc
// GET /api/v1/me/sessions
func (h *SessionHandler) ListMySessions(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if !user.Valid {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessions, err := h.sessionService.ListMine(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}

	views := make([]model.SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, model.NewSessionView(s))
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": views})
}

type transition func(ctx context.Context, id uuid.UUID, actor uuid.NullUUID) (*session.Session, error)

func (h *SessionHandler) apply(c *gin.Context, op transition) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	sess, err := op(c.Request.Context(), sessionID, middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": model.NewSessionView(sess)})
}

// StartSession godoc
// POST /api/v1/sessions/:session_id/start
func (h *SessionHandler) StartSession(c *gin.Context) { h.apply(c, h.sessionService.Start) }

// PauseSession godoc
// POST /api/v1/sessions/:session_id/pause
func (h *SessionHandler) PauseSession(c *gin.Context) { h.apply(c, h.sessionService.Pause) }

// ResumeSession godoc
// POST /api/v1/sessions/:session_id/resume
func (h *SessionHandler) ResumeSession(c *gin.Context) { h.apply(c, h.sessionService.Resume) }

// AbandonSession godoc
// POST /api/v1/sessions/:session_id/abandon
func (h *SessionHandler) AbandonSession(c *gin.Context) { h.apply(c, h.sessionService.Abandon) }

// CompleteSession godoc
// POST /api/v1/sessions/:session_id/complete
// Completes the session and returns its result summary. Scores are
// computed in the background.
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	summary, err := h.sessionService.Complete(c.Request.Context(), sessionID, middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:session_id/answers
// Option indices in the answer refer to the order the learner was shown.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	timeTaken, err := reportedTime(req.TimeTakenSeconds)
	if err != nil {
		fail(c, err)
		return
	}

	resp, err := h.sessionService.SubmitAnswer(c.Request.Context(), sessionID, middleware.CurrentUser(c),
		req.QuestionID, req.Answer.Answer, timeTaken)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"response": model.NewResponseView(resp)})
}

// SkipQuestion godoc
// POST /api/v1/sessions/:session_id/skip
func (h *SessionHandler) SkipQuestion(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	var req model.SkipQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessionService.Skip(c.Request.Context(), sessionID, middleware.CurrentUser(c), req.QuestionID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": model.NewSessionView(sess)})
}

// CurrentQuestion godoc
// GET /api/v1/sessions/:session_id/current
func (h *SessionHandler) CurrentQuestion(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	view, err := h.sessionService.Current(c.Request.Context(), sessionID, middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": view})
}

// NextQuestion godoc
// POST /api/v1/sessions/:session_id/next
func (h *SessionHandler) NextQuestion(c *gin.Context) { h.navigate(c, service.MoveNext, 0) }

// PreviousQuestion godoc
// POST /api/v1/sessions/:session_id/previous
func (h *SessionHandler) PreviousQuestion(c *gin.Context) { h.navigate(c, service.MovePrevious, 0) }

// GotoQuestion godoc
// POST /api/v1/sessions/:session_id/goto
func (h *SessionHandler) GotoQuestion(c *gin.Context) {
	var req model.GotoRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.navigate(c, "", *req.Position)
}

func (h *SessionHandler) navigate(c *gin.Context, move string, position int) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	view, err := h.sessionService.Navigate(c.Request.Context(), sessionID, middleware.CurrentUser(c), move, position)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": view})
}
