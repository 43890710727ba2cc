package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizlr/internal/middleware"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/response"
	"github.com/stemsi/quizlr/internal/service"
	"github.com/stemsi/quizlr/internal/validator"
)

// QuizHandler handles quiz authoring and browsing endpoints.
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// ListQuizzes godoc
// GET /api/v1/quizzes?tag=&page=&per_page=
// Lists quiz summaries, optionally filtered by tag.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	quizzes, err := h.quizService.List(c.Request.Context(), c.Query("tag"))
	if err != nil {
		fail(c, err)
		return
	}

	total := len(quizzes)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"quizzes": quizzes[start:end]}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	})
}

// GetQuiz godoc
// GET /api/v1/quizzes/:quiz_id
// The author sees the full quiz; everyone else sees the summary and the
// questions without their answer keys.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID, ok := paramID(c, "quiz_id")
	if !ok {
		return
	}

	q, err := h.quizService.GetByID(c.Request.Context(), quizID)
	if err != nil {
		fail(c, err)
		return
	}

	if claims := middleware.GetClaims(c); claims != nil && service.IsAuthor(q, claims.UserID) {
		response.Success(c, http.StatusOK, gin.H{"quiz": q})
		return
	}

	questions := make([]*question.Question, 0, q.Len())
	for _, qq := range q.Questions() {
		questions = append(questions, question.Redact(qq))
	}
	response.Success(c, http.StatusOK, gin.H{
		"quiz":      model.NewQuizSummary(q),
		"questions": questions,
	})
}

// CreateQuiz godoc
// POST /api/v1/quizzes
// Builds and stores a quiz authored by the caller.
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.quizService.Create(c.Request.Context(), &req, claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": q})
}

// GenerateQuiz godoc
// POST /api/v1/quizzes/generate
// Builds a quiz from questions drawn out of the question bank.
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.GenerateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.quizService.Generate(c.Request.Context(), &req, claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": q})
}

// DeleteQuiz godoc
// DELETE /api/v1/quizzes/:quiz_id
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, ok := paramID(c, "quiz_id")
	if !ok {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), quizID, claims.UserID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "quiz deleted"})
}
