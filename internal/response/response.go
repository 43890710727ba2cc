package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizlr/internal/apperror"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Data       any         `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody carries a machine readable code. Engine errors bring their own
// message; everything else uses the catalog in errors.go.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination describes one page of a quiz listing.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Metadata ties a response to its request.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Data: data, Metadata: metadata(c)})
}

func SuccessWithPagination(c *gin.Context, statusCode int, data any, pagination *Pagination) {
	c.JSON(statusCode, Response{Data: data, Pagination: pagination, Metadata: metadata(c)})
}

// Fail answers with a catalog error.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, failure(c, code, GetMessage(code), nil))
}

// FailWithFields answers with a catalog error and per-field binding messages.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	c.JSON(statusCode, failure(c, code, GetMessage(code), fields))
}

// AbortFail is Fail for middleware; later handlers do not run.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, failure(c, code, GetMessage(code), nil))
}

// StatusOf maps an engine error to an HTTP status. ok is false when err
// carries no engine error.
func StatusOf(err error) (status int, ok bool) {
	switch apperror.CodeOf(err) {
	case "":
		return 0, false
	case apperror.CodeNotFound:
		return http.StatusNotFound, true
	case apperror.CodeUnknownQuestion, apperror.CodeNavigationOutOfRange:
		return http.StatusBadRequest, true
	case apperror.CodeCorruptRecord, apperror.CodeUnsupportedVersion:
		return http.StatusInternalServerError, true
	}

	switch apperror.CategoryOf(err) {
	case apperror.CategorySession:
		return http.StatusConflict, true
	case apperror.CategoryValidation, apperror.CategoryBuild, apperror.CategoryScoring:
		return http.StatusUnprocessableEntity, true
	}
	return http.StatusInternalServerError, true
}

// FromError answers with an engine error's own code and message. It
// reports false, writing nothing, when err is not an engine error.
// Storage integrity failures are reported as ErrInternal.
func FromError(c *gin.Context, err error) bool {
	status, ok := StatusOf(err)
	if !ok {
		return false
	}
	if status == http.StatusInternalServerError {
		Fail(c, status, ErrInternal)
		return true
	}

	code := ErrCode(apperror.CodeOf(err))
	message := GetMessage(code)
	var e *apperror.Error
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	c.JSON(status, failure(c, code, message, nil))
	return true
}

func failure(c *gin.Context, code ErrCode, message string, fields map[string]string) Response {
	return Response{
		Error:    &ErrorBody{Code: code, Message: message, Fields: fields},
		Metadata: metadata(c),
	}
}

func metadata(c *gin.Context) Metadata {
	return Metadata{
		RequestID: RequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
