// Package apperror defines the typed error taxonomy shared by the quiz engine.
//
// Every engine error is an *Error carrying a Category (which family of
// operation failed) and a Code (what exactly went wrong). Sentinels exist for
// every code so callers can match with errors.Is regardless of the message.
package apperror

import (
	"errors"
	"fmt"
)

// Category groups error codes by the operation family that produced them.
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategorySession    Category = "SESSION"
	CategoryBuild      Category = "BUILD"
	CategoryScoring    Category = "SCORING"
	CategoryStorage    Category = "STORAGE"
)

// Code identifies a specific failure.
type Code string

const (
	// ─── Validation ────────────────────────────────────────────────────
	CodeAnswerTypeMismatch Code = "ANSWER_TYPE_MISMATCH"
	CodeIndexOutOfBounds   Code = "INDEX_OUT_OF_BOUNDS"
	CodeEmptySelection     Code = "EMPTY_SELECTION"
	CodeBlankCountMismatch Code = "BLANK_COUNT_MISMATCH"
	CodeEmptyResponse      Code = "EMPTY_RESPONSE"
	CodeInvalidEvaluation  Code = "INVALID_EVALUATION"
	CodeInvalidQuestion    Code = "INVALID_QUESTION"
	CodeInvalidTiming      Code = "INVALID_TIMING"

	// ─── Session ───────────────────────────────────────────────────────
	CodeInvalidState         Code = "INVALID_STATE"
	CodeUnknownQuestion      Code = "UNKNOWN_QUESTION"
	CodeDuplicateAnswer      Code = "DUPLICATE_ANSWER"
	CodeIncompleteQuiz       Code = "INCOMPLETE_QUIZ"
	CodeSkipNotAllowed       Code = "SKIP_NOT_ALLOWED"
	CodeNavigationOutOfRange Code = "NAVIGATION_OUT_OF_RANGE"
	CodeQuizMismatch         Code = "QUIZ_MISMATCH"
	CodeQuizInUse            Code = "QUIZ_IN_USE"

	// ─── Build ─────────────────────────────────────────────────────────
	CodeEmptyQuiz         Code = "EMPTY_QUIZ"
	CodeInvalidThreshold  Code = "INVALID_THRESHOLD"
	CodeDuplicateQuestion Code = "DUPLICATE_QUESTION"
	CodeMissingTitle      Code = "MISSING_TITLE"
	CodeInvalidSetting    Code = "INVALID_SETTING"

	// ─── Scoring ───────────────────────────────────────────────────────
	CodeInvalidStrategy Code = "INVALID_STRATEGY"
	CodeUnknownStrategy Code = "UNKNOWN_STRATEGY"

	// ─── Storage ───────────────────────────────────────────────────────
	CodeUnsupportedVersion Code = "UNSUPPORTED_VERSION"
	CodeCorruptRecord      Code = "CORRUPT_RECORD"
	CodeNotFound           Code = "NOT_FOUND"
)

// Error is the concrete error type returned by every engine operation.
type Error struct {
	Category Category
	Code     Code
	Message  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Category, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Category, e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code, so a wrapped
// error matches its sentinel regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func sentinel(cat Category, code Code) *Error {
	return &Error{Category: cat, Code: code}
}

// Sentinels, one per code.
var (
	ErrAnswerTypeMismatch = sentinel(CategoryValidation, CodeAnswerTypeMismatch)
	ErrIndexOutOfBounds   = sentinel(CategoryValidation, CodeIndexOutOfBounds)
	ErrEmptySelection     = sentinel(CategoryValidation, CodeEmptySelection)
	ErrBlankCountMismatch = sentinel(CategoryValidation, CodeBlankCountMismatch)
	ErrEmptyResponse      = sentinel(CategoryValidation, CodeEmptyResponse)
	ErrInvalidEvaluation  = sentinel(CategoryValidation, CodeInvalidEvaluation)
	ErrInvalidQuestion    = sentinel(CategoryValidation, CodeInvalidQuestion)
	ErrInvalidTiming      = sentinel(CategoryValidation, CodeInvalidTiming)

	ErrInvalidState         = sentinel(CategorySession, CodeInvalidState)
	ErrUnknownQuestion      = sentinel(CategorySession, CodeUnknownQuestion)
	ErrDuplicateAnswer      = sentinel(CategorySession, CodeDuplicateAnswer)
	ErrIncompleteQuiz       = sentinel(CategorySession, CodeIncompleteQuiz)
	ErrSkipNotAllowed       = sentinel(CategorySession, CodeSkipNotAllowed)
	ErrNavigationOutOfRange = sentinel(CategorySession, CodeNavigationOutOfRange)
	ErrQuizMismatch         = sentinel(CategorySession, CodeQuizMismatch)
	ErrQuizInUse            = sentinel(CategorySession, CodeQuizInUse)

	ErrEmptyQuiz         = sentinel(CategoryBuild, CodeEmptyQuiz)
	ErrInvalidThreshold  = sentinel(CategoryBuild, CodeInvalidThreshold)
	ErrDuplicateQuestion = sentinel(CategoryBuild, CodeDuplicateQuestion)
	ErrMissingTitle      = sentinel(CategoryBuild, CodeMissingTitle)
	ErrInvalidSetting    = sentinel(CategoryBuild, CodeInvalidSetting)

	ErrInvalidStrategy = sentinel(CategoryScoring, CodeInvalidStrategy)
	ErrUnknownStrategy = sentinel(CategoryScoring, CodeUnknownStrategy)

	ErrUnsupportedVersion = sentinel(CategoryStorage, CodeUnsupportedVersion)
	ErrCorruptRecord      = sentinel(CategoryStorage, CodeCorruptRecord)
	ErrNotFound           = sentinel(CategoryStorage, CodeNotFound)
)

// New returns a fresh error with the sentinel's category and code and a
// formatted message.
func New(kind *Error, format string, args ...any) *Error {
	return &Error{
		Category: kind.Category,
		Code:     kind.Code,
		Message:  fmt.Sprintf(format, args...),
	}
}

// CategoryOf returns the category of the first *Error in err's chain, or ""
// when err is not an engine error.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
