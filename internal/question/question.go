// Package question models quiz questions, their answers and answer
// validation. Everything here is pure: no I/O, no clocks unless injected.
package question

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/validator"
)

// DefaultEstimatedTimeSeconds is the time budget given to a new question.
const DefaultEstimatedTimeSeconds = 60

// Citation points at the source backing a question.
type Citation struct {
	ID         uuid.UUID `json:"id"`
	Source     string    `json:"source" validate:"required"`
	URL        string    `json:"url,omitempty" validate:"omitempty,url"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Confidence float64   `json:"confidence" validate:"gte=0,lte=1"`
}

// Question is a single assessable item.
type Question struct {
	ID                   uuid.UUID      `json:"id"`
	Variant              Variant        `json:"-"`
	TopicID              uuid.UUID      `json:"topic_id"`
	Difficulty           float64        `json:"difficulty" validate:"gte=0,lte=1"`
	EstimatedTimeSeconds int            `json:"estimated_time_seconds" validate:"gte=0"`
	Tags                 []string       `json:"tags"`
	Citations            []Citation     `json:"citations" validate:"dive"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Option customizes a question built by New.
type Option func(*Question)

// WithID fixes the question id instead of generating one.
func WithID(id uuid.UUID) Option { return func(q *Question) { q.ID = id } }

// WithEstimatedTime sets the expected answer time in seconds.
func WithEstimatedTime(seconds int) Option {
	return func(q *Question) { q.EstimatedTimeSeconds = seconds }
}

// WithTags adds tags; duplicates are dropped.
func WithTags(tags ...string) Option {
	return func(q *Question) { q.Tags = appendTags(q.Tags, tags...) }
}

// WithCitations appends citations in order.
func WithCitations(c ...Citation) Option {
	return func(q *Question) { q.Citations = append(q.Citations, c...) }
}

// WithMetadata sets a single metadata entry.
func WithMetadata(key string, value any) Option {
	return func(q *Question) {
		if q.Metadata == nil {
			q.Metadata = make(map[string]any)
		}
		q.Metadata[key] = value
	}
}

// WithTimestamp sets both CreatedAt and UpdatedAt.
func WithTimestamp(t time.Time) Option {
	return func(q *Question) {
		q.CreatedAt = t
		q.UpdatedAt = t
	}
}

// New builds and validates a question. Invalid shapes are refused with an
// INVALID_QUESTION validation error.
func New(v Variant, topicID uuid.UUID, difficulty float64, opts ...Option) (*Question, error) {
	now := time.Now().UTC()
	q := &Question{
		ID:                   uuid.New(),
		Variant:              v,
		TopicID:              topicID,
		Difficulty:           difficulty,
		EstimatedTimeSeconds: DefaultEstimatedTimeSeconds,
		Tags:                 []string{},
		Citations:            []Citation{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for _, o := range opts {
		o(q)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// MustNew is New that panics on invalid input. Intended for fixtures and
// statically known content.
func MustNew(v Variant, topicID uuid.UUID, difficulty float64, opts ...Option) *Question {
	q, err := New(v, topicID, difficulty, opts...)
	if err != nil {
		panic(err)
	}
	return q
}

// Validate checks field ranges and the variant's structural invariants.
func (q *Question) Validate() error {
	if q == nil {
		return apperror.New(apperror.ErrInvalidQuestion, "question is nil")
	}
	if q.Variant == nil {
		return apperror.New(apperror.ErrInvalidQuestion, "question %s has no variant", q.ID)
	}
	switch q.Variant.(type) {
	case TrueFalse, MultipleChoice, MultiSelect, FillInTheBlank, MatchPairs, InteractiveInterview, TopicExplanation:
	default:
		// Answer validation and the codec switch on value types.
		return apperror.New(apperror.ErrInvalidQuestion, "question %s: variant %T must be a value, not a pointer", q.ID, q.Variant)
	}
	if q.ID == uuid.Nil {
		return apperror.New(apperror.ErrInvalidQuestion, "question id is empty")
	}
	if err := validator.Struct(q); err != nil {
		return apperror.New(apperror.ErrInvalidQuestion, "question %s: %s", q.ID, validator.Summary(err))
	}
	return q.Variant.validate()
}

// Kind returns the variant kind, or "" when the variant is missing.
func (q *Question) Kind() Kind {
	if q == nil || q.Variant == nil {
		return ""
	}
	return q.Variant.Kind()
}

// Explanation returns the author's explanation; free-text kinds have none.
func (q *Question) Explanation() string {
	if q == nil || q.Variant == nil {
		return ""
	}
	return q.Variant.explanation()
}

// HasTag reports whether the question carries tag.
func (q *Question) HasTag(tag string) bool {
	return slices.Contains(q.Tags, tag)
}

// Clone returns a deep copy. Metadata values are copied shallowly.
func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}
	c := *q
	if q.Variant != nil {
		c.Variant = q.Variant.clone()
	}
	c.Tags = slices.Clone(q.Tags)
	c.Citations = slices.Clone(q.Citations)
	c.Metadata = maps.Clone(q.Metadata)
	return &c
}

func appendTags(dst []string, tags ...string) []string {
	for _, t := range tags {
		if t == "" || slices.Contains(dst, t) {
			continue
		}
		dst = append(dst, t)
	}
	return dst
}
