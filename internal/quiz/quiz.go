// Package quiz holds the immutable Quiz snapshot and the Builder that
// produces it. A built Quiz is never mutated and may be shared freely
// between sessions.
package quiz

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
)

// RecordVersion is the JSON schema version written by MarshalJSON.
const RecordVersion = 1

// ExplanationMode controls when explanations are revealed.
type ExplanationMode string

const (
	ShowNever     ExplanationMode = "NEVER"
	ShowAfterEach ExplanationMode = "AFTER_EACH"
	ShowAtEnd     ExplanationMode = "AT_END"
)

func (m ExplanationMode) valid() bool {
	return m == ShowNever || m == ShowAfterEach || m == ShowAtEnd
}

// Defaults applied by NewBuilder.
const (
	DefaultPassThreshold    = 0.7
	DefaultAllowSkip        = true
	DefaultShowExplanations = ShowAtEnd
)

// DifficultyRange is the lowest and highest question difficulty.
type DifficultyRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Quiz is a frozen, ordered collection of questions plus presentation
// settings. All fields are unexported; accessors return copies.
type Quiz struct {
	id                 uuid.UUID
	title              string
	description        string
	questions          []*question.Question
	index              map[uuid.UUID]int
	passThreshold      float64
	allowSkip          bool
	showExplanations   ExplanationMode
	randomizeQuestions bool
	randomizeAnswers   bool
	tags               []string
	metadata           map[string]any
	createdAt          time.Time
}

func (q *Quiz) ID() uuid.UUID                     { return q.id }
func (q *Quiz) Title() string                     { return q.title }
func (q *Quiz) Description() string               { return q.description }
func (q *Quiz) PassThreshold() float64            { return q.passThreshold }
func (q *Quiz) AllowSkip() bool                   { return q.allowSkip }
func (q *Quiz) ShowExplanations() ExplanationMode { return q.showExplanations }
func (q *Quiz) RandomizeQuestions() bool          { return q.randomizeQuestions }
func (q *Quiz) RandomizeAnswers() bool            { return q.randomizeAnswers }
func (q *Quiz) CreatedAt() time.Time              { return q.createdAt }
func (q *Quiz) Len() int                          { return len(q.questions) }
func (q *Quiz) Tags() []string                    { return slices.Clone(q.tags) }
func (q *Quiz) Metadata() map[string]any          { return maps.Clone(q.metadata) }

// Questions returns deep copies of the questions in quiz order.
func (q *Quiz) Questions() []*question.Question {
	out := make([]*question.Question, len(q.questions))
	for i, qq := range q.questions {
		out[i] = qq.Clone()
	}
	return out
}

// QuestionIDs returns the question ids in quiz order.
func (q *Quiz) QuestionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(q.questions))
	for i, qq := range q.questions {
		ids[i] = qq.ID
	}
	return ids
}

// Question looks up a question by id. The returned value is a copy.
func (q *Quiz) Question(id uuid.UUID) (*question.Question, bool) {
	qq, ok := q.lookup(id)
	if !ok {
		return nil, false
	}
	return qq.Clone(), true
}

// At returns a copy of the i-th question in quiz order.
func (q *Quiz) At(i int) (*question.Question, bool) {
	if i < 0 || i >= len(q.questions) {
		return nil, false
	}
	return q.questions[i].Clone(), true
}

// Contains reports whether id belongs to the quiz.
func (q *Quiz) Contains(id uuid.UUID) bool {
	_, ok := q.index[id]
	return ok
}

// IndexOf returns the quiz-order position of id, or -1.
func (q *Quiz) IndexOf(id uuid.UUID) int {
	if i, ok := q.index[id]; ok {
		return i
	}
	return -1
}

// View calls fn with the stored question without copying it. fn must not
// modify or retain the question.
func (q *Quiz) View(id uuid.UUID, fn func(*question.Question)) bool {
	qq, ok := q.lookup(id)
	if ok {
		fn(qq)
	}
	return ok
}

// Each calls fn for every stored question in quiz order, without copying.
// fn must not modify or retain the question.
func (q *Quiz) Each(fn func(i int, qq *question.Question)) {
	for i, qq := range q.questions {
		fn(i, qq)
	}
}

func (q *Quiz) lookup(id uuid.UUID) (*question.Question, bool) {
	i, ok := q.index[id]
	if !ok {
		return nil, false
	}
	return q.questions[i], true
}

// TopicIDs returns the distinct topic ids in first-seen order.
func (q *Quiz) TopicIDs() []uuid.UUID {
	var out []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, qq := range q.questions {
		if _, ok := seen[qq.TopicID]; ok {
			continue
		}
		seen[qq.TopicID] = struct{}{}
		out = append(out, qq.TopicID)
	}
	return out
}

// DifficultyRange returns the span of question difficulties.
func (q *Quiz) DifficultyRange() DifficultyRange {
	if len(q.questions) == 0 {
		return DifficultyRange{}
	}
	r := DifficultyRange{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, qq := range q.questions {
		r.Min = math.Min(r.Min, qq.Difficulty)
		r.Max = math.Max(r.Max, qq.Difficulty)
	}
	return r
}

// EstimatedDuration sums the question estimates, with a one minute floor.
func (q *Quiz) EstimatedDuration() time.Duration {
	var total int
	for _, qq := range q.questions {
		total += qq.EstimatedTimeSeconds
	}
	d := time.Duration(total) * time.Second
	if d < time.Minute {
		return time.Minute
	}
	return d
}

type record struct {
	Version            int                  `json:"version"`
	ID                 uuid.UUID            `json:"id"`
	Title              string               `json:"title"`
	Description        string               `json:"description,omitempty"`
	Questions          []*question.Question `json:"questions"`
	PassThreshold      float64              `json:"pass_threshold"`
	AllowSkip          bool                 `json:"allow_skip"`
	ShowExplanations   ExplanationMode      `json:"show_explanations"`
	RandomizeQuestions bool                 `json:"randomize_questions"`
	RandomizeAnswers   bool                 `json:"randomize_answers"`
	Tags               []string             `json:"tags"`
	Metadata           map[string]any       `json:"metadata,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

// MarshalJSON writes a versioned quiz record.
func (q *Quiz) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		Version:            RecordVersion,
		ID:                 q.id,
		Title:              q.title,
		Description:        q.description,
		Questions:          q.questions,
		PassThreshold:      q.passThreshold,
		AllowSkip:          q.allowSkip,
		ShowExplanations:   q.showExplanations,
		RandomizeQuestions: q.randomizeQuestions,
		RandomizeAnswers:   q.randomizeAnswers,
		Tags:               q.tags,
		Metadata:           q.metadata,
		CreatedAt:          q.createdAt,
	})
}

// Decode parses a versioned quiz record and re-validates it through the
// builder.
func Decode(b []byte) (*Quiz, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, apperror.New(apperror.ErrCorruptRecord, "decode quiz: %v", err)
	}
	if r.Version != RecordVersion {
		return nil, apperror.New(apperror.ErrUnsupportedVersion, "quiz record version %d", r.Version)
	}
	if r.ShowExplanations == "" {
		r.ShowExplanations = DefaultShowExplanations
	}

	b2 := NewBuilder(r.Title).
		WithID(r.ID).
		Description(r.Description).
		AddQuestions(r.Questions...).
		PassThreshold(r.PassThreshold).
		AllowSkip(r.AllowSkip).
		ShowExplanations(r.ShowExplanations).
		RandomizeQuestions(r.RandomizeQuestions).
		RandomizeAnswers(r.RandomizeAnswers).
		Tag(r.Tags...).
		createdAt(r.CreatedAt)
	for k, v := range r.Metadata {
		b2 = b2.Metadata(k, v)
	}

	q, err := b2.Build()
	if err != nil {
		return nil, fmt.Errorf("rebuild quiz %s: %w", r.ID, err)
	}
	return q, nil
}
