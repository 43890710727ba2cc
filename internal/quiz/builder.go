package quiz

import (
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/question"
)

// Builder accumulates quiz settings. Setters never fail; every check runs
// in Build. A Builder is not safe for concurrent use.
type Builder struct {
	id                 uuid.UUID
	title              string
	description        string
	questions          []*question.Question
	passThreshold      float64
	allowSkip          bool
	showExplanations   ExplanationMode
	randomizeQuestions bool
	randomizeAnswers   bool
	tags               []string
	metadata           map[string]any
	created            time.Time
}

// NewBuilder starts a quiz with the default settings.
func NewBuilder(title string) *Builder {
	return &Builder{
		title:            title,
		passThreshold:    DefaultPassThreshold,
		allowSkip:        DefaultAllowSkip,
		showExplanations: DefaultShowExplanations,
	}
}

func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

func (b *Builder) Description(d string) *Builder {
	b.description = d
	return b
}

func (b *Builder) AddQuestion(q *question.Question) *Builder {
	b.questions = append(b.questions, q)
	return b
}

func (b *Builder) AddQuestions(qs ...*question.Question) *Builder {
	b.questions = append(b.questions, qs...)
	return b
}

// PassThreshold sets the minimum score to pass. Values outside [0,1] are
// kept as given and rejected by Build.
func (b *Builder) PassThreshold(t float64) *Builder {
	b.passThreshold = t
	return b
}

func (b *Builder) AllowSkip(allow bool) *Builder {
	b.allowSkip = allow
	return b
}

func (b *Builder) ShowExplanations(m ExplanationMode) *Builder {
	b.showExplanations = m
	return b
}

func (b *Builder) RandomizeQuestions(on bool) *Builder {
	b.randomizeQuestions = on
	return b
}

func (b *Builder) RandomizeAnswers(on bool) *Builder {
	b.randomizeAnswers = on
	return b
}

// Tag adds tags; duplicates are dropped.
func (b *Builder) Tag(tags ...string) *Builder {
	for _, t := range tags {
		if t != "" && !slices.Contains(b.tags, t) {
			b.tags = append(b.tags, t)
		}
	}
	return b
}

func (b *Builder) Metadata(key string, value any) *Builder {
	if b.metadata == nil {
		b.metadata = make(map[string]any)
	}
	b.metadata[key] = value
	return b
}

func (b *Builder) createdAt(t time.Time) *Builder {
	b.created = t
	return b
}

// Build validates the accumulated settings and returns a frozen Quiz. The
// questions are deep-copied; later changes to the originals do not leak in.
func (b *Builder) Build() (*Quiz, error) {
	if strings.TrimSpace(b.title) == "" {
		return nil, apperror.New(apperror.ErrMissingTitle, "quiz title is empty")
	}
	if len(b.questions) == 0 {
		return nil, apperror.New(apperror.ErrEmptyQuiz, "quiz %q has no questions", b.title)
	}
	if math.IsNaN(b.passThreshold) || b.passThreshold < 0 || b.passThreshold > 1 {
		return nil, apperror.New(apperror.ErrInvalidThreshold, "pass threshold %v outside [0,1]", b.passThreshold)
	}
	if !b.showExplanations.valid() {
		return nil, apperror.New(apperror.ErrInvalidSetting, "unknown explanation mode %q", b.showExplanations)
	}

	questions := make([]*question.Question, 0, len(b.questions))
	index := make(map[uuid.UUID]int, len(b.questions))
	for i, q := range b.questions {
		if err := q.Validate(); err != nil {
			return nil, apperror.New(apperror.ErrInvalidQuestion, "question %d: %v", i, err)
		}
		if _, dup := index[q.ID]; dup {
			return nil, apperror.New(apperror.ErrDuplicateQuestion, "question %s added twice", q.ID)
		}
		index[q.ID] = i
		questions = append(questions, q.Clone())
	}

	id := b.id
	if id == uuid.Nil {
		id = uuid.New()
	}
	created := b.created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	return &Quiz{
		id:                 id,
		title:              b.title,
		description:        b.description,
		questions:          questions,
		index:              index,
		passThreshold:      b.passThreshold,
		allowSkip:          b.allowSkip,
		showExplanations:   b.showExplanations,
		randomizeQuestions: b.randomizeQuestions,
		randomizeAnswers:   b.randomizeAnswers,
		tags:               slices.Clone(b.tags),
		metadata:           maps.Clone(b.metadata),
		createdAt:          created,
	}, nil
}
