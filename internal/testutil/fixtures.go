// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stretchr/testify/require"
)

// Topic is the topic id used by every fixture question.
var Topic = uuid.MustParse("6f1d2c3b-4a59-4e68-9a7b-8c9d0e1f2a3b")

// Epoch is the fixed creation time of fixture questions.
var Epoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// TrueFalse returns a true/false question with the given answer key.
func TrueFalse(t *testing.T, correct bool, difficulty float64, opts ...question.Option) *question.Question {
	t.Helper()
	q, err := question.New(question.TrueFalse{
		Statement:     "Go has goroutines",
		CorrectAnswer: correct,
		Explanation:   "Goroutines are part of the language",
	}, Topic, difficulty, append([]question.Option{question.WithTimestamp(Epoch)}, opts...)...)
	require.NoError(t, err)
	return q
}

// MultipleChoice returns a four-option question whose correct index is correct.
func MultipleChoice(t *testing.T, correct int, difficulty float64, opts ...question.Option) *question.Question {
	t.Helper()
	q, err := question.New(question.MultipleChoice{
		Prompt:       "Which keyword starts a goroutine?",
		Options:      []string{"go", "async", "spawn", "thread"},
		CorrectIndex: correct,
	}, Topic, difficulty, append([]question.Option{question.WithTimestamp(Epoch)}, opts...)...)
	require.NoError(t, err)
	return q
}

// AllKinds returns one valid question per kind, in question.Kinds order.
func AllKinds(t *testing.T) []*question.Question {
	t.Helper()
	variants := []question.Variant{
		question.TrueFalse{Statement: "Channels can be closed", CorrectAnswer: true},
		question.MultipleChoice{
			Prompt:       "Zero value of a map?",
			Options:      []string{"empty map", "nil", "panic"},
			CorrectIndex: 1,
		},
		question.MultiSelect{
			Prompt:         "Reference types?",
			Options:        []string{"slice", "int", "map", "struct"},
			CorrectIndices: []int{0, 2},
		},
		question.FillInTheBlank{
			Template:       "The {} statement defers a call until the {} returns.",
			CorrectAnswers: []string{"defer", "function"},
		},
		question.MatchPairs{
			Instruction:  "Match the package to its purpose",
			LeftItems:    []string{"fmt", "sync", "io"},
			RightItems:   []string{"locks", "streams", "formatting"},
			CorrectPairs: []question.Pair{{Left: 0, Right: 2}, {Left: 1, Right: 0}, {Left: 2, Right: 1}},
		},
		question.InteractiveInterview{
			Topic:           "interfaces",
			InitialQuestion: "How are interfaces satisfied in Go?",
			FollowUpRules: []question.FollowUpRule{
				{Condition: "mentions implements", FollowUpQuestion: "Is there an implements keyword?", Weight: 0.5},
			},
			ComprehensionThreshold: 0.6,
		},
		question.TopicExplanation{
			Topic:        "escape analysis",
			Prompt:       "Explain escape analysis",
			KeyConcepts:  []string{"heap", "stack", "pointer"},
			MinWordCount: 5,
		},
	}

	qs := make([]*question.Question, 0, len(variants))
	for i, v := range variants {
		q, err := question.New(v, Topic, float64(i)/float64(len(variants)), question.WithTimestamp(Epoch))
		require.NoError(t, err)
		qs = append(qs, q)
	}
	return qs
}

// Quiz builds a quiz from qs with the builder defaults, then applies
// configure (which may be nil).
func Quiz(t *testing.T, configure func(*quiz.Builder) *quiz.Builder, qs ...*question.Question) *quiz.Quiz {
	t.Helper()
	b := quiz.NewBuilder("Go fundamentals").AddQuestions(qs...)
	if configure != nil {
		b = configure(b)
	}
	q, err := b.Build()
	require.NoError(t, err)
	return q
}

// Clock is a manually advanced clock.
type Clock struct {
	Current time.Time
}

// NewClock starts a clock at Epoch.
func NewClock() *Clock {
	return &Clock{Current: Epoch}
}

// Now implements session.Clock.
func (c *Clock) Now() time.Time { return c.Current }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }

// ReversePerm is a deterministic random source returning reversed order.
type ReversePerm struct{}

// Perm implements session.RandSource.
func (ReversePerm) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = n - 1 - i
	}
	return p
}
