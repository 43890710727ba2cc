package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
)

// CreateQuizRequest is the payload for authoring a new quiz.
type CreateQuizRequest struct {
	Title              string              `json:"title" binding:"required,min=1,max=255"`
	Description        string              `json:"description" binding:"omitempty,max=4000"`
	Questions          []question.Question `json:"questions" binding:"required,min=1,max=500"`
	PassThreshold      *float64            `json:"pass_threshold" binding:"omitempty,gte=0,lte=1"`
	AllowSkip          *bool               `json:"allow_skip"`
	ShowExplanations   string              `json:"show_explanations" binding:"omitempty,oneof=NEVER AFTER_EACH AT_END"`
	RandomizeQuestions bool                `json:"randomize_questions"`
	RandomizeAnswers   bool                `json:"randomize_answers"`
	Tags               []string            `json:"tags" binding:"omitempty,max=32,dive,min=1,max=64"`
	Metadata           map[string]any      `json:"metadata"`
}

// QuizSummary is the list view of a quiz, without its questions.
type QuizSummary struct {
	ID                       uuid.UUID            `json:"id"`
	Title                    string               `json:"title"`
	Description              string               `json:"description"`
	QuestionCount            int                  `json:"question_count"`
	PassThreshold            float64              `json:"pass_threshold"`
	AllowSkip                bool                 `json:"allow_skip"`
	ShowExplanations         quiz.ExplanationMode `json:"show_explanations"`
	RandomizeQuestions       bool                 `json:"randomize_questions"`
	RandomizeAnswers         bool                 `json:"randomize_answers"`
	Tags                     []string             `json:"tags"`
	TopicIDs                 []uuid.UUID          `json:"topic_ids"`
	DifficultyRange          quiz.DifficultyRange `json:"difficulty_range"`
	EstimatedDurationMinutes int                  `json:"estimated_duration_minutes"`
	CreatedAt                time.Time            `json:"created_at"`
}

// NewQuizSummary projects q into its list view.
func NewQuizSummary(q *quiz.Quiz) QuizSummary {
	return QuizSummary{
		ID:                       q.ID(),
		Title:                    q.Title(),
		Description:              q.Description(),
		QuestionCount:            q.Len(),
		PassThreshold:            q.PassThreshold(),
		AllowSkip:                q.AllowSkip(),
		ShowExplanations:         q.ShowExplanations(),
		RandomizeQuestions:       q.RandomizeQuestions(),
		RandomizeAnswers:         q.RandomizeAnswers(),
		Tags:                     q.Tags(),
		TopicIDs:                 q.TopicIDs(),
		DifficultyRange:          q.DifficultyRange(),
		EstimatedDurationMinutes: int(q.EstimatedDuration() / time.Minute),
		CreatedAt:                q.CreatedAt(),
	}
}

// GenerateQuizRequest builds a quiz from questions drawn out of the bank.
type GenerateQuizRequest struct {
	Title         string          `json:"title" binding:"required,min=1,max=255"`
	TopicID       uuid.UUID       `json:"topic_id"`
	Kinds         []question.Kind `json:"kinds" binding:"omitempty,dive,oneof=TRUE_FALSE MULTIPLE_CHOICE MULTI_SELECT FILL_IN_THE_BLANK MATCH_PAIRS INTERACTIVE_INTERVIEW TOPIC_EXPLANATION"`
	Count         int             `json:"count" binding:"required,min=1,max=100"`
	MinDifficulty float64         `json:"min_difficulty" binding:"gte=0,lte=1"`
	MaxDifficulty float64         `json:"max_difficulty" binding:"omitempty,gte=0,lte=1,gtefield=MinDifficulty"`
	Tags          []string        `json:"tags" binding:"omitempty,max=16"`
	PassThreshold *float64        `json:"pass_threshold" binding:"omitempty,gte=0,lte=1"`
	AllowSkip     *bool           `json:"allow_skip"`
	Randomize     bool            `json:"randomize"`
}
