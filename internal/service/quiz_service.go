package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/evaluation"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stemsi/quizlr/internal/repository"
)

// MetadataAuthor is the quiz metadata key holding the author's user id.
const MetadataAuthor = "author_id"

// ErrNotQuizAuthor is returned when someone other than the author changes
// a quiz.
var ErrNotQuizAuthor = errors.New("not the author of this quiz")

// ErrGenerationDisabled is returned by Generate without a generator.
var ErrGenerationDisabled = errors.New("question generation is not configured")

// batchGenerator is implemented by generators that can draw distinct
// questions in one call.
type batchGenerator interface {
	Generate(ctx context.Context, p evaluation.Params, n int) ([]*question.Question, error)
}

// QuizService handles quiz authoring.
type QuizService struct {
	quizRepo    *repository.QuizRepository
	sessionRepo *repository.SessionRepository
	scoreRepo   *repository.ScoreRepository
	generator   evaluation.Generator
}

// NewQuizService creates a new QuizService. generator may be nil, which
// disables Generate.
func NewQuizService(
	quizRepo *repository.QuizRepository,
	sessionRepo *repository.SessionRepository,
	scoreRepo *repository.ScoreRepository,
	generator evaluation.Generator,
) *QuizService {
	return &QuizService{
		quizRepo:    quizRepo,
		sessionRepo: sessionRepo,
		scoreRepo:   scoreRepo,
		generator:   generator,
	}
}

// Create builds and stores a quiz from req.
func (s *QuizService) Create(ctx context.Context, req *model.CreateQuizRequest, author uuid.UUID) (*quiz.Quiz, error) {
	now := time.Now().UTC()
	qs := make([]*question.Question, len(req.Questions))
	for i := range req.Questions {
		q := &req.Questions[i]
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		if q.EstimatedTimeSeconds == 0 {
			q.EstimatedTimeSeconds = question.DefaultEstimatedTimeSeconds
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt, q.UpdatedAt = now, now
		}
		qs[i] = q
	}

	b := quiz.NewBuilder(req.Title).
		Description(req.Description).
		AddQuestions(qs...).
		RandomizeQuestions(req.RandomizeQuestions).
		RandomizeAnswers(req.RandomizeAnswers).
		Tag(req.Tags...)
	if req.PassThreshold != nil {
		b.PassThreshold(*req.PassThreshold)
	}
	if req.AllowSkip != nil {
		b.AllowSkip(*req.AllowSkip)
	}
	if req.ShowExplanations != "" {
		b.ShowExplanations(quiz.ExplanationMode(req.ShowExplanations))
	}
	for k, v := range req.Metadata {
		b.Metadata(k, v)
	}
	b.Metadata(MetadataAuthor, author.String())

	return s.build(ctx, b)
}

// Generate draws questions from the bank and stores them as a new quiz.
func (s *QuizService) Generate(ctx context.Context, req *model.GenerateQuizRequest, author uuid.UUID) (*quiz.Quiz, error) {
	if s.generator == nil {
		return nil, ErrGenerationDisabled
	}
	p := evaluation.Params{
		TopicID:       req.TopicID,
		Kinds:         req.Kinds,
		MinDifficulty: req.MinDifficulty,
		MaxDifficulty: req.MaxDifficulty,
		Tags:          req.Tags,
	}

	var qs []*question.Question
	if bg, ok := s.generator.(batchGenerator); ok {
		var err error
		if qs, err = bg.Generate(ctx, p, req.Count); err != nil {
			return nil, fmt.Errorf("generate questions: %w", err)
		}
	} else {
		for range req.Count {
			q, err := s.generator.GenerateQuestion(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("generate question: %w", err)
			}
			qs = append(qs, q)
		}
	}
	if len(qs) == 0 {
		return nil, evaluation.ErrNoCandidates
	}

	b := quiz.NewBuilder(req.Title).
		AddQuestions(qs...).
		RandomizeQuestions(req.Randomize).
		RandomizeAnswers(req.Randomize).
		Metadata(MetadataAuthor, author.String()).
		Metadata("generated", true)
	if req.PassThreshold != nil {
		b.PassThreshold(*req.PassThreshold)
	}
	if req.AllowSkip != nil {
		b.AllowSkip(*req.AllowSkip)
	}
	return s.build(ctx, b)
}

func (s *QuizService) build(ctx context.Context, b *quiz.Builder) (*quiz.Quiz, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := s.quizRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return q, nil
}

// GetByID retrieves a quiz by ID.
func (s *QuizService) GetByID(ctx context.Context, id uuid.UUID) (*quiz.Quiz, error) {
	return s.quizRepo.GetByID(ctx, id)
}

// List returns the summaries of every quiz, optionally filtered by tag.
func (s *QuizService) List(ctx context.Context, tag string) ([]model.QuizSummary, error) {
	quizzes, err := s.quizRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		if tag != "" && !slices.Contains(q.Tags(), tag) {
			continue
		}
		out = append(out, model.NewQuizSummary(q))
	}
	return out, nil
}

// Delete removes a quiz together with its finished sessions and their
// scores. Only its author may do so. A quiz with a session that can still
// change is refused with QUIZ_IN_USE.
func (s *QuizService) Delete(ctx context.Context, id, actor uuid.UUID) error {
	q, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !IsAuthor(q, actor) {
		return ErrNotQuizAuthor
	}

	sessions, err := s.sessionRepo.ListByQuiz(ctx, id)
	if err != nil {
		return fmt.Errorf("list sessions of quiz %s: %w", id, err)
	}
	live := 0
	for _, sess := range sessions {
		if !sess.State().Terminal() {
			live++
		}
	}
	if live > 0 {
		return apperror.New(apperror.ErrQuizInUse, "quiz %s has %d active session(s)", id, live)
	}

	for _, sess := range sessions {
		if err := s.scoreRepo.DeleteBySession(ctx, sess.ID()); err != nil {
			return fmt.Errorf("delete scores: %w", err)
		}
		if err := s.sessionRepo.Delete(ctx, sess); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return s.quizRepo.Delete(ctx, id)
}

// IsAuthor reports whether actor authored q.
func IsAuthor(q *quiz.Quiz, actor uuid.UUID) bool {
	author, _ := q.Metadata()[MetadataAuthor].(string)
	return author != "" && author == actor.String()
}
