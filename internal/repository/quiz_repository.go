package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stemsi/quizlr/internal/storage"
)

// QuizRepository persists quizzes as versioned JSON records. Decoded quizzes
// are kept in a registry so every session of a quiz shares one handle.
type QuizRepository struct {
	store    storage.Store
	registry *quiz.Registry
}

// NewQuizRepository creates a new QuizRepository. A nil registry gets a
// private one.
func NewQuizRepository(store storage.Store, registry *quiz.Registry) *QuizRepository {
	if registry == nil {
		registry = quiz.NewRegistry()
	}
	return &QuizRepository{store: store, registry: registry}
}

// Create stores q and registers its handle.
func (r *QuizRepository) Create(ctx context.Context, q *quiz.Quiz) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quiz %s: %w", q.ID(), err)
	}
	if err := r.store.Put(ctx, config.StorageKey.Quiz(q.ID()), raw); err != nil {
		return fmt.Errorf("put quiz %s: %w", q.ID(), err)
	}
	r.registry.Register(q)
	return nil
}

// GetByID returns the shared handle for id, loading it on first use.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*quiz.Quiz, error) {
	if q, ok := r.registry.Get(id); ok {
		return q, nil
	}

	raw, err := r.store.Get(ctx, config.StorageKey.Quiz(id))
	if err != nil {
		return nil, fmt.Errorf("get quiz %s: %w", id, err)
	}
	q, err := quiz.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode quiz %s: %w", id, err)
	}
	if q.ID() != id {
		return nil, apperror.New(apperror.ErrCorruptRecord, "quiz record %s holds quiz %s", id, q.ID())
	}

	r.registry.Register(q)
	return q, nil
}

// List returns every stored quiz ordered by key.
func (r *QuizRepository) List(ctx context.Context) ([]*quiz.Quiz, error) {
	prefix := config.StorageKey.QuizPrefix()
	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	quizzes := make([]*quiz.Quiz, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(key, prefix))
		if err != nil {
			return nil, apperror.New(apperror.ErrCorruptRecord, "quiz key %q", key)
		}
		q, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, nil
}

// Delete removes the quiz record. Sessions are restored through this
// repository, so the quiz's sessions must be removed first.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.Delete(ctx, config.StorageKey.Quiz(id)); err != nil {
		return fmt.Errorf("delete quiz %s: %w", id, err)
	}
	r.registry.Remove(id)
	return nil
}
