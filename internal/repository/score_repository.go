package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/storage"
)

// ScoreRepository persists one record per (session, strategy).
type ScoreRepository struct {
	store storage.Store
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(store storage.Store) *ScoreRepository {
	return &ScoreRepository{store: store}
}

// Save writes rec, replacing an earlier score of the same strategy.
func (r *ScoreRepository) Save(ctx context.Context, rec *model.ScoreRecord) error {
	rec.Version = model.ScoreRecordVersion
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode score %s/%s: %w", rec.SessionID, rec.Strategy, err)
	}
	if err := r.store.Put(ctx, config.StorageKey.Score(rec.SessionID, rec.Strategy), raw); err != nil {
		return fmt.Errorf("put score %s/%s: %w", rec.SessionID, rec.Strategy, err)
	}
	return nil
}

// Get returns one strategy's score of a session.
func (r *ScoreRepository) Get(ctx context.Context, sessionID uuid.UUID, strategy string) (*model.ScoreRecord, error) {
	return r.load(ctx, config.StorageKey.Score(sessionID, strategy))
}

// ListBySession returns every score of a session ordered by strategy name.
func (r *ScoreRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ScoreRecord, error) {
	keys, err := r.store.List(ctx, config.StorageKey.ScorePrefix(sessionID))
	if err != nil {
		return nil, fmt.Errorf("list scores of %s: %w", sessionID, err)
	}

	records := make([]model.ScoreRecord, 0, len(keys))
	for _, key := range keys {
		rec, err := r.load(ctx, key)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// DeleteBySession removes every score of a session.
func (r *ScoreRepository) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	keys, err := r.store.List(ctx, config.StorageKey.ScorePrefix(sessionID))
	if err != nil {
		return fmt.Errorf("list scores of %s: %w", sessionID, err)
	}
	for _, key := range keys {
		if err := r.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete score %s: %w", key, err)
		}
	}
	return nil
}

func (r *ScoreRepository) load(ctx context.Context, key string) (*model.ScoreRecord, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get score %s: %w", key, err)
	}

	var rec model.ScoreRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperror.New(apperror.ErrCorruptRecord, "score record %s: %v", key, err)
	}
	if rec.Version != model.ScoreRecordVersion {
		return nil, apperror.New(apperror.ErrUnsupportedVersion, "score record %s has version %d", key, rec.Version)
	}
	return &rec, nil
}
