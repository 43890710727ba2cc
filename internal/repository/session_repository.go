package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/session"
	"github.com/stemsi/quizlr/internal/storage"
)

// SessionRepository persists sessions under their user and keeps two
// indexes: session id → record key, and quiz → sessions.
type SessionRepository struct {
	store   storage.Store
	quizzes *QuizRepository
	opts    []session.Option
}

// NewSessionRepository creates a new SessionRepository. opts are applied to
// every decoded session (clock, random source).
func NewSessionRepository(store storage.Store, quizzes *QuizRepository, opts ...session.Option) *SessionRepository {
	return &SessionRepository{store: store, quizzes: quizzes, opts: opts}
}

// Create stores a new session and its index entries.
func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	key := config.StorageKey.Session(s.UserID(), s.ID())
	if err := r.put(ctx, key, s); err != nil {
		return err
	}
	if err := r.store.Put(ctx, config.StorageKey.SessionIndex(s.ID()), []byte(key)); err != nil {
		return fmt.Errorf("index session %s: %w", s.ID(), err)
	}
	if err := r.store.Put(ctx, config.StorageKey.QuizSession(s.QuizID(), s.ID()), []byte(key)); err != nil {
		return fmt.Errorf("index session %s under quiz: %w", s.ID(), err)
	}
	return nil
}

// Update overwrites the record of an existing session.
func (r *SessionRepository) Update(ctx context.Context, s *session.Session) error {
	return r.put(ctx, config.StorageKey.Session(s.UserID(), s.ID()), s)
}

func (r *SessionRepository) put(ctx context.Context, key string, s *session.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID(), err)
	}
	if err := r.store.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("put session %s: %w", s.ID(), err)
	}
	return nil
}

// GetByID loads a session by id regardless of its user.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	key, err := r.store.Get(ctx, config.StorageKey.SessionIndex(id))
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return r.load(ctx, string(key))
}

// ListByUser returns the sessions of one user, or of anonymous learners
// when userID is not valid.
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.NullUUID) ([]*session.Session, error) {
	keys, err := r.store.List(ctx, config.StorageKey.UserSessionPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	sessions := make([]*session.Session, 0, len(keys))
	for _, key := range keys {
		s, err := r.load(ctx, key)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// ListByQuiz returns every session of a quiz. Index entries whose record
// is gone are skipped.
func (r *SessionRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]*session.Session, error) {
	keys, err := r.store.List(ctx, config.StorageKey.QuizSessionPrefix(quizID))
	if err != nil {
		return nil, fmt.Errorf("list quiz sessions: %w", err)
	}

	sessions := make([]*session.Session, 0, len(keys))
	for _, indexKey := range keys {
		key, err := r.store.Get(ctx, indexKey)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read index %s: %w", indexKey, err)
		}
		s, err := r.load(ctx, string(key))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Delete removes a session record and its index entries.
func (r *SessionRepository) Delete(ctx context.Context, s *session.Session) error {
	if err := r.store.Delete(ctx, config.StorageKey.Session(s.UserID(), s.ID())); err != nil {
		return fmt.Errorf("delete session %s: %w", s.ID(), err)
	}
	for _, key := range []string{
		config.StorageKey.SessionIndex(s.ID()),
		config.StorageKey.QuizSession(s.QuizID(), s.ID()),
	} {
		if err := r.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete index %s: %w", key, err)
		}
	}
	return nil
}

func (r *SessionRepository) load(ctx context.Context, key string) (*session.Session, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get session record %s: %w", key, err)
	}

	var head struct {
		QuizID uuid.UUID `json:"quiz_id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, apperror.New(apperror.ErrCorruptRecord, "session record %s: %v", key, err)
	}

	q, err := r.quizzes.GetByID(ctx, head.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz of session %s: %w", key, err)
	}
	s, err := session.Decode(raw, q, r.opts...)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return s, nil
}
