package config_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("ALLOW_RESUBMISSION", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := config.Load()
	assert.Equal(t, config.BackendPostgres, cfg.StorageBackend)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.True(t, cfg.AllowResubmission)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 120, cfg.RateLimitPerMinute, "invalid numbers fall back")
}

func TestStorageKeys(t *testing.T) {
	quizID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	sessionID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	user := uuid.NullUUID{UUID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Valid: true}

	assert.Equal(t, "quizzes/11111111-1111-1111-1111-111111111111", config.StorageKey.Quiz(quizID))
	assert.Equal(t, "sessions/anonymous/22222222-2222-2222-2222-222222222222",
		config.StorageKey.Session(uuid.NullUUID{}, sessionID))
	assert.Equal(t, "sessions/33333333-3333-3333-3333-333333333333/", config.StorageKey.UserSessionPrefix(user))
	assert.Equal(t, "scores/22222222-2222-2222-2222-222222222222/adaptive", config.StorageKey.Score(sessionID, "adaptive"))

	assert.Equal(t, "session-index/22222222-2222-2222-2222-222222222222", config.StorageKey.SessionIndex(sessionID))
	assert.Equal(t, "quiz-sessions/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222",
		config.StorageKey.QuizSession(quizID, sessionID))

	got, err := config.StorageKey.SessionIDFromKey(config.StorageKey.Session(user, sessionID))
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)
}
