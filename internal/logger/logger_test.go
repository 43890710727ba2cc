package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizlr/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "warn", "json")

	log.Info().Msg("dropped")
	log.Warn().Str("quiz_id", "q1").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "q1", entry["quiz_id"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "caller")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "loud", "json")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "debug", "pretty")
	log.Debug().Msg("session started")

	assert.Contains(t, buf.String(), "session started")
	assert.False(t, json.Valid(buf.Bytes()))
}
