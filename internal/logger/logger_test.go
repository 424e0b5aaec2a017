package logger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/conciliador/internal/logger"
)

func TestNewWithWriter_Level(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewWithWriter(buf, "warn")

	log.Info().Msg("hidden")
	log.Warn().Str("run_id", "r1").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, `"run_id":"r1"`)
}

func TestNewWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	log := logger.NewWithWriter(&bytes.Buffer{}, "loud")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf, "info"))

	log := logger.FromContext(ctx)
	log.Info().Msg("from context")

	assert.Contains(t, buf.String(), "from context")
}

func TestFromContext_Missing(t *testing.T) {
	log := logger.FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
