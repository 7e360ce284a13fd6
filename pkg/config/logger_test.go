package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_DefaultLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	logger, err := NewLogger()
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewLogger_DebugLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	logger, err := NewLogger()
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	_, err := NewLogger()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
