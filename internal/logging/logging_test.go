package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New("debug", "console")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New("WARN", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", "console")
	assert.EqualError(t, err, `invalid log level "loud"`)

	_, err = New("info", "xml")
	assert.EqualError(t, err, `invalid log format "xml" (expected console or json)`)
}

func TestOr(t *testing.T) {
	assert.NotNil(t, Or(nil))
	logger := Nop()
	assert.Same(t, logger, Or(logger))
	Sync(nil)
	Sync(logger)
}
