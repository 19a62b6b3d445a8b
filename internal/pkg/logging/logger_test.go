package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "logs", "cart.log")

	// Act
	logger, err := NewLogger(Options{Service: "cart-service", Env: "test", Level: "debug", File: path})
	require.NoError(t, err)
	WithTrace(logger, "", SystemSpanID).Debug("booted")
	_ = logger.Sync()

	// Assert
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"msg":"booted"`)
	assert.Contains(t, line, `"service":"cart-service"`)
	assert.Contains(t, line, `"trace_id":"unknown"`)
	assert.Contains(t, line, `"span_id":"system"`)
	assert.Contains(t, line, `"level":"debug"`)
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger(Options{Level: "loud"})
	assert.Error(t, err)
	assert.Panics(t, func() { MustNewLogger(Options{Level: "loud"}) })
}
