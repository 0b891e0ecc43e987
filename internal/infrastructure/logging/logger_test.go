package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantDebug bool
	}{
		{"debug json", "debug", "json", true},
		{"info console", "info", "console", false},
		{"invalid level falls back to info", "loud", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebug, logger.Core().Enabled(zap.DebugLevel))
			assert.True(t, logger.Core().Enabled(zap.InfoLevel))
		})
	}
}

func TestNew_WritesExtraOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.log")

	logger, err := New("info", "json", path)
	require.NoError(t, err)

	logger.Info("Valid coupon extracted: WELCOME25 -> Nykaa")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"message":"Valid coupon extracted: WELCOME25 -> Nykaa"`))
}

func TestNewTo_OnlyNamedSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.log")

	logger, err := NewTo("warn", "console", " "+path+" ")
	require.NoError(t, err)

	logger.Info("dropped below level")
	logger.Warn("artifacts directory not found")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "dropped below level"))
	assert.True(t, strings.Contains(string(data), "artifacts directory not found"))
}
