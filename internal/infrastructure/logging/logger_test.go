//go:build !integration

package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, ParseLevel(" warning "))
	require.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	require.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "housebalance.log")
	logger := New(Config{Level: "info", Format: "console", File: path, MaxSizeMB: 1})

	logger.Debug("hidden")
	logger.Info("withdrawal completed", zap.String("withdrawal_id", "wd_1"))
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), `"withdrawal_id":"wd_1"`)
	require.Contains(t, string(content), `"service":"housebalance"`)
	require.NotContains(t, string(content), "hidden")
}
