package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		env      string
		level    string
		expected zapcore.Level
	}{
		{env: "development", level: "debug", expected: zapcore.DebugLevel},
		{env: "production", level: "warn", expected: zapcore.WarnLevel},
		{env: "production", level: "", expected: zapcore.InfoLevel},
		{env: "development", level: "error", expected: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			log, err := New(tt.env, tt.level)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.expected))
			if tt.expected > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.expected-1))
			}
			assert.Same(t, log, zap.L())
		})
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "ow***@example.com", MaskEmail("owner@example.com"))
	assert.Equal(t, "***@example.com", MaskEmail("ab@example.com"))
	assert.Equal(t, "***", MaskEmail("nobody"))
}
