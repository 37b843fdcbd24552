package logger

import (
	"testing"

	"tranche-calculator-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "console debug", level: "debug", format: "console", wantLevel: zapcore.DebugLevel},
		{name: "json warn", level: "warn", format: "json", wantLevel: zapcore.WarnLevel},
		{name: "unknown level", level: "loud", format: "json", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log, err := NewLogger(tc.level, tc.format)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tc.wantLevel))
			assert.False(t, log.Core().Enabled(tc.wantLevel-1))
		})
	}
}

func TestFromConfig(t *testing.T) {
	log, err := FromConfig(config.Logger{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
