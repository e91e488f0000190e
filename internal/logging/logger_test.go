package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		"json info":      {level: "info", format: FormatJSON, wantLevel: zapcore.InfoLevel},
		"console debug":  {level: "debug", format: FormatConsole, wantLevel: zapcore.DebugLevel},
		"default format": {level: "warn", format: "", wantLevel: zapcore.WarnLevel},
		"upper case":     {level: "ERROR", format: FormatJSON, wantLevel: zapcore.ErrorLevel},
		"bad level":      {level: "loud", format: FormatJSON, wantErr: true},
		"bad format":     {level: "info", format: "xml", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
		})
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, OrNop(nil))
	l := Nop()
	assert.Same(t, l, OrNop(l))
}
