package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tt := []struct {
		value    string
		expected zapcore.Level
		invalid  bool
	}{
		{value: "debug", expected: zapcore.DebugLevel},
		{value: "INFO", expected: zapcore.InfoLevel},
		{value: "", expected: zapcore.InfoLevel},
		{value: " warning ", expected: zapcore.WarnLevel},
		{value: "error", expected: zapcore.ErrorLevel},
		{value: "verbose", expected: zapcore.InfoLevel, invalid: true},
	}
	for _, tc := range tt {
		t.Run(tc.value, func(t *testing.T) {
			actual, err := ParseLevel(tc.value)
			if tc.invalid {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestNew(t *testing.T) {
	log, err := New(WarnLevel, false)
	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Desugar().Core().Enabled(zapcore.WarnLevel))

	log, err = New(DebugLevel, true)
	require.NoError(t, err)
	assert.True(t, log.Desugar().Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud", false)
	assert.Error(t, err)
}
