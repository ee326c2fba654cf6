package log

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	l, err := New("warn")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_BadLevelFallsBackToDebug(t *testing.T) {
	l := Must("loud")
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestEmail_Hashed(t *testing.T) {
	f := Email("severus@hogwarts.com")
	require.Equal(t, "user", f.Key)
	require.NotContains(t, f.String, "hogwarts")
	require.Len(t, f.String, 64)
}
