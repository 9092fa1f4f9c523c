package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(time.Second)
	l.SetClock(func() time.Time { return now })

	require.True(t, l.Allow("p1"))
	require.False(t, l.Allow("p1"))
	require.Equal(t, 2, l.Attempts("p1"))

	// Different key has its own window.
	require.True(t, l.Allow("p2"))

	now = now.Add(999 * time.Millisecond)
	require.False(t, l.Allow("p1"))

	now = now.Add(time.Millisecond)
	require.True(t, l.Allow("p1"))
	require.Equal(t, 1, l.Attempts("p1"))
}

func TestLimiterZeroInterval(t *testing.T) {
	l := New(0)
	require.True(t, l.Allow("p1"))
	require.True(t, l.Allow("p1"))
}
