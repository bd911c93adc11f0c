package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(max int, period time.Duration) (*Limiter, *time.Time) {
	l := New(max, period)
	now := time.Now()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowWithinBudget(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	defer l.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Allow("10.0.0.1"))
	}
	require.ErrorIs(t, l.Allow("10.0.0.1"), ErrLimited)
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	defer l.Close()

	require.NoError(t, l.Allow("10.0.0.1"))
	require.ErrorIs(t, l.Allow("10.0.0.1"), ErrLimited)
	require.NoError(t, l.Allow("10.0.0.2"))
}

func TestWindowResets(t *testing.T) {
	l, now := newTestLimiter(2, time.Minute)
	defer l.Close()

	require.NoError(t, l.Allow("ip"))
	require.NoError(t, l.Allow("ip"))
	require.ErrorIs(t, l.Allow("ip"), ErrLimited)

	*now = now.Add(time.Minute)
	require.NoError(t, l.Allow("ip"), "elapsed window must reset the counter")
	require.NoError(t, l.Allow("ip"))
	require.ErrorIs(t, l.Allow("ip"), ErrLimited)
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	defer l.Close()

	require.NoError(t, l.Allow("ip"))
	require.ErrorIs(t, l.Allow("ip"), ErrLimited)

	l.Reset("ip")
	require.NoError(t, l.Allow("ip"))
}

func TestSweepEvictsExpiredWindows(t *testing.T) {
	l := New(5, 10*time.Millisecond)
	defer l.Close()

	require.NoError(t, l.Allow("a"))
	require.NoError(t, l.Allow("b"))
	require.Equal(t, 2, l.size())

	require.Eventually(t, func() bool {
		return l.size() == 0
	}, time.Second, 5*time.Millisecond, "sweeper should evict expired entries")
}

func TestCloseIsIdempotent(t *testing.T) {
	l := New(1, time.Minute)
	l.Close()
	l.Close()
}
