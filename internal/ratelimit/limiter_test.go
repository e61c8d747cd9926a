package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacer_FirstWaitIsImmediate(t *testing.T) {
	t.Parallel()

	p := New(time.Hour)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_SpacesSubsequentWaits(t *testing.T) {
	t.Parallel()

	interval := 50 * time.Millisecond
	p := New(interval)

	require.NoError(t, p.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), interval/2)
}

func TestPacer_NonPositiveIntervalDisablesPacing(t *testing.T) {
	t.Parallel()

	p := New(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	require.Less(t, time.Since(start), time.Second)
}

func TestPacer_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	p := New(time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, p.Wait(ctx))
}
