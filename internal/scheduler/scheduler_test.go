package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	applogger "SignalDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRunsJobImmediately(t *testing.T) {
	s := New(applogger.NewNop())
	var runs atomic.Int32
	require.NoError(t, s.Every("tick", time.Hour, func(context.Context) { runs.Add(1) }))

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
}

func TestJobRepeatsAndSurvivesPanics(t *testing.T) {
	s := New(applogger.NewNop())
	var runs atomic.Int32
	require.NoError(t, s.Every("flaky", time.Second, func(context.Context) {
		runs.Add(1)
		panic("tick failed")
	}))

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
}

func TestStopCancelsJobContext(t *testing.T) {
	s := New(applogger.NewNop())
	cancelled := make(chan struct{})
	require.NoError(t, s.Every("long", time.Hour, func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}))

	s.Start(context.Background())
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	select {
	case <-cancelled:
	default:
		t.Fatal("job context was not cancelled")
	}
}

func TestEveryValidation(t *testing.T) {
	s := New(applogger.NewNop())
	assert.Error(t, s.Every("zero", 0, func(context.Context) {}))

	require.NoError(t, s.Every("ok", time.Minute, func(context.Context) {}))
	s.Start(context.Background())
	defer s.Stop(context.Background())
	assert.Error(t, s.Every("late", time.Minute, func(context.Context) {}))
}
