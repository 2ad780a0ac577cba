package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := New()
	err := s.AddJob("not a cron expression", JobFunc{JobName: "x", Fn: func() error { return nil }})
	assert.Error(t, err)
}

func TestScheduledJobRuns(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NoError(t, s.AddJob("@every 1s", JobFunc{JobName: "tick", Fn: func() error {
		runs.Add(1)
		return errors.New("failures are logged, not fatal")
	}}))

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestNextIsUTCMidnightPlusFive(t *testing.T) {
	s := New()
	require.NoError(t, s.AddJob("5 0 * * *", JobFunc{JobName: "eod", Fn: func() error { return nil }}))
	s.Start()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool {
		n := s.Next()
		return len(n) == 1 && !n[0].IsZero()
	}, time.Second, 5*time.Millisecond)

	next := s.Next()[0].UTC()
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 5, next.Minute())
}

func TestRunNow(t *testing.T) {
	called := false
	err := New().RunNow(JobFunc{JobName: "now", Fn: func() error { called = true; return nil }})
	require.NoError(t, err)
	assert.True(t, called)
}
