package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDraftCleanup struct {
	calls int32
}

func (f *fakeDraftCleanup) CleanupExpired(ctx context.Context, retention time.Duration) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	return 0, nil
}

func TestScheduler_RunsImmediatelyOnStart(t *testing.T) {
	runStore := &fakeRunStore{}
	runner := New(runStore)
	drafts := &fakeDraftCleanup{}
	s := NewScheduler(runner, drafts, nil, nil, Intervals{DraftCleanup: time.Hour})

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&drafts.calls) >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_StopHaltsFurtherRuns(t *testing.T) {
	runStore := &fakeRunStore{}
	runner := New(runStore)
	drafts := &fakeDraftCleanup{}
	s := NewScheduler(runner, drafts, nil, nil, Intervals{DraftCleanup: 20 * time.Millisecond})

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&drafts.calls) >= 1
	}, time.Second, 10*time.Millisecond)

	s.Stop()
	countAtStop := atomic.LoadInt32(&drafts.calls)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, countAtStop, atomic.LoadInt32(&drafts.calls))
}
