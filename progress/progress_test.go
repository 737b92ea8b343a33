package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	tracker := &Progress{}
	tracker.Update(Delta{Total: 3, Pending: 3})
	tracker.Update(Delta{Running: 1, Pending: -1})
	tracker.Update(Delta{Completed: 1, Running: -1})
	tracker.Update(Delta{Skipped: 1, Pending: -1})
	tracker.Update(Delta{Failed: 1, Pending: -1})

	snapshot := tracker.Snapshot()
	assert.EqualValues(t, 3, snapshot.TotalSteps)
	assert.EqualValues(t, 1, snapshot.CompletedSteps)
	assert.EqualValues(t, 1, snapshot.SkippedSteps)
	assert.EqualValues(t, 1, snapshot.FailedSteps)
	assert.EqualValues(t, 0, snapshot.RunningSteps)
	assert.EqualValues(t, 0, snapshot.PendingSteps)
}

func TestProgress_ConcurrentUpdates(t *testing.T) {
	tracker := &Progress{}
	tracker.Update(Delta{Total: 64, Pending: 64})

	var waitGroup sync.WaitGroup
	for i := 0; i < 64; i++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			tracker.Update(Delta{Running: 1, Pending: -1})
			_ = tracker.Snapshot()
			tracker.Update(Delta{Completed: 1, Running: -1})
		}()
	}
	waitGroup.Wait()

	snapshot := tracker.Snapshot()
	assert.EqualValues(t, 64, snapshot.TotalSteps)
	assert.EqualValues(t, 64, snapshot.CompletedSteps)
	assert.EqualValues(t, 0, snapshot.RunningSteps)
	assert.EqualValues(t, 0, snapshot.PendingSteps)
}

func TestProgress_OnChange(t *testing.T) {
	var seen []Snapshot
	tracker := &Progress{}
	tracker.OnChange(func(snapshot Snapshot) {
		seen = append(seen, snapshot)
	})
	tracker.Update(Delta{Total: 2, Pending: 2})
	tracker.Update(Delta{Running: 1, Pending: -1})

	if assert.EqualValues(t, 2, len(seen)) {
		assert.EqualValues(t, 2, seen[0].TotalSteps)
		assert.EqualValues(t, 2, seen[0].PendingSteps)
		assert.EqualValues(t, 1, seen[1].RunningSteps)
		assert.EqualValues(t, 1, seen[1].PendingSteps)
	}
}

func TestContextHelpers(t *testing.T) {
	_, ok := GetSnapshot(context.Background())
	assert.False(t, ok)
	UpdateCtx(context.Background(), Delta{Total: 1}) // no tracker, no-op

	ctx, tracker := WithNewTracker(context.Background(), "run-1", "demo", nil)
	assert.NotNil(t, tracker)

	UpdateCtx(ctx, Delta{Total: 2, Pending: 2})
	snapshot, ok := GetSnapshot(ctx)
	assert.True(t, ok)
	assert.EqualValues(t, "run-1", snapshot.RunID)
	assert.EqualValues(t, "demo", snapshot.Workflow)
	assert.EqualValues(t, 2, snapshot.TotalSteps)

	extracted, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, tracker, extracted)
}

func TestProgress_NilSafe(t *testing.T) {
	var tracker *Progress
	tracker.Update(Delta{Total: 1})
	tracker.OnChange(func(Snapshot) {})
	assert.EqualValues(t, Snapshot{}, tracker.Snapshot())
}
