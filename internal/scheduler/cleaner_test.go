package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRemover struct {
	calls atomic.Int64
	err   error
}

func (r *countingRemover) DeleteExpired(context.Context) (int64, error) {
	r.calls.Add(1)
	return 1, r.err
}

func TestCleanerRunsUntilCancelled(t *testing.T) {
	remover := &countingRemover{}
	cleaner := NewRoomCleaner(remover, 5*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return remover.calls.Load() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop after cancel")
	}
}

func TestCleanerKeepsRunningAfterFailure(t *testing.T) {
	remover := &countingRemover{err: errors.New("connection reset")}
	cleaner := NewRoomCleaner(remover, 5*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleaner.Run(ctx)

	assert.Eventually(t, func() bool {
		return remover.calls.Load() >= 2
	}, time.Second, time.Millisecond)
}

func TestCleanerWaitsForInitialDelay(t *testing.T) {
	remover := &countingRemover{}
	cleaner := NewRoomCleaner(remover, time.Millisecond, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	cleaner.Run(ctx)

	assert.Zero(t, remover.calls.Load())
}
