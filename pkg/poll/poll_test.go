package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestStopsOnTerminal(t *testing.T) {
	var calls int32
	task := Start(context.Background(), time.Millisecond, func(ctx context.Context) bool {
		return atomic.AddInt32(&calls, 1) >= 3
	})

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop after terminal result")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("poll calls = %d, want 3", got)
	}
}

func TestStopCancels(t *testing.T) {
	task := Start(context.Background(), time.Millisecond, func(ctx context.Context) bool {
		return false
	})
	task.Stop()
	task.Stop() // idempotent

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop after Stop()")
	}
}

func TestContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := Start(ctx, time.Millisecond, func(ctx context.Context) bool {
		return false
	})
	cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop after context cancel")
	}
}
