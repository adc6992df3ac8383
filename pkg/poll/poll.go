// Package poll runs cancellable fixed-interval polling tasks. Transfer
// status is a derived, time-varying function of chain state, so the
// consuming layer re-polls until a terminal status instead of awaiting
// long-running phase transitions synchronously. Every task carries a stop
// handle so teardown cannot leak a timer against a stale signer.
package poll

import (
	"context"
	"sync"
	"time"
)

// Func is one poll iteration. Returning true marks the task finished
// (terminal status reached); the task then stops on its own.
type Func func(ctx context.Context) bool

type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start runs fn immediately and then once per interval until fn reports
// terminal, Stop is called, or ctx is cancelled.
func Start(ctx context.Context, interval time.Duration, fn Func) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		if fn(ctx) {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if fn(ctx) {
					return
				}
			}
		}
	}()
	return t
}

// Stop cancels the task. Safe to call more than once and after completion.
func (t *Task) Stop() {
	t.once.Do(t.cancel)
}

// Done is closed once the task has fully stopped.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
