package desktop

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// maxConcurrentNotifiers bounds terminal-notifier processes in flight, so a
// burst of pushes cannot fork an unbounded number of them.
const maxConcurrentNotifiers = 2

// procPool limits concurrent process launches using a weighted semaphore.
type procPool struct {
	sem *semaphore.Weighted
}

func newProcPool(limit int) *procPool {
	if limit < 1 {
		limit = 1
	}
	return &procPool{sem: semaphore.NewWeighted(int64(limit))}
}

// run acquires a slot, runs fn, and releases the slot. It returns ctx.Err()
// if ctx ends while waiting. A nil pool runs fn directly.
func (p *procPool) run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
