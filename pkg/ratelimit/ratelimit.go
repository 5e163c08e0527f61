package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Lock spaces out calls so that at least the configured wait elapses between
// the end of one call and the start of the next.
type Lock interface {
	Lock(ctx context.Context) func()
}

type lock struct {
	wait time.Duration
	lck  sync.Mutex
	last time.Time
}

func New(wait time.Duration) Lock {
	return &lock{
		wait: wait,
	}
}

func (l *lock) Lock(ctx context.Context) func() {
	l.lck.Lock()
	elapsed := time.Since(l.last)
	if elapsed < l.wait {
		t := time.NewTimer(l.wait - elapsed)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return func() {
		l.last = time.Now()
		l.lck.Unlock()
	}
}
