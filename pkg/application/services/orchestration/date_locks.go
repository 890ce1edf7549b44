package orchestration

import (
	"context"
	"sync"
)

// dateLocks serialises reconciliations of the same date within the process
type dateLocks struct {
	mu    sync.Mutex
	dates map[string]chan struct{}
}

func newDateLocks() *dateLocks {
	return &dateLocks{dates: make(map[string]chan struct{})}
}

// lock waits for the date's lock or for ctx to end. The returned func
// releases the lock.
func (l *dateLocks) lock(ctx context.Context, date string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.dates[date]
	if !ok {
		sem = make(chan struct{}, 1)
		l.dates[date] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
