package memory

import (
	"context"
	"sync"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

var _ app.Locker = (*Locker)(nil)

// Locker is a process-local keyed mutex. Waiters give up after the acquisition timeout.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[string]*slot)}
}

func (l *Locker) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	sl := l.acquireSlot(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case sl.ch <- struct{}{}:
	case <-timer.C:
		l.releaseSlot(key)
		return nil, domain.ErrLockTimeout
	case <-ctx.Done():
		l.releaseSlot(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.ch
			l.releaseSlot(key)
		})
	}, nil
}

func (l *Locker) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl, ok := l.slots[key]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = sl
	}
	sl.refs++
	return sl
}

func (l *Locker) releaseSlot(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl := l.slots[key]
	sl.refs--
	if sl.refs == 0 {
		delete(l.slots, key)
	}
}
