package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// Locker hands out per-account exclusive locks. Acquisition is bounded by a
// timeout, after which wallet.ErrConcurrentModification is returned.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	timeout time.Duration
}

func NewLocker(timeout time.Duration) *Locker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &Locker{entries: make(map[string]*lockEntry), timeout: timeout}
}

func (l *Locker) acquireEntry(id string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	return e
}

func (l *Locker) releaseEntry(id string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

// Lock blocks until the account lock is held, the timeout elapses or ctx is
// done. The returned func releases the lock and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, accountID string) (func(), error) {
	e := l.acquireEntry(accountID)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
	case <-timer.C:
		l.releaseEntry(accountID, e)
		return nil, wallet.ErrConcurrentModification
	case <-ctx.Done():
		l.releaseEntry(accountID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.releaseEntry(accountID, e)
		})
	}, nil
}
