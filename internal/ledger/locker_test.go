package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_ExclusivePerAccount(t *testing.T) {
	l := NewLocker(time.Second)
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)

	// other accounts are independent
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()

	acquired := make(chan struct{})
	go func() {
		unlock, err := l.Lock(ctx, "a")
		if err == nil {
			unlock()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(30 * time.Millisecond):
	}

	unlockA()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestLocker_Timeout(t *testing.T) {
	l := NewLocker(10 * time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(ctx, "a")
	require.ErrorIs(t, err, wallet.ErrConcurrentModification)
}

func TestLocker_ContextCancelled(t *testing.T) {
	l := NewLocker(time.Second)
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocker_ReleasesEntries(t *testing.T) {
	l := NewLocker(time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "a")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			unlock()
			unlock() // second call is a no-op
		}()
	}
	wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.entries)
}
