package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/dbx"
	"github.com/dmitrijs2005/dualwallet/internal/repositories/repomanager"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	db, err := dbx.Open(ctx, repomanager.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos, err := repomanager.NewRepositoryManager(repomanager.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, repos.RunMigrations(ctx, db.DB))

	return NewSQLStore(db, repos, WithLockTimeout(10*time.Second), WithClock(func() time.Time { return testNow }))
}

func newMemoryStore(t *testing.T) Store {
	t.Helper()
	return NewMemoryStore(WithLockTimeout(10*time.Second), WithClock(func() time.Time { return testNow }))
}

func record(id string, kind wallet.Kind, token wallet.Token, amount wallet.Amount) *wallet.Record {
	return &wallet.Record{
		ID:        id,
		Kind:      kind,
		Token:     token,
		Amount:    amount,
		Timestamp: testNow,
		Status:    wallet.StatusCompleted,
		Metadata:  map[string]string{"note": id},
	}
}

// runStoreSuite checks the Store contract against any implementation.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("unknown account reads as zero", func(t *testing.T) {
		s := newStore(t)
		b, err := s.Balances(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Equal(t, wallet.Balances{}, b)

		recs, err := s.Records(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("ensure account is idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a1, err := s.EnsureAccount(ctx, "acc")
		require.NoError(t, err)
		_, err = s.ApplyDelta(ctx, "acc", wallet.Utility, wallet.Tokens(5))
		require.NoError(t, err)
		a2, err := s.EnsureAccount(ctx, "acc")
		require.NoError(t, err)
		assert.Equal(t, a1.ID, a2.ID)
		assert.Equal(t, wallet.Tokens(5), a2.Balances.Utility)
	})

	t.Run("apply delta rejects overdraft without mutation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.ApplyDelta(ctx, "acc", wallet.Governance, wallet.Tokens(10))
		require.NoError(t, err)

		_, err = s.ApplyDelta(ctx, "acc", wallet.Governance, -wallet.Tokens(11))
		require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

		g, err := s.GetBalance(ctx, "acc", wallet.Governance)
		require.NoError(t, err)
		assert.Equal(t, wallet.Tokens(10), g)
	})

	t.Run("commit moves both balances and appends one record", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.ApplyDelta(ctx, "acc", wallet.Governance, wallet.Tokens(100))
		require.NoError(t, err)

		rec := record("swap-1", wallet.KindSwap, wallet.Governance, -wallet.Tokens(100))
		b, err := s.Commit(ctx, "acc", []Delta{
			{Token: wallet.Governance, Amount: -wallet.Tokens(100)},
			{Token: wallet.Utility, Amount: wallet.Tokens(1000)},
		}, rec)
		require.NoError(t, err)
		assert.Equal(t, wallet.Balances{Utility: wallet.Tokens(1000)}, b)

		recs, err := s.Records(ctx, "acc")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "swap-1", recs[0].ID)
		assert.Equal(t, "acc", recs[0].AccountID)
		assert.Equal(t, "swap-1", recs[0].Meta("note"))
		assert.True(t, recs[0].Timestamp.Equal(testNow))

		got, err := s.Record(ctx, "acc", "swap-1")
		require.NoError(t, err)
		assert.Equal(t, wallet.KindSwap, got.Kind)
	})

	t.Run("failed commit leaves no trace", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.ApplyDelta(ctx, "acc", wallet.Utility, wallet.Tokens(50))
		require.NoError(t, err)

		rec := record("stake-1", wallet.KindStake, wallet.Governance, -wallet.Tokens(1))
		_, err = s.Commit(ctx, "acc", []Delta{
			{Token: wallet.Utility, Amount: -wallet.Tokens(10)},
			{Token: wallet.Governance, Amount: -wallet.Tokens(1)},
		}, rec)
		require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

		b, err := s.Balances(ctx, "acc")
		require.NoError(t, err)
		assert.Equal(t, wallet.Balances{Utility: wallet.Tokens(50)}, b)
		recs, err := s.Records(ctx, "acc")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("commit rejects foreign record", func(t *testing.T) {
		s := newStore(t)
		rec := record("r", wallet.KindEarn, wallet.Utility, 1)
		rec.AccountID = "other"
		_, err := s.Commit(context.Background(), "acc", []Delta{{Token: wallet.Utility, Amount: 1}}, rec)
		require.Error(t, err)
	})

	t.Run("missing record is not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Record(context.Background(), "acc", "nope")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("pending record resolves exactly once", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := record("p1", wallet.KindPurchase, wallet.Utility, wallet.Tokens(50))
		rec.Status = wallet.StatusPending
		_, err := s.Commit(ctx, "acc", nil, rec)
		require.NoError(t, err)

		got, err := s.ResolveRecord(ctx, "acc", "p1", wallet.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, wallet.StatusCompleted, got.Status)
		assert.Equal(t, wallet.Tokens(50), got.Amount)

		stored, err := s.Record(ctx, "acc", "p1")
		require.NoError(t, err)
		assert.Equal(t, wallet.StatusCompleted, stored.Status)
		assert.Equal(t, "p1", stored.Metadata["note"])

		_, err = s.ResolveRecord(ctx, "acc", "p1", wallet.StatusFailed)
		require.ErrorIs(t, err, ErrStatusTransition)
		stored, err = s.Record(ctx, "acc", "p1")
		require.NoError(t, err)
		assert.Equal(t, wallet.StatusCompleted, stored.Status)
	})

	t.Run("resolve rejects bad targets and unknown records", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Commit(ctx, "acc", nil, record("c1", wallet.KindPurchase, wallet.Utility, wallet.Tokens(1)))
		require.NoError(t, err)
		rec := record("p2", wallet.KindPurchase, wallet.Utility, wallet.Tokens(1))
		rec.Status = wallet.StatusPending
		_, err = s.Commit(ctx, "acc", nil, rec)
		require.NoError(t, err)

		_, err = s.ResolveRecord(ctx, "acc", "c1", wallet.StatusFailed)
		require.ErrorIs(t, err, ErrStatusTransition)
		_, err = s.ResolveRecord(ctx, "acc", "p2", wallet.StatusPending)
		require.ErrorIs(t, err, ErrStatusTransition)
		_, err = s.ResolveRecord(ctx, "other", "p2", wallet.StatusCompleted)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("concurrent debits never overdraw", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.ApplyDelta(ctx, "acc", wallet.Utility, wallet.Tokens(10))
		require.NoError(t, err)

		const workers = 20
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec := record(fmt.Sprintf("spend-%d", i), wallet.KindEarn, wallet.Utility, -wallet.Tokens(1))
				_, err := s.Commit(ctx, "acc", []Delta{{Token: wallet.Utility, Amount: -wallet.Tokens(1)}}, rec)
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				if !errors.Is(err, wallet.ErrInsufficientFunds) {
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 10, succeeded)
		b, err := s.Balances(ctx, "acc")
		require.NoError(t, err)
		assert.Equal(t, wallet.Amount(0), b.Utility)
		recs, err := s.Records(ctx, "acc")
		require.NoError(t, err)
		assert.Len(t, recs, 10)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, newMemoryStore)
}

func TestSQLStore_SQLite(t *testing.T) {
	runStoreSuite(t, newSQLiteStore)
}

func TestMemoryStore_RecordsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rec := record("r1", wallet.KindPurchase, wallet.Utility, wallet.Tokens(5))
	_, err := s.Commit(ctx, "acc", []Delta{{Token: wallet.Utility, Amount: wallet.Tokens(5)}}, rec)
	require.NoError(t, err)

	rec.Metadata["note"] = "mutated"
	recs, err := s.Records(ctx, "acc")
	require.NoError(t, err)
	recs[0].Metadata["note"] = "mutated again"

	got, err := s.Record(ctx, "acc", "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.Meta("note"))
}

func TestMemoryStore_DuplicateRecordID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.Commit(ctx, "acc", []Delta{{Token: wallet.Utility, Amount: 1}}, record("r1", wallet.KindEarn, wallet.Utility, 1))
	require.NoError(t, err)
	_, err = s.Commit(ctx, "acc", []Delta{{Token: wallet.Utility, Amount: 1}}, record("r1", wallet.KindEarn, wallet.Utility, 1))
	require.Error(t, err)

	b, err := s.Balances(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, wallet.Amount(1), b.Utility)
}

func TestMemoryStore_LockTimeout(t *testing.T) {
	s := NewMemoryStore(WithLockTimeout(20 * time.Millisecond))
	ctx := context.Background()

	unlock, err := s.locks.Lock(ctx, "acc")
	require.NoError(t, err)
	defer unlock()

	_, err = s.ApplyDelta(ctx, "acc", wallet.Utility, 1)
	require.ErrorIs(t, err, wallet.ErrConcurrentModification)
	assert.Equal(t, wallet.KindConcurrentModification, wallet.KindOf(err))
}

func TestApplyDeltas(t *testing.T) {
	tests := []struct {
		name    string
		start   wallet.Balances
		deltas  []Delta
		want    wallet.Balances
		wantErr error
	}{
		{
			name:   "credit and debit",
			start:  wallet.Balances{Utility: 100, Governance: 50},
			deltas: []Delta{{wallet.Utility, -100}, {wallet.Governance, 25}},
			want:   wallet.Balances{Utility: 0, Governance: 75},
		},
		{
			name:    "overdraft",
			start:   wallet.Balances{Utility: 1},
			deltas:  []Delta{{wallet.Utility, -2}},
			wantErr: wallet.ErrInsufficientFunds,
		},
		{
			name:    "overflow",
			start:   wallet.Balances{Utility: 1 << 62},
			deltas:  []Delta{{wallet.Utility, 1 << 62}, {wallet.Utility, 1 << 62}},
			wantErr: wallet.ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyDeltas(tt.start, tt.deltas)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
