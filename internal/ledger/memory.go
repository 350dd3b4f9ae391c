package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*wallet.Account
	records  map[string][]wallet.Record
	ids      map[string]struct{}
	locks    *Locker
	opts     options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		accounts: make(map[string]*wallet.Account),
		records:  make(map[string][]wallet.Record),
		ids:      make(map[string]struct{}),
		locks:    NewLocker(o.lockTimeout),
		opts:     o,
	}
}

// ensureLocked must be called with s.mu held for writing.
func (s *MemoryStore) ensureLocked(accountID string) *wallet.Account {
	acc, ok := s.accounts[accountID]
	if !ok {
		acc = &wallet.Account{ID: accountID, CreatedAt: s.opts.now().UTC()}
		s.accounts[accountID] = acc
	}
	return acc
}

func (s *MemoryStore) EnsureAccount(_ context.Context, accountID string) (wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.ensureLocked(accountID), nil
}

func (s *MemoryStore) Balances(_ context.Context, accountID string) (wallet.Balances, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acc, ok := s.accounts[accountID]; ok {
		return acc.Balances, nil
	}
	return wallet.Balances{}, nil
}

func (s *MemoryStore) GetBalance(ctx context.Context, accountID string, token wallet.Token) (wallet.Amount, error) {
	if !token.Valid() {
		return 0, fmt.Errorf("unknown token %q", token)
	}
	b, err := s.Balances(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return b.Of(token), nil
}

func (s *MemoryStore) ApplyDelta(ctx context.Context, accountID string, token wallet.Token, delta wallet.Amount) (wallet.Amount, error) {
	b, err := s.commit(ctx, accountID, []Delta{{Token: token, Amount: delta}}, nil)
	if err != nil {
		return 0, err
	}
	return b.Of(token), nil
}

func (s *MemoryStore) Commit(ctx context.Context, accountID string, deltas []Delta, rec *wallet.Record) (wallet.Balances, error) {
	if err := prepareRecord(accountID, rec); err != nil {
		return wallet.Balances{}, err
	}
	return s.commit(ctx, accountID, deltas, rec)
}

func (s *MemoryStore) commit(ctx context.Context, accountID string, deltas []Delta, rec *wallet.Record) (wallet.Balances, error) {
	unlock, err := s.locks.Lock(ctx, accountID)
	if err != nil {
		return wallet.Balances{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.ensureLocked(accountID)
	next, err := applyDeltas(acc.Balances, deltas)
	if err != nil {
		return acc.Balances, err
	}
	if rec != nil {
		if _, dup := s.ids[rec.ID]; dup {
			return acc.Balances, fmt.Errorf("record %s already exists", rec.ID)
		}
		s.ids[rec.ID] = struct{}{}
		s.records[accountID] = append(s.records[accountID], cloneRecord(*rec))
	}
	acc.Balances = next
	return next, nil
}

func (s *MemoryStore) Records(_ context.Context, accountID string) ([]wallet.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.records[accountID]
	out := make([]wallet.Record, len(src))
	for i, rec := range src {
		out[i] = cloneRecord(rec)
	}
	return out, nil
}

func (s *MemoryStore) Record(_ context.Context, accountID, recordID string) (wallet.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records[accountID] {
		if rec.ID == recordID {
			return cloneRecord(rec), nil
		}
	}
	return wallet.Record{}, common.ErrorNotFound
}

func (s *MemoryStore) ResolveRecord(ctx context.Context, accountID, recordID string, status wallet.Status) (wallet.Record, error) {
	unlock, err := s.locks.Lock(ctx, accountID)
	if err != nil {
		return wallet.Record{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.records[accountID]
	for i := range recs {
		if recs[i].ID != recordID {
			continue
		}
		if err := checkTransition(recs[i], status); err != nil {
			return cloneRecord(recs[i]), err
		}
		recs[i].Status = status
		return cloneRecord(recs[i]), nil
	}
	return wallet.Record{}, common.ErrorNotFound
}
