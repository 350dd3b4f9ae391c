package ledger

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/dbx"
	"github.com/dmitrijs2005/dualwallet/internal/repositories/repomanager"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/jmoiron/sqlx"
)

// SQLStore persists the ledger through the account and transaction
// repositories. Each mutation is one database transaction, and on
// PostgreSQL the account row is additionally locked with FOR UPDATE.
type SQLStore struct {
	db    *sqlx.DB
	repos repomanager.RepositoryManager
	locks *Locker
	opts  options
}

func NewSQLStore(db *sqlx.DB, repos repomanager.RepositoryManager, opts ...Option) *SQLStore {
	o := buildOptions(opts)
	return &SQLStore{db: db, repos: repos, locks: NewLocker(o.lockTimeout), opts: o}
}

func (s *SQLStore) EnsureAccount(ctx context.Context, accountID string) (wallet.Account, error) {
	accounts := s.repos.Accounts(s.db)
	if err := accounts.Create(ctx, accountID, s.opts.now()); err != nil {
		return wallet.Account{}, err
	}
	acc, err := accounts.Get(ctx, accountID)
	if err != nil {
		return wallet.Account{}, err
	}
	return *acc, nil
}

// Balances of an account that was never touched are zero.
func (s *SQLStore) Balances(ctx context.Context, accountID string) (wallet.Balances, error) {
	acc, err := s.repos.Accounts(s.db).Get(ctx, accountID)
	if errors.Is(err, common.ErrorNotFound) {
		return wallet.Balances{}, nil
	}
	if err != nil {
		return wallet.Balances{}, err
	}
	return acc.Balances, nil
}

func (s *SQLStore) GetBalance(ctx context.Context, accountID string, token wallet.Token) (wallet.Amount, error) {
	b, err := s.Balances(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return b.Of(token), nil
}

func (s *SQLStore) ApplyDelta(ctx context.Context, accountID string, token wallet.Token, delta wallet.Amount) (wallet.Amount, error) {
	b, err := s.commit(ctx, accountID, []Delta{{Token: token, Amount: delta}}, nil)
	if err != nil {
		return 0, err
	}
	return b.Of(token), nil
}

func (s *SQLStore) Commit(ctx context.Context, accountID string, deltas []Delta, rec *wallet.Record) (wallet.Balances, error) {
	if err := prepareRecord(accountID, rec); err != nil {
		return wallet.Balances{}, err
	}
	return s.commit(ctx, accountID, deltas, rec)
}

func (s *SQLStore) commit(ctx context.Context, accountID string, deltas []Delta, rec *wallet.Record) (wallet.Balances, error) {
	unlock, err := s.locks.Lock(ctx, accountID)
	if err != nil {
		return wallet.Balances{}, err
	}
	defer unlock()

	var result wallet.Balances
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repos.Accounts(tx)
		if err := accounts.Create(ctx, accountID, s.opts.now()); err != nil {
			return err
		}
		acc, err := accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		next, err := applyDeltas(acc.Balances, deltas)
		if err != nil {
			return err
		}
		if err := accounts.UpdateBalances(ctx, accountID, next); err != nil {
			return err
		}
		if rec != nil {
			if err := s.repos.Transactions(tx).Insert(ctx, rec); err != nil {
				return err
			}
		}
		result = next
		return nil
	})
	if err != nil {
		return wallet.Balances{}, err
	}
	return result, nil
}

func (s *SQLStore) Records(ctx context.Context, accountID string) ([]wallet.Record, error) {
	return s.repos.Transactions(s.db).ListByAccount(ctx, accountID)
}

func (s *SQLStore) Record(ctx context.Context, accountID, recordID string) (wallet.Record, error) {
	rec, err := s.repos.Transactions(s.db).Get(ctx, accountID, recordID)
	if err != nil {
		return wallet.Record{}, err
	}
	return *rec, nil
}

func (s *SQLStore) ResolveRecord(ctx context.Context, accountID, recordID string, status wallet.Status) (wallet.Record, error) {
	unlock, err := s.locks.Lock(ctx, accountID)
	if err != nil {
		return wallet.Record{}, err
	}
	defer unlock()

	var result wallet.Record
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txs := s.repos.Transactions(tx)
		rec, err := txs.Get(ctx, accountID, recordID)
		if err != nil {
			return err
		}
		result = *rec
		if err := checkTransition(*rec, status); err != nil {
			return err
		}
		if err := txs.UpdateStatus(ctx, accountID, recordID, rec.Status, status); err != nil {
			return err
		}
		result.Status = status
		return nil
	})
	return result, err
}
