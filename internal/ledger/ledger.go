// Package ledger holds per-account Utility and Governance balances together
// with the append-only transaction log.
//
// Every mutation runs under a per-account writer lock, and a balance can
// never go negative. Commit applies several deltas and appends one record
// as a single step. Either everything is applied or nothing is.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

// ErrStatusTransition is returned when a record may not move to the
// requested status.
var ErrStatusTransition = errors.New("invalid record status transition")

// DefaultLockTimeout bounds how long a writer waits for an account lock.
const DefaultLockTimeout = 2 * time.Second

// Delta is a signed change of one token balance.
type Delta struct {
	Token  wallet.Token
	Amount wallet.Amount
}

// Store is the ledger contract shared by the in-memory and SQL stores.
type Store interface {
	// EnsureAccount returns the account, creating it with zero balances
	// the first time it is seen.
	EnsureAccount(ctx context.Context, accountID string) (wallet.Account, error)
	GetBalance(ctx context.Context, accountID string, token wallet.Token) (wallet.Amount, error)
	Balances(ctx context.Context, accountID string) (wallet.Balances, error)
	// ApplyDelta adjusts a single balance without recording a transaction.
	ApplyDelta(ctx context.Context, accountID string, token wallet.Token, delta wallet.Amount) (wallet.Amount, error)
	// Commit applies deltas and appends rec atomically.
	Commit(ctx context.Context, accountID string, deltas []Delta, rec *wallet.Record) (wallet.Balances, error)
	// Records returns the account's log in append order.
	Records(ctx context.Context, accountID string) ([]wallet.Record, error)
	Record(ctx context.Context, accountID, recordID string) (wallet.Record, error)
	// ResolveRecord moves a pending record to completed or failed. Nothing
	// else about a record ever changes.
	ResolveRecord(ctx context.Context, accountID, recordID string, status wallet.Status) (wallet.Record, error)
}

type options struct {
	lockTimeout time.Duration
	now         func() time.Time
}

// Option configures a store.
type Option func(*options)

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithClock sets the time source used for account creation.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{lockTimeout: DefaultLockTimeout, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// applyDeltas returns b with deltas applied, or ErrInsufficientFunds if any
// balance would end below zero.
func applyDeltas(b wallet.Balances, deltas []Delta) (wallet.Balances, error) {
	for _, d := range deltas {
		if !d.Token.Valid() {
			return b, fmt.Errorf("unknown token %q", d.Token)
		}
		cur := b.Of(d.Token)
		if d.Amount > 0 && cur > math.MaxInt64-d.Amount {
			return b, fmt.Errorf("%w: balance overflow", wallet.ErrInvalidAmount)
		}
		next := cur + d.Amount
		if next < 0 {
			return b, fmt.Errorf("%w: %s balance %s, need %s", wallet.ErrInsufficientFunds, d.Token, cur, d.Amount.Neg())
		}
		b = b.With(d.Token, d.Amount)
	}
	return b, nil
}

func prepareRecord(accountID string, rec *wallet.Record) error {
	if rec == nil {
		return fmt.Errorf("commit: nil record")
	}
	if rec.AccountID == "" {
		rec.AccountID = accountID
	}
	if rec.AccountID != accountID {
		return fmt.Errorf("commit: record %s belongs to %s, not %s", rec.ID, rec.AccountID, accountID)
	}
	return rec.Validate()
}

func checkTransition(rec wallet.Record, status wallet.Status) error {
	if !rec.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: record %s is %s, cannot become %s", ErrStatusTransition, rec.ID, rec.Status, status)
	}
	return nil
}

func cloneRecord(rec wallet.Record) wallet.Record {
	if rec.Metadata != nil {
		m := make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			m[k] = v
		}
		rec.Metadata = m
	}
	return rec
}
