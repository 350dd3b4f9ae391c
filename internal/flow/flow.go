// Package flow implements the multi-step purchase, swap and stake
// interactions as explicit state machines.
//
// Only a confirmed settlement (purchase) or Confirm (swap, stake) reaches
// the engine, at most once per flow. Completed, Failed and Cancelled are
// absorbing: a new interaction needs a new flow.
package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/engine"
	"github.com/dmitrijs2005/dualwallet/internal/quote"
	"github.com/dmitrijs2005/dualwallet/internal/staking"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

var (
	ErrInvalidTransition = errors.New("invalid flow transition")
	ErrFlowClosed        = errors.New("flow is closed")
	ErrSelectionRequired = errors.New("package and payment method must both be selected")
)

type State string

const (
	StateSelectingPackageAndMethod State = "selecting_package_and_method"
	StateConfirming                State = "confirming"
	StateAwaitingSettlement        State = "awaiting_external_settlement"
	StateEnteringAmount            State = "entering_amount"
	StateReviewing                 State = "reviewing"
	StateEnteringAmountAndTerm     State = "entering_amount_and_term"
	StateCompleted                 State = "completed"
	StateFailed                    State = "failed"
	StateCancelled                 State = "cancelled"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Engine is what flows need from the transaction engine.
type Engine interface {
	Execute(ctx context.Context, accountID string, req engine.Request) (*wallet.Record, error)
	Quote(d wallet.Direction, amount wallet.Amount) (quote.Quote, error)
	PlanStake(amount wallet.Amount, tier wallet.Tier) (staking.Plan, error)
	GetBalance(ctx context.Context, accountID string, token wallet.Token) (wallet.Amount, error)
	Catalog() *catalog.Catalog
}

// Snapshot is the externally visible state of a flow.
type Snapshot struct {
	State     State
	ErrorKind wallet.ErrorKind
	Err       error
	Record    *wallet.Record
}

type machine struct {
	mu        sync.Mutex
	state     State
	err       error
	record    *wallet.Record
	executed  bool
	accountID string
	eng       Engine
}

// expect must be called with mu held.
func (m *machine) expect(states ...State) error {
	if m.state.Terminal() {
		return ErrFlowClosed
	}
	for _, s := range states {
		if m.state == s {
			return nil
		}
	}
	return ErrInvalidTransition
}

// execute must be called with mu held. It moves the flow to its terminal
// state according to the engine result.
func (m *machine) execute(ctx context.Context, req engine.Request) (*wallet.Record, error) {
	if m.executed {
		return nil, ErrInvalidTransition
	}
	m.executed = true
	rec, err := m.eng.Execute(ctx, m.accountID, req)
	if err != nil {
		m.fail(err)
		return nil, err
	}
	m.state = StateCompleted
	m.record = rec
	return rec, nil
}

func (m *machine) fail(err error) {
	m.state = StateFailed
	m.err = err
}

func (m *machine) cancel() error {
	if m.state.Terminal() {
		return ErrFlowClosed
	}
	m.state = StateCancelled
	return nil
}

func (m *machine) snapshot() Snapshot {
	return Snapshot{State: m.state, ErrorKind: wallet.KindOf(m.err), Err: m.err, Record: m.record}
}

// Snapshot returns the current state.
func (m *machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AccountID is the account the flow operates on.
func (m *machine) AccountID() string {
	return m.accountID
}
