package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/engine"
	"github.com/dmitrijs2005/dualwallet/internal/settlement"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

// DefaultSettlementTimeout bounds AwaitSettlement when no timeout is given.
const DefaultSettlementTimeout = 2 * time.Minute

// Purchase buys a Utility package with fiat:
// SelectingPackageAndMethod → Confirming → AwaitingExternalSettlement →
// Completed | Failed.
type Purchase struct {
	machine
	gateway settlement.Gateway
	timeout time.Duration

	pkg    *catalog.Package
	method *catalog.PaymentMethod
	order  settlement.Order
}

func NewPurchase(eng Engine, gateway settlement.Gateway, accountID string, timeout time.Duration) *Purchase {
	if timeout <= 0 {
		timeout = DefaultSettlementTimeout
	}
	return &Purchase{
		machine: machine{state: StateSelectingPackageAndMethod, accountID: accountID, eng: eng},
		gateway: gateway,
		timeout: timeout,
	}
}

func (p *Purchase) SelectPackage(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.expect(StateSelectingPackageAndMethod); err != nil {
		return err
	}
	pkg, err := p.eng.Catalog().Package(id)
	if err != nil {
		return err
	}
	p.pkg = &pkg
	return nil
}

func (p *Purchase) SelectMethod(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.expect(StateSelectingPackageAndMethod); err != nil {
		return err
	}
	m, err := p.eng.Catalog().PaymentMethod(id)
	if err != nil {
		return err
	}
	p.method = &m
	return nil
}

// Selection returns the chosen package and method, nil when unset.
func (p *Purchase) Selection() (*catalog.Package, *catalog.PaymentMethod) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pkg, p.method
}

// Continue moves to Confirming once both a package and a method are chosen.
func (p *Purchase) Continue() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.expect(StateSelectingPackageAndMethod); err != nil {
		return err
	}
	if p.pkg == nil || p.method == nil {
		return ErrSelectionRequired
	}
	p.state = StateConfirming
	return nil
}

// Confirm opens a settlement order and starts waiting for it.
func (p *Purchase) Confirm(ctx context.Context) (settlement.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.expect(StateConfirming); err != nil {
		return settlement.Order{}, err
	}
	order, err := p.gateway.Initiate(ctx, settlement.Order{
		AccountID: p.accountID,
		PackageID: p.pkg.ID,
		Method:    p.method.ID,
		Price:     p.pkg.NominalPrice(),
	})
	if err != nil {
		return settlement.Order{}, fmt.Errorf("initiate settlement: %w", err)
	}
	p.order = order
	p.state = StateAwaitingSettlement
	return order, nil
}

// Order is the settlement order of the current attempt.
func (p *Purchase) Order() settlement.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order
}

// Back returns to the previous step. Leaving AwaitingExternalSettlement
// abandons the pending order, which fails like Cancel once the payment is
// confirmed.
func (p *Purchase) Back(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.expect(StateConfirming, StateAwaitingSettlement); err != nil {
		return err
	}
	if p.state == StateConfirming {
		p.state = StateSelectingPackageAndMethod
		return nil
	}
	if _, err := p.abandon(ctx); err != nil {
		return err
	}
	p.state = StateConfirming
	return nil
}

// Cancel closes the flow. While awaiting settlement it fails with
// settlement.ErrAlreadyResolved if the payment was already confirmed; the
// flow then stays in place so the confirmation can still be credited.
func (p *Purchase) Cancel(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateAwaitingSettlement {
		if _, err := p.abandon(ctx); err != nil {
			return err
		}
	}
	return p.cancel()
}

// abandon gives up the pending order. A payment confirmed in the meantime
// cannot be given up: its order is returned with settlement.ErrAlreadyResolved
// and kept as the current attempt.
func (p *Purchase) abandon(ctx context.Context) (settlement.Order, error) {
	if p.order.Reference == "" {
		return settlement.Order{}, nil
	}
	order, err := p.gateway.Abandon(ctx, p.order.Reference)
	if errors.Is(err, settlement.ErrAlreadyResolved) && order.Succeeded() {
		return order, err
	}
	p.order = settlement.Order{}
	return order, nil
}

// AwaitSettlement blocks until the order resolves, the settlement timeout
// elapses or ctx is done. A confirmed payment is executed exactly once.
// If the flow was cancelled or stepped back meanwhile, the outcome is
// ignored and ErrFlowClosed or ErrInvalidTransition is returned.
//
// When ctx itself ends the wait, the flow stays in
// AwaitingExternalSettlement and ctx.Err() is returned. A payment confirmed
// after the timeout but before the order could be abandoned still counts.
func (p *Purchase) AwaitSettlement(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	if err := p.expect(StateAwaitingSettlement); err != nil {
		p.mu.Unlock()
		return Snapshot{}, err
	}
	ref := p.order.Reference
	p.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	order, waitErr := p.gateway.Await(waitCtx, ref)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.expect(StateAwaitingSettlement); err != nil || p.order.Reference != ref {
		if err == nil {
			err = ErrInvalidTransition
		}
		return p.snapshot(), err
	}

	switch {
	case waitErr == nil:
	case ctx.Err() != nil:
		return p.snapshot(), ctx.Err()
	case errors.Is(waitErr, context.DeadlineExceeded):
		late, err := p.abandon(ctx)
		if err == nil {
			p.fail(fmt.Errorf("%w: no confirmation within %s", wallet.ErrSettlementTimeout, p.timeout))
			return p.snapshot(), nil
		}
		// confirmed between the deadline and the abandon
		order = late
	default:
		p.fail(fmt.Errorf("%w: %v", wallet.ErrSettlementFailed, waitErr))
		return p.snapshot(), nil
	}

	if !order.Succeeded() {
		reason := order.Reason
		if reason == "" {
			reason = string(order.Status)
		}
		p.fail(fmt.Errorf("%w: %s", wallet.ErrSettlementFailed, reason))
		return p.snapshot(), nil
	}

	_, _ = p.execute(ctx, engine.PurchaseRequest{
		PackageID:     p.pkg.ID,
		Method:        p.method.ID,
		SettlementRef: ref,
	})
	return p.snapshot(), nil
}
