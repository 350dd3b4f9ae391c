// Package settlement tracks external fiat payment orders between their
// creation and the processor's confirmation.
package settlement

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound   = errors.New("settlement order not found")
	ErrAlreadyResolved = errors.New("settlement order already resolved")
	ErrInvalidStatus   = errors.New("invalid settlement status")
)

// ReferencePrefix starts every settlement reference.
const ReferencePrefix = "stl_"

// Order is a payment awaiting confirmation from the processor.
type Order struct {
	Reference  string        `json:"reference"`
	AccountID  string        `json:"account_id"`
	PackageID  string        `json:"package_id"`
	Method     string        `json:"method"`
	Price      string        `json:"price"`
	Status     wallet.Status `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt time.Time     `json:"resolved_at,omitempty"`
}

// Succeeded reports whether the processor confirmed the payment.
func (o Order) Succeeded() bool {
	return o.Status == wallet.StatusCompleted
}

// Gateway is the asynchronous settlement signal consumed by purchase flows.
type Gateway interface {
	Initiate(ctx context.Context, order Order) (Order, error)
	// Await blocks until the order is resolved or ctx is done.
	Await(ctx context.Context, reference string) (Order, error)
	// Abandon fails a pending order that nobody waits for any more. An
	// order the processor already resolved is returned as it stands with
	// ErrAlreadyResolved.
	Abandon(ctx context.Context, reference string) (Order, error)
}

type entry struct {
	order Order
	done  chan struct{}
}

// Registry is the in-process Gateway. Outcomes arrive through Resolve,
// normally called by the webhook handler.
type Registry struct {
	mu        sync.Mutex
	orders    map[string]*entry
	now       func() time.Time
	onResolve func(Order)
}

type RegistryOption func(*Registry)

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithResolveHook is called, outside the registry lock, for every order that
// leaves the pending state.
func WithResolveHook(fn func(Order)) RegistryOption {
	return func(r *Registry) { r.onResolve = fn }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{orders: make(map[string]*entry), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Initiate(ctx context.Context, order Order) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	order.Reference = ReferencePrefix + uuid.NewString()
	order.Status = wallet.StatusPending
	order.CreatedAt = r.now().UTC()
	order.ResolvedAt = time.Time{}

	r.mu.Lock()
	r.orders[order.Reference] = &entry{order: order, done: make(chan struct{})}
	r.mu.Unlock()
	return order, nil
}

func (r *Registry) Await(ctx context.Context, reference string) (Order, error) {
	r.mu.Lock()
	e, ok := r.orders[reference]
	r.mu.Unlock()
	if !ok {
		return Order{}, ErrOrderNotFound
	}

	select {
	case <-e.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return e.order, nil
	case <-ctx.Done():
		return Order{}, ctx.Err()
	}
}

func (r *Registry) Abandon(_ context.Context, reference string) (Order, error) {
	return r.resolve(reference, wallet.StatusFailed, "abandoned")
}

// Resolve records the processor's outcome. Only pending orders can be
// resolved, and only once.
func (r *Registry) Resolve(reference string, status wallet.Status) (Order, error) {
	if !status.Terminal() {
		return Order{}, ErrInvalidStatus
	}
	return r.resolve(reference, status, "")
}

func (r *Registry) resolve(reference string, status wallet.Status, reason string) (Order, error) {
	r.mu.Lock()
	e, ok := r.orders[reference]
	if !ok {
		r.mu.Unlock()
		return Order{}, ErrOrderNotFound
	}
	if !e.order.Status.CanTransitionTo(status) {
		o := e.order
		r.mu.Unlock()
		return o, ErrAlreadyResolved
	}
	e.order.Status = status
	e.order.Reason = reason
	e.order.ResolvedAt = r.now().UTC()
	close(e.done)
	o := e.order
	r.mu.Unlock()

	if r.onResolve != nil {
		r.onResolve(o)
	}
	return o, nil
}

// Order returns a snapshot of the order.
func (r *Registry) Order(reference string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.orders[reference]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return e.order, nil
}

// Expire fails pending orders created before cutoff and forgets resolved
// orders older than cutoff. It returns the number of orders it expired.
func (r *Registry) Expire(cutoff time.Time) int {
	var expired []string
	r.mu.Lock()
	for ref, e := range r.orders {
		if !e.order.CreatedAt.Before(cutoff) {
			continue
		}
		if e.order.Status == wallet.StatusPending {
			expired = append(expired, ref)
			continue
		}
		delete(r.orders, ref)
	}
	r.mu.Unlock()

	n := 0
	for _, ref := range expired {
		if _, err := r.resolve(ref, wallet.StatusFailed, "expired"); err == nil {
			n++
		}
	}
	return n
}
