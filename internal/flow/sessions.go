package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/settlement"
)

var ErrSessionNotFound = errors.New("purchase session not found")

type session struct {
	flow    *Purchase
	started time.Time
}

// Sessions keeps server-side purchase flows keyed by settlement reference.
// Each confirmed flow waits for its settlement in the background.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	eng      Engine
	gateway  settlement.Gateway
	timeout  time.Duration
	logger   logging.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessions(eng Engine, gateway settlement.Gateway, timeout time.Duration, logger logging.Logger) *Sessions {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sessions{
		sessions: make(map[string]*session),
		eng:      eng,
		gateway:  gateway,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs a purchase flow up to AwaitingExternalSettlement and returns
// the settlement order the payer must complete.
func (s *Sessions) Start(ctx context.Context, accountID, packageID, methodID string) (*Purchase, settlement.Order, error) {
	p := NewPurchase(s.eng, s.gateway, accountID, s.timeout)
	if err := p.SelectPackage(packageID); err != nil {
		return nil, settlement.Order{}, err
	}
	if err := p.SelectMethod(methodID); err != nil {
		return nil, settlement.Order{}, err
	}
	if err := p.Continue(); err != nil {
		return nil, settlement.Order{}, err
	}
	order, err := p.Confirm(ctx)
	if err != nil {
		return nil, settlement.Order{}, err
	}

	s.mu.Lock()
	s.sessions[order.Reference] = &session{flow: p, started: s.now()}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		snap, err := p.AwaitSettlement(s.ctx)
		if err != nil {
			s.logger.Warn(s.ctx, "purchase wait ended", "reference", order.Reference, "error", err)
			return
		}
		s.logger.Info(s.ctx, "purchase finished", "reference", order.Reference, "account", accountID,
			"state", snap.State, "kind", snap.ErrorKind)
	}()
	return p, order, nil
}

// Get returns the flow for reference if it belongs to accountID.
func (s *Sessions) Get(accountID, reference string) (*Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[reference]
	if !ok || sess.flow.AccountID() != accountID {
		return nil, ErrSessionNotFound
	}
	return sess.flow, nil
}

// Cancel cancels the flow for reference. Its pending order is abandoned
// unless the payment was already confirmed.
func (s *Sessions) Cancel(ctx context.Context, accountID, reference string) (Snapshot, error) {
	p, err := s.Get(accountID, reference)
	if err != nil {
		return Snapshot{}, err
	}
	if err := p.Cancel(ctx); err != nil {
		return p.Snapshot(), err
	}
	return p.Snapshot(), nil
}

// Prune forgets finished flows started before cutoff.
func (s *Sessions) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for ref, sess := range s.sessions {
		if sess.started.Before(cutoff) && sess.flow.State().Terminal() {
			delete(s.sessions, ref)
			n++
		}
	}
	return n
}

// Close stops all background waits. Flows still waiting stay in
// AwaitingExternalSettlement.
func (s *Sessions) Close() {
	s.cancel()
	s.wg.Wait()
}
