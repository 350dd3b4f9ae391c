package flow

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dualwallet/internal/engine"
	"github.com/dmitrijs2005/dualwallet/internal/quote"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

// Swap exchanges one token for the other:
// EnteringAmount → Reviewing → Completed | Failed.
type Swap struct {
	machine
	direction wallet.Direction
	amount    wallet.Amount
	quote     quote.Quote
}

func NewSwap(eng Engine, accountID string) *Swap {
	return &Swap{
		machine:   machine{state: StateEnteringAmount, accountID: accountID, eng: eng},
		direction: wallet.GovernanceToUtility,
	}
}

func (s *Swap) Direction() wallet.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direction
}

func (s *Swap) Amount() wallet.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amount
}

func (s *Swap) SetDirection(d wallet.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateEnteringAmount); err != nil {
		return err
	}
	if !d.Valid() {
		return fmt.Errorf("%w: %q", wallet.ErrInvalidDirection, d)
	}
	s.direction = d
	return nil
}

// Flip reverses the direction.
func (s *Swap) Flip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateEnteringAmount); err != nil {
		return err
	}
	s.direction = s.direction.Reverse()
	return nil
}

func (s *Swap) SetAmount(a wallet.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateEnteringAmount); err != nil {
		return err
	}
	if a <= 0 {
		return fmt.Errorf("%w: must be greater than zero", wallet.ErrInvalidAmount)
	}
	s.amount = a
	return nil
}

// UseMax sets the amount to the whole source balance.
func (s *Swap) UseMax(ctx context.Context) (wallet.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateEnteringAmount); err != nil {
		return 0, err
	}
	bal, err := s.eng.GetBalance(ctx, s.accountID, s.direction.Source())
	if err != nil {
		return 0, err
	}
	s.amount = bal
	return bal, nil
}

// Review validates the amount against the source balance and prices it.
func (s *Swap) Review(ctx context.Context) (quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateEnteringAmount); err != nil {
		return quote.Quote{}, err
	}
	if s.amount <= 0 {
		return quote.Quote{}, fmt.Errorf("%w: must be greater than zero", wallet.ErrInvalidAmount)
	}
	bal, err := s.eng.GetBalance(ctx, s.accountID, s.direction.Source())
	if err != nil {
		return quote.Quote{}, err
	}
	if s.amount > bal {
		return quote.Quote{}, fmt.Errorf("%w: %s balance %s", wallet.ErrInsufficientFunds, s.direction.Source(), bal)
	}
	q, err := s.eng.Quote(s.direction, s.amount)
	if err != nil {
		return quote.Quote{}, err
	}
	if q.Output <= 0 {
		return quote.Quote{}, fmt.Errorf("%w: output rounds to zero", wallet.ErrInvalidAmount)
	}
	s.quote = q
	s.state = StateReviewing
	return q, nil
}

func (s *Swap) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateReviewing); err != nil {
		return err
	}
	s.state = StateEnteringAmount
	s.quote = quote.Quote{}
	return nil
}

// Confirm executes the reviewed swap.
func (s *Swap) Confirm(ctx context.Context) (*wallet.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateReviewing); err != nil {
		return nil, err
	}
	return s.execute(ctx, engine.SwapRequest{Direction: s.direction, Amount: s.amount})
}

func (s *Swap) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel()
}
