package flow

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dualwallet/internal/engine"
	"github.com/dmitrijs2005/dualwallet/internal/staking"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

// Stake locks Governance for a term: EnteringAmountAndTerm → Completed | Failed.
type Stake struct {
	machine
	amount wallet.Amount
	tier   wallet.Tier
}

func NewStake(eng Engine, accountID string) *Stake {
	return &Stake{
		machine: machine{state: StateEnteringAmountAndTerm, accountID: accountID, eng: eng},
		tier:    wallet.TierFlexible,
	}
}

func (s *Stake) SetAmount(a wallet.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateEnteringAmountAndTerm); err != nil {
		return err
	}
	if a <= 0 {
		return fmt.Errorf("%w: must be greater than zero", wallet.ErrInvalidAmount)
	}
	s.amount = a
	return nil
}

func (s *Stake) SetTier(t wallet.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateEnteringAmountAndTerm); err != nil {
		return err
	}
	if _, err := s.eng.Catalog().Tier(t); err != nil {
		return err
	}
	s.tier = t
	return nil
}

// UseMax sets the amount to the whole Governance balance.
func (s *Stake) UseMax(ctx context.Context) (wallet.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateEnteringAmountAndTerm); err != nil {
		return 0, err
	}
	bal, err := s.eng.GetBalance(ctx, s.accountID, wallet.Governance)
	if err != nil {
		return 0, err
	}
	s.amount = bal
	return bal, nil
}

// Preview computes the plan for the current inputs without any state change.
func (s *Stake) Preview() (staking.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.PlanStake(s.amount, s.tier)
}

// Confirm validates the amount against the Governance balance and executes
// the stake. Validation errors leave the flow in place.
func (s *Stake) Confirm(ctx context.Context) (*wallet.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StateEnteringAmountAndTerm); err != nil {
		return nil, err
	}
	if _, err := s.eng.PlanStake(s.amount, s.tier); err != nil {
		return nil, err
	}
	bal, err := s.eng.GetBalance(ctx, s.accountID, wallet.Governance)
	if err != nil {
		return nil, err
	}
	if s.amount > bal {
		return nil, fmt.Errorf("%w: governance balance %s", wallet.ErrInsufficientFunds, bal)
	}
	return s.execute(ctx, engine.StakeRequest{Amount: s.amount, Tier: s.tier})
}

func (s *Stake) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel()
}
