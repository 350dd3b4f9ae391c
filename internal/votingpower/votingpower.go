// Package votingpower derives an account's governance voting power from its
// Governance balance and externally supplied reputation scores.
package votingpower

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/staking"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/shopspring/decimal"
)

// BaseMultiplierBasisPoints is the 1.0x floor.
const BaseMultiplierBasisPoints = catalog.BasisPoints

// Scores are 0..100 reputation metrics from the reputation service.
type Scores struct {
	SelfStake      int
	DelegatedTrust int
	Consistency    int
}

func clampScore(v int) int {
	return min(max(v, 0), 100)
}

func (s Scores) clamped() Scores {
	return Scores{
		SelfStake:      clampScore(s.SelfStake),
		DelegatedTrust: clampScore(s.DelegatedTrust),
		Consistency:    clampScore(s.Consistency),
	}
}

// ScoreProvider supplies reputation scores for an account.
type ScoreProvider interface {
	Scores(ctx context.Context, accountID string) (Scores, error)
}

// StaticScores serves configured scores, with a fallback for unknown accounts.
type StaticScores struct {
	mu       sync.RWMutex
	fallback Scores
	accounts map[string]Scores
}

func NewStaticScores(fallback Scores) *StaticScores {
	return &StaticScores{fallback: fallback, accounts: make(map[string]Scores)}
}

// Set records the scores reported for accountID.
func (s *StaticScores) Set(accountID string, sc Scores) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[accountID] = sc
}

func (s *StaticScores) Scores(_ context.Context, accountID string) (Scores, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.accounts[accountID]; ok {
		return sc, nil
	}
	return s.fallback, nil
}

// BalanceReader reads ledger balances.
type BalanceReader interface {
	GetBalance(ctx context.Context, accountID string, token wallet.Token) (wallet.Amount, error)
}

// PositionSource lists an account's stake positions.
type PositionSource interface {
	StakePositions(ctx context.Context, accountID string) ([]staking.Position, error)
}

// Snapshot is voting power computed at read time. It is never stored.
type Snapshot struct {
	Scores
	SelfStakeTier         string
	DelegatedTrustTier    string
	ConsistencyTier       string
	MultiplierBasisPoints int64
	GovernanceBalance     wallet.Amount
	TotalVotingPower      wallet.Amount
	StakeBoost            wallet.Amount
}

// Multiplier renders the multiplier, e.g. "1.92x".
func (s Snapshot) Multiplier() string {
	return decimal.New(s.MultiplierBasisPoints, -4).StringFixed(2) + "x"
}

// Tier labels a 0..100 score.
func Tier(score int) string {
	switch {
	case score >= 90:
		return "Elite"
	case score >= 70:
		return "Strong"
	case score >= 50:
		return "Average"
	default:
		return "Low"
	}
}

// Multiplier is 1.0 + consistency/100 in basis points, clamped to
// [1.0, maxBasisPoints].
func Multiplier(consistency int, maxBasisPoints int64) int64 {
	m := BaseMultiplierBasisPoints + int64(consistency)*100
	return min(max(m, BaseMultiplierBasisPoints), maxBasisPoints)
}

type Engine struct {
	balances      BalanceReader
	scores        ScoreProvider
	positions     PositionSource
	maxMultiplier int64
}

// NewEngine builds an engine. positions may be nil, in which case StakeBoost
// is always zero.
func NewEngine(balances BalanceReader, scores ScoreProvider, positions PositionSource, cfg catalog.VotingPower) *Engine {
	return &Engine{
		balances:      balances,
		scores:        scores,
		positions:     positions,
		maxMultiplier: cfg.MaxMultiplierBasisPoints,
	}
}

// Compute returns the voting power of accountID: Governance balance times
// the consistency multiplier, truncated to the minor unit.
func (e *Engine) Compute(ctx context.Context, accountID string) (Snapshot, error) {
	raw, err := e.scores.Scores(ctx, accountID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("scores: %w", err)
	}
	sc := raw.clamped()

	balance, err := e.balances.GetBalance(ctx, accountID, wallet.Governance)
	if err != nil {
		return Snapshot{}, fmt.Errorf("governance balance: %w", err)
	}

	mult := Multiplier(sc.Consistency, e.maxMultiplier)
	total, err := wallet.MulDiv(balance, mult, BaseMultiplierBasisPoints)
	if err != nil {
		return Snapshot{}, err
	}

	var boost wallet.Amount
	if e.positions != nil {
		positions, err := e.positions.StakePositions(ctx, accountID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("stake positions: %w", err)
		}
		for _, p := range positions {
			b, err := wallet.MulDiv(p.Amount, p.MultiplierBasisPoints, BaseMultiplierBasisPoints)
			if err != nil {
				return Snapshot{}, err
			}
			boost += b
		}
	}

	return Snapshot{
		Scores:                sc,
		SelfStakeTier:         Tier(sc.SelfStake),
		DelegatedTrustTier:    Tier(sc.DelegatedTrust),
		ConsistencyTier:       Tier(sc.Consistency),
		MultiplierBasisPoints: mult,
		GovernanceBalance:     balance,
		TotalVotingPower:      total,
		StakeBoost:            boost,
	}, nil
}
