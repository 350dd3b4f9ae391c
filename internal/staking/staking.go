// Package staking plans Governance stakes: projected yield and voting power
// boost per lock tier, and the positions recorded in the ledger.
package staking

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/shopspring/decimal"
)

// Metadata keys written on stake records.
const (
	MetaTier          = "tier"
	MetaLockDays      = "lock_days"
	MetaAPY           = "apy_bps"
	MetaYield         = "projected_yield"
	MetaMultiplier    = "multiplier_bps"
	MetaUnlocksAt     = "unlocks_at"
	unlockTimeLayout  = time.RFC3339
	basisPointsFactor = catalog.BasisPoints
)

// Plan is the preview of staking Amount in Tier.
type Plan struct {
	Tier                  wallet.Tier
	TierName              string
	Amount                wallet.Amount
	LockDays              int
	APYBasisPoints        int64
	ProjectedYield        wallet.Amount
	MultiplierBasisPoints int64
	VotingPowerBoost      wallet.Amount
}

// APY renders the yield rate, e.g. "12%".
func (p Plan) APY() string {
	return decimal.New(p.APYBasisPoints, -2).String() + "%"
}

// Multiplier renders the voting power multiplier, e.g. "1.5x".
func (p Plan) Multiplier() string {
	return decimal.New(p.MultiplierBasisPoints, -4).String() + "x"
}

// UnlocksAt is when a stake started at start may be released.
func (p Plan) UnlocksAt(start time.Time) time.Time {
	return start.AddDate(0, 0, p.LockDays)
}

// Metadata is the record metadata describing the staked position.
func (p Plan) Metadata(start time.Time) map[string]string {
	return map[string]string{
		MetaTier:       string(p.Tier),
		MetaLockDays:   strconv.Itoa(p.LockDays),
		MetaAPY:        strconv.FormatInt(p.APYBasisPoints, 10),
		MetaYield:      p.ProjectedYield.String(),
		MetaMultiplier: strconv.FormatInt(p.MultiplierBasisPoints, 10),
		MetaUnlocksAt:  p.UnlocksAt(start).UTC().Format(unlockTimeLayout),
	}
}

type Calculator struct {
	tiers []catalog.StakeTier
}

func NewCalculator(tiers []catalog.StakeTier) *Calculator {
	return &Calculator{tiers: tiers}
}

// Tiers returns the tier table in ascending lock order.
func (c *Calculator) Tiers() []catalog.StakeTier {
	out := make([]catalog.StakeTier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

func (c *Calculator) tier(id wallet.Tier) (catalog.StakeTier, error) {
	for _, t := range c.tiers {
		if t.ID == id {
			return t, nil
		}
	}
	return catalog.StakeTier{}, fmt.Errorf("%w: %q", wallet.ErrUnknownTier, id)
}

// Plan computes yield = amount × apy and boost = amount × multiplier, both
// annual and truncated to the minor unit.
func (c *Calculator) Plan(amount wallet.Amount, id wallet.Tier) (Plan, error) {
	if amount <= 0 {
		return Plan{}, fmt.Errorf("%w: must be greater than zero", wallet.ErrInvalidAmount)
	}
	t, err := c.tier(id)
	if err != nil {
		return Plan{}, err
	}
	yield, err := wallet.MulDiv(amount, t.APYBasisPoints, basisPointsFactor)
	if err != nil {
		return Plan{}, err
	}
	boost, err := wallet.MulDiv(amount, t.MultiplierBasisPoints, basisPointsFactor)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Tier:                  t.ID,
		TierName:              t.Name,
		Amount:                amount,
		LockDays:              t.LockDays,
		APYBasisPoints:        t.APYBasisPoints,
		ProjectedYield:        yield,
		MultiplierBasisPoints: t.MultiplierBasisPoints,
		VotingPowerBoost:      boost,
	}, nil
}
