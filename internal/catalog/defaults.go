package catalog

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

const (
	// BasisPoints is 100%.
	BasisPoints = 10_000

	defaultMaxMultiplier = 25_000
)

func defaultPackages() []Package {
	return []Package{
		{ID: "pack-5", PriceCents: 500, Currency: "USD", Points: 500, BonusPercent: 0},
		{ID: "pack-10", PriceCents: 1000, Currency: "USD", Points: 1050, BonusPercent: 5},
		{ID: "pack-20", PriceCents: 2000, Currency: "USD", Points: 2200, BonusPercent: 10},
		{ID: "pack-50", PriceCents: 5000, Currency: "USD", Points: 5750, BonusPercent: 15},
		{ID: "pack-100", PriceCents: 10000, Currency: "USD", Points: 12000, BonusPercent: 20},
		{ID: "pack-200", PriceCents: 20000, Currency: "USD", Points: 25000, BonusPercent: 25},
	}
}

func defaultPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		{ID: "qr", Name: "QR Pay Bank", Description: "Scan with your banking app"},
		{ID: "crypto", Name: "Solana Pay", Description: "Pay with a crypto wallet"},
		{ID: "card", Name: "Credit Card", Description: "Visa, Mastercard"},
	}
}

func defaultStakeTiers() []StakeTier {
	return []StakeTier{
		{ID: wallet.TierFlexible, Name: "Flexible", LockDays: 0, APYBasisPoints: 400, MultiplierBasisPoints: 10_000},
		{ID: wallet.TierShort, Name: "30 Days", LockDays: 30, APYBasisPoints: 800, MultiplierBasisPoints: 15_000},
		{ID: wallet.TierLong, Name: "90 Days", LockDays: 90, APYBasisPoints: 1200, MultiplierBasisPoints: 20_000},
	}
}

func applyDefaults(c *Catalog) {
	if len(c.Packages) == 0 {
		c.Packages = defaultPackages()
	}
	for i := range c.Packages {
		if c.Packages[i].Currency == "" {
			c.Packages[i].Currency = "USD"
		}
	}
	if len(c.PaymentMethods) == 0 {
		c.PaymentMethods = defaultPaymentMethods()
	}
	if c.Exchange.Rate == (Rate{}) {
		c.Exchange.Rate = Rate{Governance: 1, Utility: 10}
	}
	if c.Exchange.NetworkFee == "" {
		c.Exchange.NetworkFee = "0.0005 SOL"
	}
	if c.Exchange.PriceImpactBasisPoints == 0 {
		c.Exchange.PriceImpactBasisPoints = 5
	}
	if len(c.StakeTiers) == 0 {
		c.StakeTiers = defaultStakeTiers()
	}
	if c.VotingPower.MaxMultiplierBasisPoints == 0 {
		c.VotingPower.MaxMultiplierBasisPoints = defaultMaxMultiplier
	}
}

func validate(c *Catalog) error {
	seen := make(map[string]struct{}, len(c.Packages))
	for _, p := range c.Packages {
		if p.ID == "" {
			return errors.New("catalog: package without id")
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("catalog: duplicate package %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.PriceCents <= 0 || p.Points <= 0 {
			return fmt.Errorf("catalog: package %q must have positive price and points", p.ID)
		}
		if p.BonusPercent < 0 {
			return fmt.Errorf("catalog: package %q has negative bonus", p.ID)
		}
	}

	methods := make(map[string]struct{}, len(c.PaymentMethods))
	for _, m := range c.PaymentMethods {
		if m.ID == "" {
			return errors.New("catalog: payment method without id")
		}
		if _, dup := methods[m.ID]; dup {
			return fmt.Errorf("catalog: duplicate payment method %q", m.ID)
		}
		methods[m.ID] = struct{}{}
	}

	if c.Exchange.Rate.Governance <= 0 || c.Exchange.Rate.Utility <= 0 {
		return errors.New("catalog: exchange rate must be positive on both sides")
	}
	if c.Exchange.PriceImpactBasisPoints < 0 || c.Exchange.PriceImpactBasisPoints >= BasisPoints {
		return errors.New("catalog: price impact out of range")
	}

	// tiers must be strictly increasing in lock, yield and non-decreasing in multiplier
	for i, t := range c.StakeTiers {
		if t.ID == "" {
			return errors.New("catalog: stake tier without id")
		}
		if t.LockDays < 0 || t.APYBasisPoints < 0 || t.MultiplierBasisPoints < BasisPoints {
			return fmt.Errorf("catalog: stake tier %q out of range", t.ID)
		}
		if i == 0 {
			continue
		}
		prev := c.StakeTiers[i-1]
		if t.LockDays <= prev.LockDays || t.APYBasisPoints <= prev.APYBasisPoints || t.MultiplierBasisPoints < prev.MultiplierBasisPoints {
			return fmt.Errorf("catalog: stake tier %q is not monotone after %q", t.ID, prev.ID)
		}
	}

	if c.VotingPower.MaxMultiplierBasisPoints < BasisPoints {
		return errors.New("catalog: voting power ceiling below 1.0x")
	}
	return nil
}
