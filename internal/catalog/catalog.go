// Package catalog is the single configuration source for purchase packages,
// payment methods, the swap rate and the staking tier table.
package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Package is a fixed bundle of Utility tokens bought with fiat.
type Package struct {
	ID           string `yaml:"id"`
	PriceCents   int64  `yaml:"price_cents"`
	Currency     string `yaml:"currency"`
	Points       int64  `yaml:"points"`
	BonusPercent int    `yaml:"bonus_percent"`
}

// Credit is the Utility amount a successful purchase adds.
func (p Package) Credit() wallet.Amount {
	return wallet.Tokens(p.Points)
}

// NominalPrice renders the fiat price, e.g. "USD 5.00".
func (p Package) NominalPrice() string {
	return p.Currency + " " + decimal.New(p.PriceCents, -2).StringFixed(2)
}

// PaymentMethod is an external settlement channel.
type PaymentMethod struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Rate fixes the exchange as Governance G = Utility U.
type Rate struct {
	Governance int64 `yaml:"governance"`
	Utility    int64 `yaml:"utility"`
}

// Exchange configures the swap quote.
type Exchange struct {
	Rate                   Rate   `yaml:"rate"`
	NetworkFee             string `yaml:"network_fee"`
	PriceImpactBasisPoints int64  `yaml:"price_impact_bps"`
}

// StakeTier is one row of the staking table.
type StakeTier struct {
	ID                    wallet.Tier `yaml:"id"`
	Name                  string      `yaml:"name"`
	LockDays              int         `yaml:"lock_days"`
	APYBasisPoints        int64       `yaml:"apy_bps"`
	MultiplierBasisPoints int64       `yaml:"multiplier_bps"`
}

// VotingPower bounds the consistency multiplier.
type VotingPower struct {
	MaxMultiplierBasisPoints int64 `yaml:"max_multiplier_bps"`
}

type Catalog struct {
	Packages       []Package       `yaml:"packages"`
	PaymentMethods []PaymentMethod `yaml:"payment_methods"`
	Exchange       Exchange        `yaml:"exchange"`
	StakeTiers     []StakeTier     `yaml:"stake_tiers"`
	VotingPower    VotingPower     `yaml:"voting_power"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{}
	applyDefaults(c)
	return c
}

// Load reads a YAML catalog from path. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse decodes a YAML catalog, fills omitted sections with defaults and
// validates the result.
func Parse(r io.Reader) (*Catalog, error) {
	c := &Catalog{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	applyDefaults(c)
	if err := validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Package looks a package up by id.
func (c *Catalog) Package(id string) (Package, error) {
	for _, p := range c.Packages {
		if p.ID == id {
			return p, nil
		}
	}
	return Package{}, fmt.Errorf("%w: %q", wallet.ErrUnknownPackage, id)
}

// PaymentMethod looks a payment method up by id.
func (c *Catalog) PaymentMethod(id string) (PaymentMethod, error) {
	for _, m := range c.PaymentMethods {
		if m.ID == id {
			return m, nil
		}
	}
	return PaymentMethod{}, fmt.Errorf("%w: %q", wallet.ErrUnknownMethod, id)
}

// Tier looks a staking tier up by id.
func (c *Catalog) Tier(id wallet.Tier) (StakeTier, error) {
	for _, t := range c.StakeTiers {
		if t.ID == id {
			return t, nil
		}
	}
	return StakeTier{}, fmt.Errorf("%w: %q", wallet.ErrUnknownTier, id)
}
