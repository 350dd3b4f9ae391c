// Package quote prices swaps between Utility and Governance at the fixed
// catalog rate.
package quote

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/shopspring/decimal"
)

// Quote is an ephemeral swap price. Output never exceeds Input × Rate.
type Quote struct {
	Direction              wallet.Direction
	Input                  wallet.Amount
	Output                 wallet.Amount
	RateNum                int64
	RateDen                int64
	NetworkFee             string
	PriceImpactBasisPoints int64
	QuotedAt               time.Time
}

// Rate is the destination units received per source unit.
func (q Quote) Rate() decimal.Decimal {
	return decimal.NewFromInt(q.RateNum).Div(decimal.NewFromInt(q.RateDen))
}

// RateLabel renders the rate, e.g. "1 G = 10 U".
func (q Quote) RateLabel() string {
	return fmt.Sprintf("1 %s = %s %s", q.Direction.Source(), q.Rate().String(), q.Direction.Destination())
}

// PriceImpact renders the nominal impact, e.g. "< 0.1%".
func (q Quote) PriceImpact() string {
	pct := decimal.New(q.PriceImpactBasisPoints, -2)
	ceil := decimal.New(1, -1)
	if pct.LessThan(ceil) {
		return "< 0.1%"
	}
	return pct.String() + "%"
}

type Service struct {
	exchange catalog.Exchange
	now      func() time.Time
}

func NewService(ex catalog.Exchange) *Service {
	return &Service{exchange: ex, now: time.Now}
}

// SetClock overrides the quote timestamp source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ratio returns the multiplier num/den for converting in direction d.
// G→U multiplies by U/G and U→G by G/U, so the two are exact reciprocals.
func (s *Service) ratio(d wallet.Direction) (int64, int64) {
	r := s.exchange.Rate
	if d == wallet.UtilityToGovernance {
		return r.Governance, r.Utility
	}
	return r.Utility, r.Governance
}

// Quote prices a swap of input in direction d. Output is truncated to the
// minor unit.
func (s *Service) Quote(d wallet.Direction, input wallet.Amount) (Quote, error) {
	if !d.Valid() {
		return Quote{}, fmt.Errorf("%w: %q", wallet.ErrInvalidDirection, d)
	}
	if input <= 0 {
		return Quote{}, fmt.Errorf("%w: must be greater than zero", wallet.ErrInvalidAmount)
	}
	num, den := s.ratio(d)
	out, err := wallet.MulDiv(input, num, den)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Direction:              d,
		Input:                  input,
		Output:                 out,
		RateNum:                num,
		RateDen:                den,
		NetworkFee:             s.exchange.NetworkFee,
		PriceImpactBasisPoints: s.exchange.PriceImpactBasisPoints,
		QuotedAt:               s.now(),
	}, nil
}
