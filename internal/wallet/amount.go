package wallet

import (
	"fmt"
	"math"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// UnitsPerToken is the number of minor units in one whole token.
const UnitsPerToken = 100

const amountExp = 2

// Amount is a fixed-point token quantity counted in minor units.
type Amount int64

// Tokens converts a whole-token count to an Amount.
func Tokens(n int64) Amount {
	return Amount(n * UnitsPerToken)
}

// ParseAmount parses a user-entered positive decimal such as "12.5".
// Zero, negative, malformed input and anything finer than the minor unit
// are rejected with ErrInvalidAmount.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal converts a positive decimal to minor units.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	scaled := d.Shift(amountExp)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, amountExp)
	}
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	return Amount(scaled.IntPart()), nil
}

// Decimal returns the amount in whole tokens.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -amountExp)
}

// String renders the amount with exactly two decimals, e.g. "12.50".
func (a Amount) String() string {
	return a.Decimal().StringFixed(amountExp)
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return -a
}

// MulDiv returns a*num/den rounded toward zero. The product is computed in
// 256 bits so it cannot overflow; a result that does not fit an Amount is
// rejected as ErrInvalidAmount.
func MulDiv(a Amount, num, den int64) (Amount, error) {
	if a < 0 || num < 0 || den <= 0 {
		return 0, fmt.Errorf("%w: negative operand", ErrInvalidAmount)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(
		uint256.NewInt(uint64(a)),
		uint256.NewInt(uint64(num)),
		uint256.NewInt(uint64(den)),
	)
	if overflow || !z.IsUint64() || z.Uint64() > math.MaxInt64 {
		return 0, fmt.Errorf("%w: result overflows", ErrInvalidAmount)
	}
	return Amount(z.Uint64()), nil
}
