package wallet

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Amount
		wantErr bool
	}{
		{name: "whole", in: "100", want: 10000},
		{name: "one decimal", in: "12.5", want: 1250},
		{name: "two decimals", in: "0.01", want: 1},
		{name: "spaces", in: "  7.25 ", want: 725},
		{name: "zero", in: "0", wantErr: true},
		{name: "negative", in: "-5", wantErr: true},
		{name: "too precise", in: "1.001", wantErr: true},
		{name: "garbage", in: "abc", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "too large", in: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAmount))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "12.50", Amount(1250).String())
	assert.Equal(t, "0.01", Amount(1).String())
	assert.Equal(t, "-10.00", Amount(-1000).String())
	assert.Equal(t, "4500.00", Tokens(4500).String())
}

func TestMulDiv(t *testing.T) {
	got, err := MulDiv(Tokens(100), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, Tokens(1000), got)

	got, err = MulDiv(Amount(15), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, Amount(1), got, "truncates toward zero")

	// the intermediate product exceeds int64 but the result fits
	got, err = MulDiv(Amount(math.MaxInt64), 3, 4)
	require.NoError(t, err)
	assert.Equal(t, Amount(6917529027641081855), got)

	_, err = MulDiv(Amount(math.MaxInt64), 2, 1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = MulDiv(Amount(-1), 1, 1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = MulDiv(Amount(1), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindInsufficientFunds, KindOf(ErrInsufficientFunds))
	assert.Equal(t, KindInvalidAmount, KindOf(errors.Join(errors.New("ctx"), ErrInvalidAmount)))
	assert.Equal(t, KindSettlementTimeout, KindOf(ErrSettlementTimeout))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestDirection(t *testing.T) {
	d, err := ParseDirection("g2u")
	require.NoError(t, err)
	assert.Equal(t, GovernanceToUtility, d)
	assert.Equal(t, Governance, d.Source())
	assert.Equal(t, Utility, d.Destination())
	assert.Equal(t, UtilityToGovernance, d.Reverse())
	assert.Equal(t, "G → U", d.String())

	_, err = ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusPending.CanTransitionTo(StatusFailed))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusFailed))
	assert.False(t, StatusFailed.CanTransitionTo(StatusCompleted))
}

func TestBalances_With(t *testing.T) {
	b := Balances{Utility: 100, Governance: 50}
	b2 := b.With(Governance, -20).With(Utility, 5)
	assert.Equal(t, Balances{Utility: 105, Governance: 30}, b2)
	assert.Equal(t, Amount(100), b.Of(Utility), "receiver is a copy")
}
