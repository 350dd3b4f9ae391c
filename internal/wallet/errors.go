package wallet

import (
	"context"
	"errors"
)

var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrUnknownPackage         = errors.New("unknown package")
	ErrSettlementTimeout      = errors.New("settlement timeout")
	ErrConcurrentModification = errors.New("concurrent modification")

	ErrSettlementFailed = errors.New("settlement failed")
	ErrUnknownMethod    = errors.New("unknown payment method")
	ErrUnknownTier      = errors.New("unknown staking tier")
	ErrInvalidDirection = errors.New("invalid swap direction")
)

// ErrorKind is the stable, user-facing classification of a failure.
type ErrorKind string

const (
	KindNone                   ErrorKind = ""
	KindInsufficientFunds      ErrorKind = "insufficient_funds"
	KindInvalidAmount          ErrorKind = "invalid_amount"
	KindUnknownPackage         ErrorKind = "unknown_package"
	KindSettlementTimeout      ErrorKind = "settlement_timeout"
	KindConcurrentModification ErrorKind = "concurrent_modification"
	KindSettlementFailed       ErrorKind = "settlement_failed"
	KindUnknownMethod          ErrorKind = "unknown_method"
	KindUnknownTier            ErrorKind = "unknown_tier"
	KindInvalidDirection       ErrorKind = "invalid_direction"
	KindCancelled              ErrorKind = "cancelled"
	KindInternal               ErrorKind = "internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrUnknownPackage, KindUnknownPackage},
	{ErrSettlementTimeout, KindSettlementTimeout},
	{ErrConcurrentModification, KindConcurrentModification},
	{ErrSettlementFailed, KindSettlementFailed},
	{ErrUnknownMethod, KindUnknownMethod},
	{ErrUnknownTier, KindUnknownTier},
	{ErrInvalidDirection, KindInvalidDirection},
	{context.Canceled, KindCancelled},
}

// KindOf classifies err. Unrecognised errors are KindInternal, nil is KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
