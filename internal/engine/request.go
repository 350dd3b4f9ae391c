package engine

import "github.com/dmitrijs2005/dualwallet/internal/wallet"

// Request is one money-affecting operation. It is implemented only by the
// request types of this package.
type Request interface {
	Kind() wallet.Kind
	isRequest()
}

// PurchaseRequest credits the Utility tokens of a package whose fiat
// payment was settled under SettlementRef.
type PurchaseRequest struct {
	PackageID     string
	Method        string
	SettlementRef string
}

// SwapRequest exchanges Amount of the direction's source token.
type SwapRequest struct {
	Direction wallet.Direction
	Amount    wallet.Amount
}

// StakeRequest locks Amount of Governance in Tier.
type StakeRequest struct {
	Amount wallet.Amount
	Tier   wallet.Tier
}

func (PurchaseRequest) Kind() wallet.Kind { return wallet.KindPurchase }
func (SwapRequest) Kind() wallet.Kind     { return wallet.KindSwap }
func (StakeRequest) Kind() wallet.Kind    { return wallet.KindStake }

func (PurchaseRequest) isRequest() {}
func (SwapRequest) isRequest()     {}
func (StakeRequest) isRequest()    {}
