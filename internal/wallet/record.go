package wallet

import (
	"fmt"
	"time"
)

// Balances are the two token balances of one account. Both are never negative.
type Balances struct {
	Utility    Amount `json:"utility"`
	Governance Amount `json:"governance"`
}

// Of returns the balance of token t.
func (b Balances) Of(t Token) Amount {
	if t == Governance {
		return b.Governance
	}
	return b.Utility
}

// With returns a copy of b with delta added to token t.
func (b Balances) With(t Token, delta Amount) Balances {
	if t == Governance {
		b.Governance += delta
	} else {
		b.Utility += delta
	}
	return b
}

// Account is created lazily with zero balances and never deleted.
type Account struct {
	ID        string
	Balances  Balances
	CreatedAt time.Time
}

// Kind is the type of a ledger event.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindEarn     Kind = "earn"
	KindSwap     Kind = "swap"
	KindStake    Kind = "stake"
	KindUnlock   Kind = "unlock"
	KindSend     Kind = "send"
	KindReceive  Kind = "receive"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPurchase, KindEarn, KindSwap, KindStake, KindUnlock, KindSend, KindReceive:
		return true
	}
	return false
}

// Status of a transaction record or a payment order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether s may move to next. Only a pending item
// may be resolved, and only once.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.Terminal()
}

// Record is one immutable, append-only ledger event.
type Record struct {
	ID        string
	AccountID string
	Kind      Kind
	Token     Token
	// Amount is signed: credits are positive, debits negative.
	Amount    Amount
	Timestamp time.Time
	Status    Status
	Reference string
	Label     string
	SubLabel  string
	Metadata  map[string]string
}

// Validate checks the fields every persisted record must carry.
func (r *Record) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("record: empty id")
	case r.AccountID == "":
		return fmt.Errorf("record %s: empty account id", r.ID)
	case !r.Kind.Valid():
		return fmt.Errorf("record %s: unknown kind %q", r.ID, r.Kind)
	case !r.Token.Valid():
		return fmt.Errorf("record %s: unknown token %q", r.ID, r.Token)
	case r.Status != StatusPending && !r.Status.Terminal():
		return fmt.Errorf("record %s: unknown status %q", r.ID, r.Status)
	case r.Timestamp.IsZero():
		return fmt.Errorf("record %s: missing timestamp", r.ID)
	}
	return nil
}

// Meta returns the metadata value for key, or "".
func (r *Record) Meta(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}
