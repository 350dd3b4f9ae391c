package staking

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

// Position is an escrowed stake reconstructed from its ledger record.
type Position struct {
	RecordID              string
	Amount                wallet.Amount
	Tier                  wallet.Tier
	LockDays              int
	APYBasisPoints        int64
	MultiplierBasisPoints int64
	StartedAt             time.Time
	UnlocksAt             time.Time
}

// Locked reports whether the position is still inside its lock term.
func (p Position) Locked(now time.Time) bool {
	return now.Before(p.UnlocksAt)
}

// PositionFromRecord rebuilds a position from a completed stake record.
func PositionFromRecord(rec wallet.Record) (Position, bool) {
	if rec.Kind != wallet.KindStake || rec.Status != wallet.StatusCompleted {
		return Position{}, false
	}
	lockDays, _ := strconv.Atoi(rec.Meta(MetaLockDays))
	apy, _ := strconv.ParseInt(rec.Meta(MetaAPY), 10, 64)
	mult, err := strconv.ParseInt(rec.Meta(MetaMultiplier), 10, 64)
	if err != nil {
		mult = basisPointsFactor
	}
	unlocks, err := time.Parse(unlockTimeLayout, rec.Meta(MetaUnlocksAt))
	if err != nil {
		unlocks = rec.Timestamp.AddDate(0, 0, lockDays)
	}
	return Position{
		RecordID:              rec.ID,
		Amount:                -rec.Amount,
		Tier:                  wallet.Tier(rec.Meta(MetaTier)),
		LockDays:              lockDays,
		APYBasisPoints:        apy,
		MultiplierBasisPoints: mult,
		StartedAt:             rec.Timestamp,
		UnlocksAt:             unlocks,
	}, true
}

// Positions extracts stake positions from records, oldest first as given.
func Positions(records []wallet.Record) []Position {
	var out []Position
	for _, rec := range records {
		if p, ok := PositionFromRecord(rec); ok {
			out = append(out, p)
		}
	}
	return out
}
