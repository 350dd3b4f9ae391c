package transactions

import (
	"context"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

type Repository interface {
	Insert(ctx context.Context, rec *wallet.Record) error
	ListByAccount(ctx context.Context, accountID string) ([]wallet.Record, error)
	Get(ctx context.Context, accountID, id string) (*wallet.Record, error)
	UpdateStatus(ctx context.Context, accountID, id string, from, to wallet.Status) error
}
