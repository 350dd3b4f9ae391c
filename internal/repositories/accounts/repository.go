package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

type Repository interface {
	Create(ctx context.Context, id string, createdAt time.Time) error
	Get(ctx context.Context, id string) (*wallet.Account, error)
	GetForUpdate(ctx context.Context, id string) (*wallet.Account, error)
	UpdateBalances(ctx context.Context, id string, b wallet.Balances) error
}
