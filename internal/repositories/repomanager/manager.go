package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dualwallet/internal/dbx"
	"github.com/dmitrijs2005/dualwallet/internal/repositories/accounts"
	"github.com/dmitrijs2005/dualwallet/internal/repositories/transactions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Transactions(db dbx.DBTX) transactions.Repository
}
