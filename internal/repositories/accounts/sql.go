// Package accounts provides SQL-backed storage of account balances.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/dbx"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/jmoiron/sqlx"
)

const selectAccount = `SELECT id, utility_balance, governance_balance, created_at FROM accounts WHERE id = ?`

type accountRow struct {
	ID         string `db:"id"`
	Utility    int64  `db:"utility_balance"`
	Governance int64  `db:"governance_balance"`
	CreatedAt  int64  `db:"created_at"`
}

func (r accountRow) toAccount() *wallet.Account {
	return &wallet.Account{
		ID: r.ID,
		Balances: wallet.Balances{
			Utility:    wallet.Amount(r.Utility),
			Governance: wallet.Amount(r.Governance),
		},
		CreatedAt: time.UnixMicro(r.CreatedAt).UTC(),
	}
}

// SQLRepository implements account storage over a dbx.DBTX (*sqlx.DB or *sqlx.Tx).
type SQLRepository struct {
	db dbx.DBTX
	// lockRows appends FOR UPDATE to GetForUpdate (PostgreSQL only).
	lockRows bool
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX, lockRows bool) *SQLRepository {
	return &SQLRepository{db: db, lockRows: lockRows}
}

// Create inserts a zero-balance account unless it already exists.
func (r *SQLRepository) Create(ctx context.Context, id string, createdAt time.Time) error {
	query := `INSERT INTO accounts (id, utility_balance, governance_balance, created_at)
		VALUES (?, 0, 0, ?)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), id, createdAt.UnixMicro()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the account or common.ErrorNotFound.
func (r *SQLRepository) Get(ctx context.Context, id string) (*wallet.Account, error) {
	return r.get(ctx, selectAccount, id)
}

// GetForUpdate reads the account and, where the driver supports it, locks
// its row until the surrounding transaction ends.
func (r *SQLRepository) GetForUpdate(ctx context.Context, id string) (*wallet.Account, error) {
	query := selectAccount
	if r.lockRows {
		query += " FOR UPDATE"
	}
	return r.get(ctx, query, id)
}

func (r *SQLRepository) get(ctx context.Context, query, id string) (*wallet.Account, error) {
	var row accountRow
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return row.toAccount(), nil
}

// UpdateBalances overwrites both balances of an existing account.
func (r *SQLRepository) UpdateBalances(ctx context.Context, id string, b wallet.Balances) error {
	query := `UPDATE accounts SET utility_balance = ?, governance_balance = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), int64(b.Utility), int64(b.Governance), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
