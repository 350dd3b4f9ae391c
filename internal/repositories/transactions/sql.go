// Package transactions provides SQL-backed, append-only storage of
// transaction records.
package transactions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/dbx"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/jmoiron/sqlx"
)

const selectRecords = `SELECT id, account_id, kind, token, amount, status, reference, label, sub_label, metadata, created_at
	FROM transactions`

type recordRow struct {
	ID        string `db:"id"`
	AccountID string `db:"account_id"`
	Kind      string `db:"kind"`
	Token     string `db:"token"`
	Amount    int64  `db:"amount"`
	Status    string `db:"status"`
	Reference string `db:"reference"`
	Label     string `db:"label"`
	SubLabel  string `db:"sub_label"`
	Metadata  string `db:"metadata"`
	CreatedAt int64  `db:"created_at"`
}

func (r recordRow) toRecord() (wallet.Record, error) {
	rec := wallet.Record{
		ID:        r.ID,
		AccountID: r.AccountID,
		Kind:      wallet.Kind(r.Kind),
		Token:     wallet.Token(r.Token),
		Amount:    wallet.Amount(r.Amount),
		Timestamp: time.UnixMicro(r.CreatedAt).UTC(),
		Status:    wallet.Status(r.Status),
		Reference: r.Reference,
		Label:     r.Label,
		SubLabel:  r.SubLabel,
	}
	if r.Metadata != "" && r.Metadata != "{}" {
		if err := json.Unmarshal([]byte(r.Metadata), &rec.Metadata); err != nil {
			return wallet.Record{}, fmt.Errorf("record %s: decode metadata: %w", r.ID, err)
		}
	}
	return rec, nil
}

// SQLRepository implements record storage over a dbx.DBTX (*sqlx.DB or *sqlx.Tx).
type SQLRepository struct {
	db dbx.DBTX
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

// ErrStatusChanged means the record no longer had the expected status.
var ErrStatusChanged = errors.New("record status changed")

// Insert appends rec. Only its status may change later, see UpdateStatus.
func (r *SQLRepository) Insert(ctx context.Context, rec *wallet.Record) error {
	meta := []byte("{}")
	if len(rec.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(rec.Metadata); err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}
	query := `INSERT INTO transactions
		(id, account_id, kind, token, amount, status, reference, label, sub_label, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		rec.ID, rec.AccountID, string(rec.Kind), string(rec.Token), int64(rec.Amount), string(rec.Status),
		rec.Reference, rec.Label, rec.SubLabel, string(meta), rec.Timestamp.UnixMicro())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByAccount returns all records of accountID in append order.
func (r *SQLRepository) ListByAccount(ctx context.Context, accountID string) ([]wallet.Record, error) {
	var rows []recordRow
	query := selectRecords + ` WHERE account_id = ? ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), accountID); err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	result := make([]wallet.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

// Get returns one record of accountID or common.ErrorNotFound.
func (r *SQLRepository) Get(ctx context.Context, accountID, id string) (*wallet.Record, error) {
	var row recordRow
	query := selectRecords + ` WHERE account_id = ? AND id = ?`
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(query), accountID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	rec, err := row.toRecord()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateStatus moves record id from one status to another. It fails with
// ErrStatusChanged when the stored status is not from.
func (r *SQLRepository) UpdateStatus(ctx context.Context, accountID, id string, from, to wallet.Status) error {
	query := `UPDATE transactions SET status = ? WHERE account_id = ? AND id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), string(to), accountID, id, string(from))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, ErrStatusChanged)
	}
	return nil
}
