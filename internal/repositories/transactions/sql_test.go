package transactions

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
)

var columns = []string{"id", "account_id", "kind", "token", "amount", "status", "reference", "label", "sub_label", "metadata", "created_at"}

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sqlx.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	xdb := sqlx.NewDb(db, "sqlmock")
	return NewSQLRepository(xdb), mock, xdb
}

func sampleRecord() wallet.Record {
	return wallet.Record{
		ID:        "r1",
		AccountID: "acc-1",
		Kind:      wallet.KindSwap,
		Token:     wallet.Governance,
		Amount:    -wallet.Tokens(100),
		Timestamp: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		Status:    wallet.StatusCompleted,
		Label:     "Swap G → U",
		SubLabel:  "Rate: 1 G = 10 U",
		Metadata:  map[string]string{"to_amount": "1000.00"},
	}
}

func TestInsert_WritesAllColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rec := sampleRecord()
	mock.ExpectExec(`INSERT INTO transactions .* VALUES \(\?, \?, \?, \?, \?, \?, \?, \?, \?, \?, \?\)`).
		WithArgs("r1", "acc-1", "swap", "G", int64(-10000), "completed", "", "Swap G → U", "Rate: 1 G = 10 U",
			`{"to_amount":"1000.00"}`, rec.Timestamp.UnixMicro()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Insert(context.Background(), &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO transactions`).WillReturnError(errors.New("duplicate key"))

	rec := sampleRecord()
	err := repo.Insert(context.Background(), &rec)
	if err == nil || !regexp.MustCompile(`db error: .*duplicate key`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListByAccount_ScansRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := sampleRecord()
	rows := sqlmock.NewRows(columns).
		AddRow("r1", "acc-1", "swap", "G", int64(-10000), "completed", "", "Swap G → U", "Rate: 1 G = 10 U",
			`{"to_amount":"1000.00"}`, want.Timestamp.UnixMicro())
	mock.ExpectQuery(`FROM transactions WHERE account_id = \? ORDER BY created_at, id`).
		WithArgs("acc-1").
		WillReturnRows(rows)

	got, err := repo.ListByAccount(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]wallet.Record{want}, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestListByAccount_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM transactions`).WithArgs("acc-1").WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.ListByAccount(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

func TestListByAccount_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("r1", "acc-1", "swap", "G", int64(1), "completed", "", "", "", "{}", int64(0)).
		RowError(0, errors.New("row boom"))
	mock.ExpectQuery(`FROM transactions`).WithArgs("acc-1").WillReturnRows(rows)

	if _, err := repo.ListByAccount(context.Background(), "acc-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM transactions WHERE account_id = \? AND id = \?`).
		WithArgs("acc-1", "nope").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Get(context.Background(), "acc-1", "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestGet_BadMetadata(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("r1", "acc-1", "swap", "G", int64(1), "completed", "", "", "", "{not json", int64(0))
	mock.ExpectQuery(`FROM transactions`).WithArgs("acc-1", "r1").WillReturnRows(rows)

	if _, err := repo.Get(context.Background(), "acc-1", "r1"); err == nil {
		t.Fatal("expected metadata decode error")
	}
}

func TestUpdateStatus_GuardsOnCurrentStatus(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE transactions SET status = \? WHERE account_id = \? AND id = \? AND status = \?`).
		WithArgs("completed", "acc-1", "r1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), "acc-1", "r1", wallet.StatusPending, wallet.StatusCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatus_NoRowMatched(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE transactions SET status`).
		WithArgs("failed", "acc-1", "r1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "acc-1", "r1", wallet.StatusPending, wallet.StatusFailed)
	if !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
}

func TestUpdateStatus_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE transactions SET status`).WillReturnError(errors.New("connection reset"))

	err := repo.UpdateStatus(context.Background(), "acc-1", "r1", wallet.StatusPending, wallet.StatusFailed)
	if err == nil || !regexp.MustCompile(`db error: .*connection reset`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
