package engine

import (
	"context"

	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

// AuditObserver writes an audit line for every committed record.
type AuditObserver struct {
	logger logging.Logger
}

func NewAuditObserver(l logging.Logger) *AuditObserver {
	return &AuditObserver{logger: logging.ForModule(l, "wallet")}
}

func (a *AuditObserver) RecordCommitted(ctx context.Context, rec wallet.Record) {
	a.logger.Info(ctx, "wallet action",
		"account", rec.AccountID,
		"action", rec.Kind,
		"token", rec.Token,
		"amount", rec.Amount.String(),
		"ref", rec.ID,
		"status", rec.Status,
	)
}

func (a *AuditObserver) OperationFailed(ctx context.Context, accountID string, kind wallet.Kind, err error) {
	a.logger.Warn(ctx, "wallet action failed",
		"account", accountID,
		"action", kind,
		"reason", wallet.KindOf(err),
	)
}
