package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/flow"
	"github.com/dmitrijs2005/dualwallet/internal/settlement"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a domain error to a gRPC status. Internal errors are logged
// by the caller and reach the client without details.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, settlement.ErrOrderNotFound),
		errors.Is(err, flow.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, flow.ErrInvalidTransition),
		errors.Is(err, flow.ErrFlowClosed),
		errors.Is(err, flow.ErrSelectionRequired),
		errors.Is(err, settlement.ErrAlreadyResolved):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	switch wallet.KindOf(err) {
	case wallet.KindInsufficientFunds, wallet.KindSettlementFailed:
		return status.Error(codes.FailedPrecondition, err.Error())
	case wallet.KindInvalidAmount, wallet.KindUnknownPackage, wallet.KindUnknownMethod,
		wallet.KindUnknownTier, wallet.KindInvalidDirection:
		return status.Error(codes.InvalidArgument, err.Error())
	case wallet.KindSettlementTimeout:
		return status.Error(codes.DeadlineExceeded, err.Error())
	case wallet.KindConcurrentModification:
		return status.Error(codes.Aborted, err.Error())
	case wallet.KindCancelled:
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}
