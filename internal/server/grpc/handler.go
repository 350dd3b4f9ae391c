package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/flow"
	"github.com/dmitrijs2005/dualwallet/internal/history"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) account(ctx context.Context) (string, error) {
	id, ok := AccountIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, common.ErrorUnauthorized.Error())
	}
	return id, nil
}

// fail logs internal failures and converts err to a status.
func (s *GRPCServer) fail(ctx context.Context, method string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
	}
	return st
}

func (s *GRPCServer) GetBalances(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	b, err := s.deps.Wallet.Balances(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, MethodGetBalances, err)
	}
	return respond(balancesValue(accountID, b))
}

func (s *GRPCServer) GetCatalog(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return respond(catalogValue(s.deps.Wallet.Catalog()))
}

func (s *GRPCServer) Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := wallet.ParseDirection(field(req, "direction"))
	if err != nil {
		return nil, toStatus(err)
	}
	amount, err := amountField(req, "amount")
	if err != nil {
		return nil, err
	}
	q, err := s.deps.Wallet.Quote(d, amount)
	if err != nil {
		return nil, s.fail(ctx, MethodQuote, err)
	}
	return respond(quoteValue(q))
}

func (s *GRPCServer) PlanStake(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	amount, err := amountField(req, "amount")
	if err != nil {
		return nil, err
	}
	tier, err := tierField(req)
	if err != nil {
		return nil, err
	}
	plan, err := s.deps.Wallet.PlanStake(amount, tier)
	if err != nil {
		return nil, s.fail(ctx, MethodPlanStake, err)
	}
	return respond(planValue(plan))
}

// Swap runs a swap flow end to end: amount entry, review, confirm.
func (s *GRPCServer) Swap(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	d, err := wallet.ParseDirection(field(req, "direction"))
	if err != nil {
		return nil, toStatus(err)
	}
	amount, err := amountField(req, "amount")
	if err != nil {
		return nil, err
	}

	f := flow.NewSwap(s.deps.Wallet, accountID)
	if err := f.SetDirection(d); err != nil {
		return nil, s.fail(ctx, MethodSwap, err)
	}
	if err := f.SetAmount(amount); err != nil {
		return nil, s.fail(ctx, MethodSwap, err)
	}
	q, err := f.Review(ctx)
	if err != nil {
		return nil, s.fail(ctx, MethodSwap, err)
	}
	rec, err := f.Confirm(ctx)
	if err != nil {
		return nil, s.fail(ctx, MethodSwap, err)
	}
	return respond(map[string]any{"quote": quoteValue(q), "record": recordValue(*rec)})
}

func (s *GRPCServer) Stake(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := amountField(req, "amount")
	if err != nil {
		return nil, err
	}
	tier, err := tierField(req)
	if err != nil {
		return nil, err
	}

	f := flow.NewStake(s.deps.Wallet, accountID)
	if err := f.SetTier(tier); err != nil {
		return nil, s.fail(ctx, MethodStake, err)
	}
	if err := f.SetAmount(amount); err != nil {
		return nil, s.fail(ctx, MethodStake, err)
	}
	plan, err := f.Preview()
	if err != nil {
		return nil, s.fail(ctx, MethodStake, err)
	}
	rec, err := f.Confirm(ctx)
	if err != nil {
		return nil, s.fail(ctx, MethodStake, err)
	}
	return respond(map[string]any{"plan": planValue(plan), "record": recordValue(*rec)})
}

// StartPurchase opens a purchase flow and returns the settlement order the
// payer has to complete.
func (s *GRPCServer) StartPurchase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	packageID, err := required(req, "package_id")
	if err != nil {
		return nil, err
	}
	methodID, err := required(req, "method_id")
	if err != nil {
		return nil, err
	}

	p, order, err := s.deps.Purchases.Start(ctx, accountID, packageID, methodID)
	if err != nil {
		return nil, s.fail(ctx, MethodStartPurchase, err)
	}
	out := snapshotValue(p.Snapshot())
	out["order"] = orderValue(order)
	return respond(out)
}

func (s *GRPCServer) GetPurchase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	ref, err := required(req, "reference")
	if err != nil {
		return nil, err
	}
	p, err := s.deps.Purchases.Get(accountID, ref)
	if err != nil {
		return nil, s.fail(ctx, MethodGetPurchase, err)
	}
	out := snapshotValue(p.Snapshot())
	out["order"] = orderValue(p.Order())
	return respond(out)
}

func (s *GRPCServer) CancelPurchase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	ref, err := required(req, "reference")
	if err != nil {
		return nil, err
	}
	snap, err := s.deps.Purchases.Cancel(ctx, accountID, ref)
	if err != nil {
		return nil, s.fail(ctx, MethodCancelPurchase, err)
	}
	return respond(snapshotValue(snap))
}

// QueryHistory accepts category, token, from and to (YYYY-MM-DD), search
// and timezone (IANA name), all optional.
func (s *GRPCServer) QueryHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	f, err := historyFilter(req)
	if err != nil {
		return nil, err
	}
	recs, err := s.deps.History.Query(ctx, accountID, f)
	if err != nil {
		return nil, s.fail(ctx, MethodQueryHistory, err)
	}
	return respond(map[string]any{
		"count":  len(recs),
		"groups": groupsValue(history.Group(recs, s.now(), f.Location)),
	})
}

// tierField defaults to the flexible tier.
func tierField(req *structpb.Struct) (wallet.Tier, error) {
	v := field(req, "tier")
	if v == "" {
		return wallet.TierFlexible, nil
	}
	t, err := wallet.ParseTier(v)
	if err != nil {
		return "", toStatus(err)
	}
	return t, nil
}

func historyFilter(req *structpb.Struct) (history.Filter, error) {
	var f history.Filter
	var err error

	f.Location = time.UTC
	if tz := field(req, "timezone"); tz != "" {
		if f.Location, err = time.LoadLocation(tz); err != nil {
			return f, status.Errorf(codes.InvalidArgument, "timezone: %v", err)
		}
	}
	if c := field(req, "category"); c != "" {
		if f.Category, err = history.ParseCategory(c); err != nil {
			return f, status.Error(codes.InvalidArgument, err.Error())
		}
	}
	if t := field(req, "token"); t != "" {
		if f.Token, err = wallet.ParseToken(t); err != nil {
			return f, status.Error(codes.InvalidArgument, err.Error())
		}
	}
	if d := field(req, "from"); d != "" {
		if f.From, err = time.ParseInLocation(dateLayout, d, f.Location); err != nil {
			return f, status.Errorf(codes.InvalidArgument, "from: %v", err)
		}
	}
	if d := field(req, "to"); d != "" {
		if f.To, err = time.ParseInLocation(dateLayout, d, f.Location); err != nil {
			return f, status.Errorf(codes.InvalidArgument, "to: %v", err)
		}
	}
	f.Search = field(req, "search")
	return f, nil
}

func (s *GRPCServer) GetVotingPower(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.deps.VotingPower.Compute(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, MethodGetVotingPower, err)
	}
	return respond(votingPowerValue(snap))
}

func (s *GRPCServer) GetStakePositions(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	positions, err := s.deps.Wallet.StakePositions(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, MethodGetStakePositions, err)
	}
	now := s.now()
	list := make([]any, 0, len(positions))
	for _, p := range positions {
		list = append(list, positionValue(p, now))
	}
	return respond(map[string]any{"positions": list})
}

func (s *GRPCServer) GetReceiptURL(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	if s.deps.Receipts == nil {
		return nil, status.Error(codes.Unavailable, "receipts are disabled")
	}
	recordID, err := required(req, "record_id")
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Wallet.Record(ctx, accountID, recordID); err != nil {
		return nil, s.fail(ctx, MethodGetReceiptURL, err)
	}
	url, err := s.deps.Receipts.URL(ctx, accountID, recordID)
	if err != nil {
		return nil, s.fail(ctx, MethodGetReceiptURL, err)
	}
	return respond(map[string]any{"url": url})
}
