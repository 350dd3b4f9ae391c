package grpc

import (
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/flow"
	"github.com/dmitrijs2005/dualwallet/internal/history"
	"github.com/dmitrijs2005/dualwallet/internal/quote"
	"github.com/dmitrijs2005/dualwallet/internal/settlement"
	"github.com/dmitrijs2005/dualwallet/internal/staking"
	"github.com/dmitrijs2005/dualwallet/internal/votingpower"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

func field(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func required(req *structpb.Struct, key string) (string, error) {
	v := field(req, key)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func amountField(req *structpb.Struct, key string) (wallet.Amount, error) {
	v, err := required(req, key)
	if err != nil {
		return 0, err
	}
	a, err := wallet.ParseAmount(v)
	if err != nil {
		return 0, toStatus(err)
	}
	return a, nil
}

func respond(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func recordValue(r wallet.Record) map[string]any {
	m := map[string]any{
		"id":        r.ID,
		"kind":      string(r.Kind),
		"token":     string(r.Token),
		"amount":    r.Amount.String(),
		"status":    string(r.Status),
		"reference": r.Reference,
		"label":     r.Label,
		"sub_label": r.SubLabel,
		"timestamp": timestamp(r.Timestamp),
	}
	if len(r.Metadata) > 0 {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		m["metadata"] = meta
	}
	return m
}

func recordList(recs []wallet.Record) []any {
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordValue(r))
	}
	return out
}

func balancesValue(accountID string, b wallet.Balances) map[string]any {
	return map[string]any{
		"account_id": accountID,
		"utility":    b.Utility.String(),
		"governance": b.Governance.String(),
	}
}

func catalogValue(c *catalog.Catalog) map[string]any {
	packages := make([]any, 0, len(c.Packages))
	for _, p := range c.Packages {
		packages = append(packages, map[string]any{
			"id":            p.ID,
			"price":         p.NominalPrice(),
			"points":        p.Credit().String(),
			"bonus_percent": p.BonusPercent,
		})
	}
	methods := make([]any, 0, len(c.PaymentMethods))
	for _, m := range c.PaymentMethods {
		methods = append(methods, map[string]any{
			"id":          m.ID,
			"name":        m.Name,
			"description": m.Description,
		})
	}
	tiers := make([]any, 0, len(c.StakeTiers))
	for _, t := range c.StakeTiers {
		tiers = append(tiers, map[string]any{
			"id":             string(t.ID),
			"name":           t.Name,
			"lock_days":      t.LockDays,
			"apy_bps":        t.APYBasisPoints,
			"multiplier_bps": t.MultiplierBasisPoints,
		})
	}
	return map[string]any{
		"packages":        packages,
		"payment_methods": methods,
		"stake_tiers":     tiers,
		"rate": map[string]any{
			"governance": c.Exchange.Rate.Governance,
			"utility":    c.Exchange.Rate.Utility,
		},
		"network_fee":      c.Exchange.NetworkFee,
		"price_impact_bps": c.Exchange.PriceImpactBasisPoints,
	}
}

func quoteValue(q quote.Quote) map[string]any {
	return map[string]any{
		"direction":    q.Direction.String(),
		"from_token":   string(q.Direction.Source()),
		"to_token":     string(q.Direction.Destination()),
		"input":        q.Input.String(),
		"output":       q.Output.String(),
		"rate":         q.RateLabel(),
		"network_fee":  q.NetworkFee,
		"price_impact": q.PriceImpact(),
		"quoted_at":    timestamp(q.QuotedAt),
	}
}

func planValue(p staking.Plan) map[string]any {
	return map[string]any{
		"tier":               string(p.Tier),
		"tier_name":          p.TierName,
		"amount":             p.Amount.String(),
		"lock_days":          p.LockDays,
		"apy":                p.APY(),
		"projected_yield":    p.ProjectedYield.String(),
		"multiplier":         p.Multiplier(),
		"voting_power_boost": p.VotingPowerBoost.String(),
	}
}

func orderValue(o settlement.Order) map[string]any {
	m := map[string]any{
		"reference":  o.Reference,
		"package_id": o.PackageID,
		"method":     o.Method,
		"price":      o.Price,
		"status":     string(o.Status),
		"created_at": timestamp(o.CreatedAt),
	}
	if o.Reason != "" {
		m["reason"] = o.Reason
	}
	if !o.ResolvedAt.IsZero() {
		m["resolved_at"] = timestamp(o.ResolvedAt)
	}
	return m
}

func snapshotValue(s flow.Snapshot) map[string]any {
	m := map[string]any{"state": string(s.State)}
	if s.ErrorKind != wallet.KindNone {
		m["error_kind"] = string(s.ErrorKind)
	}
	if s.Record != nil {
		m["record"] = recordValue(*s.Record)
	}
	return m
}

func groupsValue(groups []history.DayGroup) []any {
	out := make([]any, 0, len(groups))
	for _, g := range groups {
		out = append(out, map[string]any{
			"label":   g.Label,
			"date":    g.Date.Format(dateLayout),
			"records": recordList(g.Records),
		})
	}
	return out
}

func votingPowerValue(s votingpower.Snapshot) map[string]any {
	return map[string]any{
		"self_stake":           s.SelfStake,
		"self_stake_tier":      s.SelfStakeTier,
		"delegated_trust":      s.DelegatedTrust,
		"delegated_trust_tier": s.DelegatedTrustTier,
		"consistency":          s.Consistency,
		"consistency_tier":     s.ConsistencyTier,
		"multiplier":           s.Multiplier(),
		"governance_balance":   s.GovernanceBalance.String(),
		"total_voting_power":   s.TotalVotingPower.String(),
		"stake_boost":          s.StakeBoost.String(),
	}
}

func positionValue(p staking.Position, now time.Time) map[string]any {
	return map[string]any{
		"record_id":      p.RecordID,
		"amount":         p.Amount.String(),
		"tier":           string(p.Tier),
		"lock_days":      p.LockDays,
		"apy_bps":        p.APYBasisPoints,
		"multiplier_bps": p.MultiplierBasisPoints,
		"started_at":     timestamp(p.StartedAt),
		"unlocks_at":     timestamp(p.UnlocksAt),
		"locked":         p.Locked(now),
	}
}
