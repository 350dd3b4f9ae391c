package cli

import (
	"context"
	"fmt"
)

func (a *App) Balance(ctx context.Context) error {
	b, err := a.engine.Balances(ctx, a.config.AccountID)
	if err != nil {
		return a.report(ctx, "balance", err)
	}
	fmt.Fprintf(a.out, "Utility (U):    %s\nGovernance (G): %s\n", b.Utility, b.Governance)
	return nil
}

// Packages lists what can be bought and how it can be paid for.
func (a *App) Packages(ctx context.Context) error {
	cat := a.engine.Catalog()
	fmt.Fprintln(a.out, "Packages:")
	for _, p := range cat.Packages {
		bonus := ""
		if p.BonusPercent > 0 {
			bonus = fmt.Sprintf(" (+%d%% bonus)", p.BonusPercent)
		}
		fmt.Fprintf(a.out, "  %-10s %s U for %s%s\n", p.ID, p.Credit(), p.NominalPrice(), bonus)
	}
	fmt.Fprintln(a.out, "Payment methods:")
	for _, m := range cat.PaymentMethods {
		fmt.Fprintf(a.out, "  %-10s %s, %s\n", m.ID, m.Name, m.Description)
	}
	return nil
}

func (a *App) Positions(ctx context.Context) error {
	positions, err := a.engine.StakePositions(ctx, a.config.AccountID)
	if err != nil {
		return a.report(ctx, "positions", err)
	}
	if len(positions) == 0 {
		fmt.Fprintln(a.out, "No stake positions.")
		return nil
	}
	now := a.now()
	for _, p := range positions {
		state := "unlocked"
		if p.Locked(now) {
			state = "locked until " + p.UnlocksAt.Local().Format("Jan 2, 2006")
		}
		fmt.Fprintf(a.out, "  %s G  %-8s %s APY  %s\n",
			p.Amount, p.Tier, formatBasisPoints(p.APYBasisPoints), state)
	}
	return nil
}

func (a *App) Power(ctx context.Context) error {
	s, err := a.power.Compute(ctx, a.config.AccountID)
	if err != nil {
		return a.report(ctx, "power", err)
	}
	fmt.Fprintf(a.out, "Total voting power: %s\n", s.TotalVotingPower)
	fmt.Fprintf(a.out, "  Governance balance: %s G\n", s.GovernanceBalance)
	fmt.Fprintf(a.out, "  Stake boost:        %s\n", s.StakeBoost)
	fmt.Fprintf(a.out, "  Multiplier:         %s\n", s.Multiplier())
	fmt.Fprintf(a.out, "Reputation:\n")
	fmt.Fprintf(a.out, "  Self stake:      %3d (%s)\n", s.SelfStake, s.SelfStakeTier)
	fmt.Fprintf(a.out, "  Delegated trust: %3d (%s)\n", s.DelegatedTrust, s.DelegatedTrustTier)
	fmt.Fprintf(a.out, "  Consistency:     %3d (%s)\n", s.Consistency, s.ConsistencyTier)
	return nil
}

func formatBasisPoints(bp int64) string {
	if bp%100 == 0 {
		return fmt.Sprintf("%d%%", bp/100)
	}
	return fmt.Sprintf("%d.%02d%%", bp/100, bp%100)
}
