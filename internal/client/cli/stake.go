package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dualwallet/internal/flow"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

// Stake escrows Governance tokens. The tier defaults to flexible.
func (a *App) Stake(ctx context.Context, args []string) error {
	amountArg, err := argOrPrompt(a.reader, a.out, args, 0, "Amount of G to stake (or 'max')")
	if err != nil {
		return err
	}
	tier := wallet.TierFlexible
	if len(args) > 1 {
		if tier, err = wallet.ParseTier(args[1]); err != nil {
			return a.report(ctx, "stake", err)
		}
	}

	s := flow.NewStake(a.engine, a.config.AccountID)
	if err := s.SetTier(tier); err != nil {
		return a.report(ctx, "stake", err)
	}
	if err := setAmount(ctx, s, amountArg); err != nil {
		return a.report(ctx, "stake", err)
	}

	plan, err := s.Preview()
	if err != nil {
		return a.report(ctx, "stake", err)
	}
	fmt.Fprintf(a.out, "Stake:           %s G (%s)\n", plan.Amount, plan.TierName)
	fmt.Fprintf(a.out, "APY:             %s\n", plan.APY())
	fmt.Fprintf(a.out, "Projected yield: %s G\n", plan.ProjectedYield)
	fmt.Fprintf(a.out, "Voting boost:    %s (%s)\n", plan.VotingPowerBoost, plan.Multiplier())
	if plan.LockDays > 0 {
		fmt.Fprintf(a.out, "Unlocks:         %s\n", plan.UnlocksAt(a.now()).Format("Jan 2, 2006"))
	}

	ok, err := GetConfirmation(a.reader, "Confirm stake?", a.out)
	if err != nil || !ok {
		_ = s.Cancel()
		fmt.Fprintln(a.out, "Stake cancelled.")
		return err
	}
	rec, err := s.Confirm(ctx)
	if err != nil {
		return a.report(ctx, "stake", err)
	}
	fmt.Fprintf(a.out, "Staked %s G (%s)\n", rec.Amount.Neg(), rec.SubLabel)
	return nil
}
