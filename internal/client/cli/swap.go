package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dualwallet/internal/flow"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

const maxAmount = "max"

func (a *App) Swap(ctx context.Context, args []string) error {
	dirArg, err := argOrPrompt(a.reader, a.out, args, 0, "Direction (g2u or u2g)")
	if err != nil {
		return err
	}
	dir, err := wallet.ParseDirection(dirArg)
	if err != nil {
		return a.report(ctx, "swap", err)
	}
	amountArg, err := argOrPrompt(a.reader, a.out, args, 1, "Amount (or 'max')")
	if err != nil {
		return err
	}

	s := flow.NewSwap(a.engine, a.config.AccountID)
	if err := s.SetDirection(dir); err != nil {
		return a.report(ctx, "swap", err)
	}
	if err := setAmount(ctx, s, amountArg); err != nil {
		return a.report(ctx, "swap", err)
	}

	q, err := s.Review(ctx)
	if err != nil {
		return a.report(ctx, "swap", err)
	}
	fmt.Fprintf(a.out, "You pay:      %s %s\n", q.Input, dir.Source())
	fmt.Fprintf(a.out, "You receive:  %s %s\n", q.Output, dir.Destination())
	fmt.Fprintf(a.out, "Rate:         %s\n", q.RateLabel())
	fmt.Fprintf(a.out, "Network fee:  %s\n", q.NetworkFee)
	fmt.Fprintf(a.out, "Price impact: %s\n", q.PriceImpact())

	ok, err := GetConfirmation(a.reader, "Confirm swap?", a.out)
	if err != nil || !ok {
		_ = s.Cancel()
		fmt.Fprintln(a.out, "Swap cancelled.")
		return err
	}
	rec, err := s.Confirm(ctx)
	if err != nil {
		return a.report(ctx, "swap", err)
	}
	fmt.Fprintf(a.out, "Swapped %s %s for %s %s\n", rec.Amount.Neg(), rec.Token, q.Output, dir.Destination())
	return nil
}

type amountSetter interface {
	SetAmount(wallet.Amount) error
	UseMax(ctx context.Context) (wallet.Amount, error)
}

// setAmount parses arg into the flow, "max" meaning the whole balance.
func setAmount(ctx context.Context, f amountSetter, arg string) error {
	if strings.EqualFold(arg, maxAmount) {
		_, err := f.UseMax(ctx)
		return err
	}
	amount, err := wallet.ParseAmount(arg)
	if err != nil {
		return err
	}
	return f.SetAmount(amount)
}
