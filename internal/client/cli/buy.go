package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dualwallet/internal/flow"
	"github.com/dmitrijs2005/dualwallet/internal/settlement"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

const methodCard = "card"

// Buy runs a purchase flow. The local registry stands in for the payment
// processor: the outcome is decided at the prompt and resolved before the
// flow waits for it.
func (a *App) Buy(ctx context.Context, args []string) error {
	pkgID, err := argOrPrompt(a.reader, a.out, args, 0, "Package (see 'packages')")
	if err != nil {
		return err
	}
	methodID, err := argOrPrompt(a.reader, a.out, args, 1, "Payment method")
	if err != nil {
		return err
	}

	p := flow.NewPurchase(a.engine, a.registry, a.config.AccountID, a.config.SettlementTimeout)
	if err := p.SelectPackage(pkgID); err != nil {
		return a.report(ctx, "buy", err)
	}
	if err := p.SelectMethod(methodID); err != nil {
		return a.report(ctx, "buy", err)
	}
	if err := p.Continue(); err != nil {
		return a.report(ctx, "buy", err)
	}

	pkg, method := p.Selection()
	fmt.Fprintf(a.out, "%s U for %s via %s\n", pkg.Credit(), pkg.NominalPrice(), method.Name)
	ok, err := GetConfirmation(a.reader, "Proceed to payment?", a.out)
	if err != nil || !ok {
		_ = p.Cancel(ctx)
		fmt.Fprintln(a.out, "Purchase cancelled.")
		return err
	}

	order, err := p.Confirm(ctx)
	if err != nil {
		return a.report(ctx, "buy", err)
	}

	status, err := a.collectPayment(method.ID, order)
	if err != nil || status == "" {
		_ = p.Cancel(ctx)
		fmt.Fprintln(a.out, "Purchase cancelled.")
		return err
	}
	if _, err := a.registry.Resolve(order.Reference, status); err != nil {
		return a.report(ctx, "buy", err)
	}

	snap, err := p.AwaitSettlement(ctx)
	if err != nil {
		return a.report(ctx, "buy", err)
	}
	if snap.State != flow.StateCompleted {
		fmt.Fprintf(a.out, "Payment failed: %v\n", snap.Err)
		return snap.Err
	}
	fmt.Fprintf(a.out, "Payment confirmed. +%s U (ref %s)\n", snap.Record.Amount, order.Reference)
	return nil
}

// collectPayment asks for the payment and returns the processor outcome.
// An empty status means the user backed out.
func (a *App) collectPayment(method string, order settlement.Order) (wallet.Status, error) {
	if method == methodCard {
		number, err := GetCardNumber(a.out)
		if err != nil {
			return "", err
		}
		if !validCardNumber(number) {
			fmt.Fprintln(a.out, "Card declined.")
			return wallet.StatusFailed, nil
		}
		return wallet.StatusCompleted, nil
	}

	fmt.Fprintf(a.out, "Pay %s with reference %s\n", order.Price, order.Reference)
	ok, err := GetConfirmation(a.reader, "Payment sent?", a.out)
	if err != nil || !ok {
		return "", err
	}
	return wallet.StatusCompleted, nil
}
