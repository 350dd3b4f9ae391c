package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/history"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
)

// parseHistoryArgs reads an optional category and token in any order; the
// remaining words form the search text.
func parseHistoryArgs(args []string) history.Filter {
	var f history.Filter
	var search []string
	for _, arg := range args {
		if c, err := history.ParseCategory(arg); err == nil && f.Category == "" {
			f.Category = c
			continue
		}
		if t, err := wallet.ParseToken(arg); err == nil && f.Token == "" {
			f.Token = t
			continue
		}
		search = append(search, arg)
	}
	f.Search = strings.Join(search, " ")
	return f
}

func (a *App) History(ctx context.Context, args []string) error {
	f := parseHistoryArgs(args)
	f.Location = time.Local

	records, err := a.history.Query(ctx, a.config.AccountID, f)
	if err != nil {
		return a.report(ctx, "history", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No transactions.")
		return nil
	}
	for _, g := range history.Group(records, a.now(), time.Local) {
		fmt.Fprintln(a.out, g.Label)
		for _, r := range g.Records {
			fmt.Fprintf(a.out, "  %s  %-22s %12s %s  %s\n",
				r.Timestamp.In(time.Local).Format("15:04"), r.Label, signed(r.Amount), r.Token, r.Status)
			if r.SubLabel != "" {
				fmt.Fprintf(a.out, "         %s\n", r.SubLabel)
			}
		}
	}
	return nil
}

func signed(a wallet.Amount) string {
	if a > 0 {
		return "+" + a.String()
	}
	return a.String()
}
