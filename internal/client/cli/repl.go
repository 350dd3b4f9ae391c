package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Balance(ctx context.Context) error
	Packages(ctx context.Context) error
	Buy(ctx context.Context, args []string) error
	Swap(ctx context.Context, args []string) error
	Stake(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Positions(ctx context.Context) error
	Power(ctx context.Context) error
}

const helpText = `Available commands:
  balance                          show both balances
  packages                         list Utility packages and payment methods
  buy <package> <method>           buy a Utility package
  swap <g2u|u2g> <amount|max>      exchange tokens
  stake <amount|max> [tier]        stake Governance (flexible, short, long)
  history [category] [U|G] [text]  list transactions by day
  positions                        list stake positions
  power                            show voting power
  exit | quit                      leave the program`

// runREPL starts a read–eval–print loop over the wallet commands.
//
// It reads a line from reader, parses the first token as the command and
// dispatches the rest as arguments. The loop exits on EOF or when the user
// types "exit" or "quit". Handlers report their own errors, so they are
// ignored here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("wallet> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "h":
			printlnFn(helpText)

		case "balance", "b":
			_ = a.Balance(ctx)

		case "packages":
			_ = a.Packages(ctx)

		case "buy":
			_ = a.Buy(ctx, args)

		case "swap":
			_ = a.Swap(ctx, args)

		case "stake":
			_ = a.Stake(ctx, args)

		case "history":
			_ = a.History(ctx, args)

		case "positions":
			_ = a.Positions(ctx)

		case "power":
			_ = a.Power(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
