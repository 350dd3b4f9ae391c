package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	args  [][]string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return nil
}

func (f *fakeExec) Balance(ctx context.Context) error  { return f.record("balance", nil) }
func (f *fakeExec) Packages(ctx context.Context) error { return f.record("packages", nil) }
func (f *fakeExec) Buy(ctx context.Context, args []string) error {
	return f.record("buy", args)
}
func (f *fakeExec) Swap(ctx context.Context, args []string) error {
	return f.record("swap", args)
}
func (f *fakeExec) Stake(ctx context.Context, args []string) error {
	return f.record("stake", args)
}
func (f *fakeExec) History(ctx context.Context, args []string) error {
	return f.record("history", args)
}
func (f *fakeExec) Positions(ctx context.Context) error { return f.record("positions", nil) }
func (f *fakeExec) Power(ctx context.Context) error     { return f.record("power", nil) }

func stubPrint(t *testing.T) *[]string {
	t.Helper()
	var printed []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		for _, v := range a {
			if s, ok := v.(string); ok {
				printed = append(printed, s)
			}
		}
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &printed
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	stubPrint(t)

	input := strings.Join([]string{
		"help",
		"balance",
		"",
		"packages",
		"buy pack-10 qr",
		"SWAP g2u max",
		"stake 10 long",
		"history swap G",
		"positions",
		"power",
		"exit",
		"balance",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{"balance", "packages", "buy", "swap", "stake", "history", "positions", "power"}, exec.calls)
	assert.Equal(t, []string{"pack-10", "qr"}, exec.args[2])
	assert.Equal(t, []string{"g2u", "max"}, exec.args[3])
	assert.Equal(t, []string{"swap", "G"}, exec.args[5])
}

func TestRunREPL_UnknownCommandAndEOF(t *testing.T) {
	printed := stubPrint(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(strings.NewReader("foobar\npower")))

	assert.Equal(t, []string{"power"}, exec.calls, "last line without newline still runs")
	assert.Contains(t, *printed, "Unknown command:")
}
