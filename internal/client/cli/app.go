package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/client/config"
	"github.com/dmitrijs2005/dualwallet/internal/dbx"
	"github.com/dmitrijs2005/dualwallet/internal/engine"
	"github.com/dmitrijs2005/dualwallet/internal/filex"
	"github.com/dmitrijs2005/dualwallet/internal/history"
	"github.com/dmitrijs2005/dualwallet/internal/ledger"
	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/repositories/repomanager"
	"github.com/dmitrijs2005/dualwallet/internal/settlement"
	"github.com/dmitrijs2005/dualwallet/internal/votingpower"
)

const databaseDriver = "sqlite"

// localScores seed voting power for the offline wallet.
var localScores = votingpower.Scores{SelfStake: 85, DelegatedTrust: 45, Consistency: 92}

type App struct {
	config   *config.Config
	logger   logging.Logger
	closers  []func() error
	engine   *engine.Engine
	registry *settlement.Registry
	history  *history.Service
	power    *votingpower.Engine
	reader   *bufio.Reader
	out      io.Writer
	now      func() time.Time
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdin, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	logger, logCloser := logging.NewFileLogger(logging.FileOptions{Service: "wallet-cli", Path: c.LogFile})
	app := &App{
		config: c,
		logger: logger,
		reader: bufio.NewReader(in),
		out:    out,
		now:    time.Now,
	}
	app.closers = append(app.closers, logCloser.Close)

	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cat := catalog.Default()
	if a.config.CatalogPath != "" {
		var err error
		if cat, err = catalog.Load(a.config.CatalogPath); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
	}

	rm, err := repomanager.NewRepositoryManager(databaseDriver)
	if err != nil {
		return err
	}
	if err := filex.EnsureDirFor(a.config.DatabasePath); err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	db, err := dbx.Open(ctx, databaseDriver, a.config.DatabasePath)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := rm.RunMigrations(ctx, db.DB); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	store := ledger.NewSQLStore(db, rm)
	a.engine = engine.New(store, cat,
		engine.WithObservers(engine.NewAuditObserver(a.logger)),
		engine.WithLogger(a.logger),
	)
	a.registry = settlement.NewRegistry()
	a.history = history.NewService(a.engine)
	a.power = votingpower.NewEngine(a.engine, votingpower.NewStaticScores(localScores), a.engine, cat.VotingPower)

	if _, err := a.engine.EnsureAccount(ctx, a.config.AccountID); err != nil {
		return fmt.Errorf("account: %w", err)
	}
	return nil
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.close()
	ctx = logging.WithAccount(ctx, a.config.AccountID)
	a.logger.Info(ctx, "wallet session started")
	fmt.Fprintf(a.out, "Wallet %s. Type 'help' for commands.\n", a.config.AccountID)
	runREPL(ctx, a, func() string { return a.status(ctx) }, a.reader)
}

// status renders both balances for the prompt.
func (a *App) status(ctx context.Context) string {
	b, err := a.engine.Balances(ctx, a.config.AccountID)
	if err != nil {
		return "balance unavailable"
	}
	return fmt.Sprintf("%s U | %s G", b.Utility, b.Governance)
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

// report prints a command failure and logs it.
func (a *App) report(ctx context.Context, op string, err error) error {
	fmt.Fprintf(a.out, "%s failed: %v\n", op, err)
	a.logger.Warn(ctx, op+" failed", "error", err)
	return err
}
