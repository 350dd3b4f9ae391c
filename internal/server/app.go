// Package server initializes and runs the wallet server: storage, the
// transaction engine with its observers, purchase sessions, and the gRPC and
// HTTP endpoints. It handles graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/dbx"
	"github.com/dmitrijs2005/dualwallet/internal/engine"
	"github.com/dmitrijs2005/dualwallet/internal/events"
	"github.com/dmitrijs2005/dualwallet/internal/flow"
	"github.com/dmitrijs2005/dualwallet/internal/history"
	"github.com/dmitrijs2005/dualwallet/internal/ledger"
	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/metrics"
	"github.com/dmitrijs2005/dualwallet/internal/receipts"
	"github.com/dmitrijs2005/dualwallet/internal/repositories/repomanager"
	"github.com/dmitrijs2005/dualwallet/internal/server/config"
	"github.com/dmitrijs2005/dualwallet/internal/server/httpapi"
	"github.com/dmitrijs2005/dualwallet/internal/settlement"
	"github.com/dmitrijs2005/dualwallet/internal/votingpower"
	"github.com/jmoiron/sqlx"

	gs "github.com/dmitrijs2005/dualwallet/internal/server/grpc"
)

const (
	housekeepingInterval = time.Minute
	orderRetention       = time.Hour
	// orders stay at least this long past the settlement timeout, so a
	// flow still waiting never finds its order expired under it
	expirySlack = time.Minute
	limiterIdle = 10 * time.Minute
)

// defaultScores stand in for the reputation service until one is connected.
var defaultScores = votingpower.Scores{SelfStake: 85, DelegatedTrust: 45, Consistency: 92}

type App struct {
	config    *config.Config
	logger    logging.Logger
	closers   []func() error
	db        *sqlx.DB
	registry  *settlement.Registry
	sessions  *flow.Sessions
	grpc      *gs.GRPCServer
	http      *httpapi.Server
	publisher *events.Publisher
	receipts  *receipts.Store
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, logCloser := logging.New(logging.FileOptions{Service: "wallet-server", Path: c.LogFile})
	app := &App{config: c, logger: logger}
	app.closers = append(app.closers, logCloser.Close)

	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	cat := catalog.Default()
	if c.CatalogPath != "" {
		var err error
		if cat, err = catalog.Load(c.CatalogPath); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
	}

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	db, err := dbx.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)
	if err := rm.RunMigrations(ctx, db.DB); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	m := metrics.New()
	observers := []engine.Observer{engine.NewAuditObserver(app.logger), m}

	if c.RabbitMQURL != "" {
		pub, err := events.NewRabbitMQPublisher(c.RabbitMQURL, c.RabbitMQExchange, app.logger)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		app.publisher = pub
		observers = append(observers, pub)
	}

	if c.ReceiptsEnabled {
		rs, err := receipts.New(ctx, receipts.Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		}, app.logger)
		if err != nil {
			return fmt.Errorf("receipts: %w", err)
		}
		app.receipts = rs
		observers = append(observers, rs)
	}

	store := ledger.NewSQLStore(db, rm, ledger.WithLockTimeout(c.LockTimeout))
	eng := engine.New(store, cat,
		engine.WithObservers(observers...),
		engine.WithLogger(app.logger),
	)

	app.registry = settlement.NewRegistry(settlement.WithResolveHook(m.SettlementResolved))
	app.sessions = flow.NewSessions(eng, app.registry, c.SettlementTimeout, app.logger)

	deps := gs.Deps{
		Wallet:      eng,
		Purchases:   app.sessions,
		History:     history.NewService(eng),
		VotingPower: votingpower.NewEngine(eng, votingpower.NewStaticScores(defaultScores), eng, cat.VotingPower),
		Metrics:     m,
	}
	if app.receipts != nil {
		deps.Receipts = app.receipts
	}
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger, deps, c.SecretKey,
		gs.RateLimit{RPS: c.RateLimitRPS, Burst: c.RateLimitBurst})

	router := httpapi.NewRouter(httpapi.Config{
		Metrics: m.Handler(),
		Webhook: settlement.NewWebhookHandler(app.registry, c.WebhookSecret, app.logger),
		Ready:   db.PingContext,
	})
	app.http = httpapi.NewServer(c.EndpointAddrHTTP, router, app.logger)
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// orderCutoff is the instant before which pending orders may be expired.
func orderCutoff(now time.Time, settlementTimeout time.Duration) time.Time {
	return now.Add(-(max(orderRetention, settlementTimeout) + expirySlack))
}

// housekeeping expires stale settlement orders, forgets finished purchase
// flows and drops rate limit state of idle accounts.
func (app *App) housekeeping(ctx context.Context) {
	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := orderCutoff(now, app.config.SettlementTimeout)
			orders := app.registry.Expire(cutoff)
			flows := app.sessions.Prune(cutoff)
			limiters := app.grpc.PruneLimiters(now.Add(-limiterIdle))
			if orders > 0 || flows > 0 || limiters > 0 {
				app.logger.Info(ctx, "housekeeping", "orders", orders, "flows", flows, "limiters", limiters)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.housekeeping(ctx)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "Stopping app...")
	app.close()
}

// close releases resources in reverse order of acquisition, after pending
// background work has drained.
func (app *App) close() {
	if app.sessions != nil {
		app.sessions.Close()
	}
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Warn(context.Background(), "rabbitmq close", "error", err)
		}
	}
	if app.receipts != nil {
		app.receipts.Close()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		_ = app.closers[i]()
	}
	app.closers = nil
}
