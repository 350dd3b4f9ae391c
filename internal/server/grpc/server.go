// Package grpc exposes the wallet as the wallet.v1.WalletService gRPC API.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/flow"
	"github.com/dmitrijs2005/dualwallet/internal/history"
	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/settlement"
	"github.com/dmitrijs2005/dualwallet/internal/staking"
	"github.com/dmitrijs2005/dualwallet/internal/votingpower"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

// Wallet is the engine surface used by the handlers.
type Wallet interface {
	flow.Engine
	Balances(ctx context.Context, accountID string) (wallet.Balances, error)
	Record(ctx context.Context, accountID, recordID string) (wallet.Record, error)
	StakePositions(ctx context.Context, accountID string) ([]staking.Position, error)
}

// Purchases keeps server-side purchase flows.
type Purchases interface {
	Start(ctx context.Context, accountID, packageID, methodID string) (*flow.Purchase, settlement.Order, error)
	Get(accountID, reference string) (*flow.Purchase, error)
	Cancel(ctx context.Context, accountID, reference string) (flow.Snapshot, error)
}

type History interface {
	Query(ctx context.Context, accountID string, f history.Filter) ([]wallet.Record, error)
}

type VotingPower interface {
	Compute(ctx context.Context, accountID string) (votingpower.Snapshot, error)
}

// Receipts hands out receipt download links.
type Receipts interface {
	URL(ctx context.Context, accountID, recordID string) (string, error)
}

// RPCRecorder counts finished calls by method and status code.
type RPCRecorder interface {
	RPC(method, code string)
}

// Deps are the services behind the API. Receipts and Metrics may be nil.
type Deps struct {
	Wallet      Wallet
	Purchases   Purchases
	History     History
	VotingPower VotingPower
	Receipts    Receipts
	Metrics     RPCRecorder
}

// RateLimit bounds mutating calls per account. Zero RPS disables it.
type RateLimit struct {
	RPS   float64
	Burst int
}

type GRPCServer struct {
	address   string
	deps      Deps
	logger    logging.Logger
	jwtSecret []byte
	limiter   *accountLimiter
	now       func() time.Time
}

var _ WalletServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(address string, l logging.Logger, deps Deps, secretKey string, limit RateLimit) *GRPCServer {
	var lim *accountLimiter
	if limit.RPS > 0 {
		lim = newAccountLimiter(rate.Limit(limit.RPS), limit.Burst)
	}
	return &GRPCServer{
		address:   address,
		deps:      deps,
		logger:    logging.ForModule(l, "grpc_server"),
		jwtSecret: []byte(secretKey),
		limiter:   lim,
		now:       time.Now,
	}
}

// PruneLimiters drops the rate limit state of accounts idle since cutoff and
// reports how many were dropped.
func (s *GRPCServer) PruneLimiters(cutoff time.Time) int {
	if s.limiter == nil {
		return 0
	}
	return s.limiter.prune(cutoff)
}

// NewServer builds a grpc.Server with the interceptor chain and the service
// registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		s.metricsInterceptor,
		s.accessTokenInterceptor,
		s.rateLimitInterceptor,
	))
	srv := grpc.NewServer(opts...)
	RegisterWalletServiceServer(srv, s)
	return srv
}

// Run listens on the configured address until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
