package grpc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/server/auth"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const accountIDKey ctxKey = "accountID"

// commands are the mutating methods subject to rate limiting.
var commands = map[string]bool{
	FullMethod(MethodSwap):           true,
	FullMethod(MethodStake):          true,
	FullMethod(MethodStartPurchase):  true,
	FullMethod(MethodCancelPurchase): true,
}

// AccountIDFromContext returns the account authenticated by the interceptor.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	accountID, err := auth.AccountIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	ctx = logging.WithAccount(ctx, accountID)
	return handler(context.WithValue(ctx, accountIDKey, accountID), req)
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.limiter == nil || !commands[info.FullMethod] {
		return handler(ctx, req)
	}
	accountID, _ := AccountIDFromContext(ctx)
	if !s.limiter.allow(accountID) {
		return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}
	return handler(ctx, req)
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if s.deps.Metrics != nil {
		method := info.FullMethod[strings.LastIndex(info.FullMethod, "/")+1:]
		s.deps.Metrics.RPC(method, status.Code(err).String())
	}
	return resp, err
}

// accountLimiter keeps one token bucket per account. Buckets of accounts that
// went quiet are dropped by prune.
type accountLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	now      func() time.Time
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newAccountLimiter(limit rate.Limit, burst int) *accountLimiter {
	if burst < 1 {
		burst = 1
	}
	return &accountLimiter{
		limit:    limit,
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

func (l *accountLimiter) allow(accountID string) bool {
	l.mu.Lock()
	e, ok := l.limiters[accountID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[accountID] = e
	}
	e.seen = l.now()
	l.mu.Unlock()
	return e.lim.Allow()
}

// prune forgets buckets not used since cutoff. A forgotten account starts
// again with a full burst.
func (l *accountLimiter) prune(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, e := range l.limiters {
		if e.seen.Before(cutoff) {
			delete(l.limiters, id)
			n++
		}
	}
	return n
}

func (l *accountLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
