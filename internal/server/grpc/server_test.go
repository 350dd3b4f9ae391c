package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/dmitrijs2005/dualwallet/internal/engine"
	"github.com/dmitrijs2005/dualwallet/internal/flow"
	"github.com/dmitrijs2005/dualwallet/internal/history"
	"github.com/dmitrijs2005/dualwallet/internal/ledger"
	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/server/auth"
	"github.com/dmitrijs2005/dualwallet/internal/settlement"
	"github.com/dmitrijs2005/dualwallet/internal/votingpower"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const testSecret = "test-secret"

type fakeReceipts struct{}

func (fakeReceipts) URL(_ context.Context, accountID, recordID string) (string, error) {
	return "https://s3.local/receipts/" + accountID + "/" + recordID + ".json", nil
}

type rpcCall struct{ method, code string }

type fakeRecorder struct {
	mu    sync.Mutex
	calls []rpcCall
}

func (f *fakeRecorder) RPC(method, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rpcCall{method, code})
}

func (f *fakeRecorder) snapshot() []rpcCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rpcCall(nil), f.calls...)
}

type testEnv struct {
	client   *Client
	store    *ledger.MemoryStore
	registry *settlement.Registry
	recorder *fakeRecorder
}

type envOption func(*Deps, *RateLimit)

func withReceipts(d *Deps, _ *RateLimit) { d.Receipts = fakeReceipts{} }

func withLimit(rps float64, burst int) envOption {
	return func(_ *Deps, l *RateLimit) { *l = RateLimit{RPS: rps, Burst: burst} }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))

	store := ledger.NewMemoryStore()
	cat := catalog.Default()
	eng := engine.New(store, cat)
	registry := settlement.NewRegistry()
	sessions := flow.NewSessions(eng, registry, 5*time.Second, logger)
	scores := votingpower.NewStaticScores(votingpower.Scores{SelfStake: 80, DelegatedTrust: 60, Consistency: 50})
	recorder := &fakeRecorder{}

	deps := Deps{
		Wallet:      eng,
		Purchases:   sessions,
		History:     history.NewService(eng),
		VotingPower: votingpower.NewEngine(eng, scores, eng, cat.VotingPower),
		Metrics:     recorder,
	}
	var limit RateLimit
	for _, o := range opts {
		o(&deps, &limit)
	}

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", logger, deps, testSecret, limit)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
		sessions.Close()
	})

	return &testEnv{client: NewClient(conn), store: store, registry: registry, recorder: recorder}
}

func (e *testEnv) seed(t *testing.T, accountID string, u, g int64) {
	t.Helper()
	ctx := context.Background()
	_, err := e.store.ApplyDelta(ctx, accountID, wallet.Utility, wallet.Tokens(u))
	require.NoError(t, err)
	_, err = e.store.ApplyDelta(ctx, accountID, wallet.Governance, wallet.Tokens(g))
	require.NoError(t, err)
}

func authed(t *testing.T, accountID string) context.Context {
	t.Helper()
	tok, err := auth.GenerateToken(accountID, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok)
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func nested(s *structpb.Struct, key string) *structpb.Struct {
	return s.GetFields()[key].GetStructValue()
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.NewSlogLogger(slog.New(slog.DiscardHandler)), Deps{}, "secret", RateLimit{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err, "Run returned error on graceful stop")
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.NewSlogLogger(slog.New(slog.DiscardHandler)), Deps{}, "secret", RateLimit{})
	require.Error(t, srv.Run(context.Background()))
}

func TestAuth_MissingAndInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Call(context.Background(), MethodGetBalances, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "not.a.jwt")
	_, err = env.client.Call(bad, MethodGetBalances, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGetBalancesAndCatalog(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "acc", 1250, 4500)
	ctx := authed(t, "acc")

	out, err := env.client.Call(ctx, MethodGetBalances, nil)
	require.NoError(t, err)
	assert.Equal(t, "acc", str(out, "account_id"))
	assert.Equal(t, "1250.00", str(out, "utility"))
	assert.Equal(t, "4500.00", str(out, "governance"))

	cat, err := env.client.Call(ctx, MethodGetCatalog, nil)
	require.NoError(t, err)
	packages := cat.GetFields()["packages"].GetListValue().GetValues()
	require.Len(t, packages, len(catalog.Default().Packages))
	assert.Equal(t, "pack-5", str(packages[0].GetStructValue(), "id"))
	assert.Equal(t, "USD 5.00", str(packages[0].GetStructValue(), "price"))
}

func TestQuoteAndSwap(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "acc", 0, 4500)
	ctx := authed(t, "acc")

	q, err := env.client.Call(ctx, MethodQuote, map[string]any{"direction": "G_TO_U", "amount": "100"})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", str(q, "output"))
	assert.Equal(t, "1 G = 10 U", str(q, "rate"))

	out, err := env.client.Call(ctx, MethodSwap, map[string]any{"direction": "G_TO_U", "amount": "100"})
	require.NoError(t, err)
	rec := nested(out, "record")
	assert.Equal(t, "swap", str(rec, "kind"))
	assert.Equal(t, "-100.00", str(rec, "amount"))
	assert.Equal(t, "1000.00", str(nested(rec, "metadata"), engine.MetaToAmount))

	bal, err := env.client.Call(ctx, MethodGetBalances, nil)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", str(bal, "utility"))
	assert.Equal(t, "4400.00", str(bal, "governance"))
}

func TestSwap_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "acc", 0, 10)
	ctx := authed(t, "acc")

	tests := []struct {
		name string
		in   map[string]any
		code codes.Code
	}{
		{"insufficient funds", map[string]any{"direction": "G_TO_U", "amount": "11"}, codes.FailedPrecondition},
		{"bad direction", map[string]any{"direction": "sideways", "amount": "1"}, codes.InvalidArgument},
		{"missing amount", map[string]any{"direction": "G_TO_U"}, codes.InvalidArgument},
		{"zero amount", map[string]any{"direction": "G_TO_U", "amount": "0"}, codes.InvalidArgument},
		{"garbage amount", map[string]any{"direction": "G_TO_U", "amount": "ten"}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.Call(ctx, MethodSwap, tt.in)
			assert.Equal(t, tt.code, status.Code(err), "err: %v", err)
		})
	}

	bal, err := env.client.Call(ctx, MethodGetBalances, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.00", str(bal, "governance"))
}

func TestStakeAndPositions(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "acc", 0, 1000)
	ctx := authed(t, "acc")

	plan, err := env.client.Call(ctx, MethodPlanStake, map[string]any{"amount": "1000", "tier": "long"})
	require.NoError(t, err)
	assert.Equal(t, "12%", str(plan, "apy"))
	assert.Equal(t, "120.00", str(plan, "projected_yield"))

	out, err := env.client.Call(ctx, MethodStake, map[string]any{"amount": "400", "tier": "90"})
	require.NoError(t, err)
	assert.Equal(t, "-400.00", str(nested(out, "record"), "amount"))

	_, err = env.client.Call(ctx, MethodStake, map[string]any{"amount": "601"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = env.client.Call(ctx, MethodStake, map[string]any{"amount": "1", "tier": "forever"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	pos, err := env.client.Call(ctx, MethodGetStakePositions, nil)
	require.NoError(t, err)
	list := pos.GetFields()["positions"].GetListValue().GetValues()
	require.Len(t, list, 1)
	p := list[0].GetStructValue()
	assert.Equal(t, "400.00", str(p, "amount"))
	assert.Equal(t, "long", str(p, "tier"))
	assert.True(t, p.GetFields()["locked"].GetBoolValue())

	vp, err := env.client.Call(ctx, MethodGetVotingPower, nil)
	require.NoError(t, err)
	assert.Equal(t, "600.00", str(vp, "governance_balance"))
	assert.Equal(t, "1.50x", str(vp, "multiplier"))
}

func TestPurchase_SettledThroughGateway(t *testing.T) {
	env := newTestEnv(t)
	ctx := authed(t, "acc")

	started, err := env.client.Call(ctx, MethodStartPurchase, map[string]any{"package_id": "pack-5", "method_id": "card"})
	require.NoError(t, err)
	assert.Equal(t, string(flow.StateAwaitingSettlement), str(started, "state"))
	ref := str(nested(started, "order"), "reference")
	require.NotEmpty(t, ref)

	_, err = env.client.Call(authed(t, "other"), MethodGetPurchase, map[string]any{"reference": ref})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.registry.Resolve(ref, wallet.StatusCompleted)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		out, err := env.client.Call(ctx, MethodGetPurchase, map[string]any{"reference": ref})
		return err == nil && str(out, "state") == string(flow.StateCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	bal, err := env.client.Call(ctx, MethodGetBalances, nil)
	require.NoError(t, err)
	assert.Equal(t, "500.00", str(bal, "utility"))
}

func TestPurchase_CancelAndValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := authed(t, "acc")

	_, err := env.client.Call(ctx, MethodStartPurchase, map[string]any{"package_id": "pack-7", "method_id": "card"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.client.Call(ctx, MethodStartPurchase, map[string]any{"package_id": "pack-5"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	started, err := env.client.Call(ctx, MethodStartPurchase, map[string]any{"package_id": "pack-10", "method_id": "qr"})
	require.NoError(t, err)
	ref := str(nested(started, "order"), "reference")

	out, err := env.client.Call(ctx, MethodCancelPurchase, map[string]any{"reference": ref})
	require.NoError(t, err)
	assert.Equal(t, string(flow.StateCancelled), str(out, "state"))

	_, err = env.client.Call(ctx, MethodCancelPurchase, map[string]any{"reference": ref})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	bal, err := env.client.Call(ctx, MethodGetBalances, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.00", str(bal, "utility"))
}

func TestQueryHistory(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "acc", 0, 500)
	ctx := authed(t, "acc")

	_, err := env.client.Call(ctx, MethodSwap, map[string]any{"direction": "G_TO_U", "amount": "50"})
	require.NoError(t, err)
	_, err = env.client.Call(ctx, MethodStake, map[string]any{"amount": "100", "tier": "short"})
	require.NoError(t, err)

	all, err := env.client.Call(ctx, MethodQueryHistory, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, all.GetFields()["count"].GetNumberValue())
	groups := all.GetFields()["groups"].GetListValue().GetValues()
	require.Len(t, groups, 1)
	assert.Equal(t, "Today", str(groups[0].GetStructValue(), "label"))

	swaps, err := env.client.Call(ctx, MethodQueryHistory, map[string]any{"category": "swap", "timezone": "UTC"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, swaps.GetFields()["count"].GetNumberValue())

	_, err = env.client.Call(ctx, MethodQueryHistory, map[string]any{"category": "gifts"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = env.client.Call(ctx, MethodQueryHistory, map[string]any{"from": "yesterday"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetReceiptURL(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.client.Call(authed(t, "acc"), MethodGetReceiptURL, map[string]any{"record_id": "x"})
		assert.Equal(t, codes.Unavailable, status.Code(err))
	})

	t.Run("enabled", func(t *testing.T) {
		env := newTestEnv(t, withReceipts)
		env.seed(t, "acc", 0, 10)
		ctx := authed(t, "acc")

		out, err := env.client.Call(ctx, MethodStake, map[string]any{"amount": "5"})
		require.NoError(t, err)
		id := str(nested(out, "record"), "id")

		url, err := env.client.Call(ctx, MethodGetReceiptURL, map[string]any{"record_id": id})
		require.NoError(t, err)
		assert.Equal(t, "https://s3.local/receipts/acc/"+id+".json", str(url, "url"))

		_, err = env.client.Call(ctx, MethodGetReceiptURL, map[string]any{"record_id": "missing"})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestRateLimit_OnlyCommands(t *testing.T) {
	env := newTestEnv(t, withLimit(0.001, 1))
	env.seed(t, "acc", 0, 100)
	ctx := authed(t, "acc")

	_, err := env.client.Call(ctx, MethodStake, map[string]any{"amount": "1"})
	require.NoError(t, err)
	_, err = env.client.Call(ctx, MethodStake, map[string]any{"amount": "1"})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// queries are not limited
	for i := 0; i < 3; i++ {
		_, err = env.client.Call(ctx, MethodGetBalances, nil)
		require.NoError(t, err)
	}

	// a different account has its own bucket
	env.seed(t, "other", 0, 100)
	_, err = env.client.Call(authed(t, "other"), MethodStake, map[string]any{"amount": "1"})
	require.NoError(t, err)
}

func TestAccountLimiter_PrunesIdleAccounts(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newAccountLimiter(rate.Limit(0.001), 1)
	l.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		require.True(t, l.allow(fmt.Sprintf("acc-%d", i)))
	}
	now = now.Add(10 * time.Minute)
	require.False(t, l.allow("acc-0"))
	assert.Equal(t, 100, l.size())

	assert.Equal(t, 99, l.prune(now.Add(-time.Minute)))
	assert.Equal(t, 1, l.size())

	// a pruned account starts with a fresh bucket
	assert.True(t, l.allow("acc-1"))
	assert.False(t, l.allow("acc-0"))
}

func TestPruneLimiters_DisabledLimit(t *testing.T) {
	s := NewGRPCServer("127.0.0.1:0", logging.NewSlogLogger(slog.New(slog.DiscardHandler)), Deps{}, testSecret, RateLimit{})
	assert.Equal(t, 0, s.PruneLimiters(time.Now()))
}

func TestMetricsInterceptor_RecordsCodes(t *testing.T) {
	env := newTestEnv(t)

	_, _ = env.client.Call(context.Background(), MethodGetBalances, nil)
	_, err := env.client.Call(authed(t, "acc"), MethodGetBalances, nil)
	require.NoError(t, err)

	assert.Equal(t, []rpcCall{
		{MethodGetBalances, codes.Unauthenticated.String()},
		{MethodGetBalances, codes.OK.String()},
	}, env.recorder.snapshot())
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{nil, codes.OK},
		{common.ErrorNotFound, codes.NotFound},
		{flow.ErrSessionNotFound, codes.NotFound},
		{flow.ErrFlowClosed, codes.FailedPrecondition},
		{wallet.ErrInsufficientFunds, codes.FailedPrecondition},
		{wallet.ErrInvalidAmount, codes.InvalidArgument},
		{wallet.ErrUnknownPackage, codes.InvalidArgument},
		{wallet.ErrSettlementTimeout, codes.DeadlineExceeded},
		{wallet.ErrConcurrentModification, codes.Aborted},
		{context.Canceled, codes.Canceled},
		{status.Error(codes.ResourceExhausted, "slow down"), codes.ResourceExhausted},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus(tt.err)), "err: %v", tt.err)
	}

	assert.Equal(t, "internal error", status.Convert(toStatus(errors.New("secret detail"))).Message())
}
