// Package engine executes purchases, swaps and stakes against the ledger.
// A successful Execute appends exactly one completed record; a failed one
// changes nothing.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/catalog"
	"github.com/dmitrijs2005/dualwallet/internal/ledger"
	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/quote"
	"github.com/dmitrijs2005/dualwallet/internal/staking"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/google/uuid"
)

// Record metadata keys.
const (
	MetaPackageID     = "package_id"
	MetaPaymentMethod = "payment_method"
	MetaSettlementRef = "settlement_ref"
	MetaBonusPercent  = "bonus_percent"
	MetaToToken       = "to_token"
	MetaToAmount      = "to_amount"
	MetaRate          = "rate"
	MetaNetworkFee    = "network_fee"
	MetaPriceImpact   = "price_impact_bps"
)

// Observer is notified after a record was committed. Observers cannot
// change the outcome of the operation.
type Observer interface {
	RecordCommitted(ctx context.Context, rec wallet.Record)
}

// FailureObserver is optionally implemented by observers that also want
// rejected operations.
type FailureObserver interface {
	OperationFailed(ctx context.Context, accountID string, kind wallet.Kind, err error)
}

type Option func(*Engine)

func WithObservers(obs ...Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, obs...) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIDGenerator replaces the uuid record id source.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

type Engine struct {
	store     ledger.Store
	catalog   *catalog.Catalog
	quotes    *quote.Service
	staking   *staking.Calculator
	observers []Observer
	logger    logging.Logger
	now       func() time.Time
	newID     func() string
}

func New(store ledger.Store, cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		catalog: cat,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.quotes = quote.NewService(cat.Exchange)
	e.quotes.SetClock(e.now)
	e.staking = staking.NewCalculator(cat.StakeTiers)
	return e
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Quote prices a swap without executing it.
func (e *Engine) Quote(d wallet.Direction, amount wallet.Amount) (quote.Quote, error) {
	return e.quotes.Quote(d, amount)
}

// PlanStake previews a stake without executing it.
func (e *Engine) PlanStake(amount wallet.Amount, tier wallet.Tier) (staking.Plan, error) {
	return e.staking.Plan(amount, tier)
}

func (e *Engine) EnsureAccount(ctx context.Context, accountID string) (wallet.Account, error) {
	return e.store.EnsureAccount(ctx, accountID)
}

func (e *Engine) Balances(ctx context.Context, accountID string) (wallet.Balances, error) {
	return e.store.Balances(ctx, accountID)
}

func (e *Engine) GetBalance(ctx context.Context, accountID string, token wallet.Token) (wallet.Amount, error) {
	return e.store.GetBalance(ctx, accountID, token)
}

func (e *Engine) Records(ctx context.Context, accountID string) ([]wallet.Record, error) {
	return e.store.Records(ctx, accountID)
}

func (e *Engine) Record(ctx context.Context, accountID, recordID string) (wallet.Record, error) {
	return e.store.Record(ctx, accountID, recordID)
}

// StakePositions lists the escrowed stakes found in the account's log.
func (e *Engine) StakePositions(ctx context.Context, accountID string) ([]staking.Position, error) {
	recs, err := e.store.Records(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return staking.Positions(recs), nil
}

// Execute runs req for accountID and returns the committed record.
func (e *Engine) Execute(ctx context.Context, accountID string, req Request) (*wallet.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		deltas []ledger.Delta
		rec    *wallet.Record
		err    error
	)
	switch r := req.(type) {
	case PurchaseRequest:
		deltas, rec, err = e.purchase(r)
	case SwapRequest:
		deltas, rec, err = e.swap(ctx, accountID, r)
	case StakeRequest:
		deltas, rec, err = e.stake(r)
	default:
		err = fmt.Errorf("unsupported request %T", req)
	}
	if err == nil {
		rec.AccountID = accountID
		_, err = e.store.Commit(ctx, accountID, deltas, rec)
	}
	if err != nil {
		kind := wallet.Kind("")
		if req != nil {
			kind = req.Kind()
		}
		e.notifyFailure(ctx, accountID, kind, err)
		return nil, err
	}

	for _, o := range e.observers {
		o.RecordCommitted(ctx, *rec)
	}
	return rec, nil
}

func (e *Engine) notifyFailure(ctx context.Context, accountID string, kind wallet.Kind, err error) {
	if e.logger != nil {
		e.logger.Warn(ctx, "operation rejected", "account", accountID, "op", kind, "error", err, "kind", wallet.KindOf(err))
	}
	for _, o := range e.observers {
		if fo, ok := o.(FailureObserver); ok {
			fo.OperationFailed(ctx, accountID, kind, err)
		}
	}
}

func (e *Engine) newRecord(kind wallet.Kind, token wallet.Token, amount wallet.Amount) *wallet.Record {
	return &wallet.Record{
		ID:        e.newID(),
		Kind:      kind,
		Token:     token,
		Amount:    amount,
		Timestamp: e.now().UTC(),
		Status:    wallet.StatusCompleted,
		Metadata:  map[string]string{},
	}
}

func (e *Engine) purchase(r PurchaseRequest) ([]ledger.Delta, *wallet.Record, error) {
	pkg, err := e.catalog.Package(r.PackageID)
	if err != nil {
		return nil, nil, err
	}
	method, err := e.catalog.PaymentMethod(r.Method)
	if err != nil {
		return nil, nil, err
	}

	credit := pkg.Credit()
	rec := e.newRecord(wallet.KindPurchase, wallet.Utility, credit)
	rec.Reference = pkg.NominalPrice()
	rec.Label = "Deposit Funds"
	rec.SubLabel = "Via " + method.Name
	rec.Metadata[MetaPackageID] = pkg.ID
	rec.Metadata[MetaPaymentMethod] = method.ID
	rec.Metadata[MetaBonusPercent] = fmt.Sprint(pkg.BonusPercent)
	if r.SettlementRef != "" {
		rec.Metadata[MetaSettlementRef] = r.SettlementRef
	}
	return []ledger.Delta{{Token: wallet.Utility, Amount: credit}}, rec, nil
}

func (e *Engine) swap(ctx context.Context, accountID string, r SwapRequest) ([]ledger.Delta, *wallet.Record, error) {
	q, err := e.quotes.Quote(r.Direction, r.Amount)
	if err != nil {
		return nil, nil, err
	}
	if q.Output <= 0 {
		return nil, nil, fmt.Errorf("%w: %s %s is below the smallest %s unit", wallet.ErrInvalidAmount, r.Amount, r.Direction.Source(), r.Direction.Destination())
	}
	// fail fast before taking the account lock; Commit re-checks atomically
	have, err := e.store.GetBalance(ctx, accountID, r.Direction.Source())
	if err != nil {
		return nil, nil, err
	}
	if have < r.Amount {
		return nil, nil, fmt.Errorf("%w: %s balance %s, need %s", wallet.ErrInsufficientFunds, r.Direction.Source(), have, r.Amount)
	}

	src, dst := r.Direction.Source(), r.Direction.Destination()
	rec := e.newRecord(wallet.KindSwap, src, r.Amount.Neg())
	rec.Label = "Swap " + r.Direction.String()
	rec.SubLabel = "Rate: " + q.RateLabel()
	rec.Reference = fmt.Sprintf("%s %s → %s %s", r.Amount, src, q.Output, dst)
	rec.Metadata[MetaToToken] = string(dst)
	rec.Metadata[MetaToAmount] = q.Output.String()
	rec.Metadata[MetaRate] = q.Rate().String()
	rec.Metadata[MetaNetworkFee] = q.NetworkFee
	rec.Metadata[MetaPriceImpact] = fmt.Sprint(q.PriceImpactBasisPoints)

	return []ledger.Delta{
		{Token: src, Amount: r.Amount.Neg()},
		{Token: dst, Amount: q.Output},
	}, rec, nil
}

func (e *Engine) stake(r StakeRequest) ([]ledger.Delta, *wallet.Record, error) {
	plan, err := e.staking.Plan(r.Amount, r.Tier)
	if err != nil {
		return nil, nil, err
	}
	rec := e.newRecord(wallet.KindStake, wallet.Governance, r.Amount.Neg())
	rec.Label = "Governance Stake"
	rec.SubLabel = fmt.Sprintf("Lock %d days · %s APY", plan.LockDays, plan.APY())
	if plan.LockDays == 0 {
		rec.SubLabel = "Flexible · " + plan.APY() + " APY"
	}
	rec.Metadata = plan.Metadata(rec.Timestamp)
	return []ledger.Delta{{Token: wallet.Governance, Amount: r.Amount.Neg()}}, rec, nil
}
