package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/trade"
	"github.com/erp/storefront/internal/infrastructure/logger"
	"github.com/erp/storefront/internal/infrastructure/telemetry"
)

// ViewState is the lifecycle state of a view.
type ViewState string

const (
	ViewLoading  ViewState = "loading"
	ViewLoaded   ViewState = "loaded"
	ViewMutating ViewState = "mutating"
	ViewClosed   ViewState = "closed"
)

// OrderOutcome is how a PlaceOrder call ended when it did not fail.
type OrderOutcome string

const (
	OrderPlaced  OrderOutcome = "placed"
	OrderAborted OrderOutcome = "aborted"
)

// NextViewOrderHistory is the view a client should show after a placed order.
const NextViewOrderHistory = "order_history"

// EnrichmentSettings bounds the catalog fetch used to enrich a view.
type EnrichmentSettings struct {
	Query string
	Limit int
	Wait  time.Duration
}

// CartViewDeps are the collaborators shared by every cart view.
type CartViewDeps struct {
	Carts      trade.CartStore
	Orders     trade.OrderStore
	Catalog    *CatalogIndexBuilder
	Enrichment EnrichmentSettings
	Policy     RemovalPolicy
	Recorder   Recorder
	Logger     *zap.Logger
}

// CartSnapshot is a consistent copy of a cart view's local state.
type CartSnapshot struct {
	ViewID   string              `json:"view_id"`
	State    ViewState           `json:"state"`
	Cart     trade.Cart          `json:"cart"`
	Pending  []trade.DisplayLine `json:"pending"`
	Degraded []string            `json:"degraded,omitempty"`
	LoadedAt *time.Time          `json:"loaded_at,omitempty"`
}

// RemovalResult describes a finished optimistic removal.
type RemovalResult struct {
	ItemID  string `json:"item_id"`
	Removed int    `json:"removed"`
	// Restored is set when a failed removal put the lines back.
	Restored bool `json:"restored"`
	// Retryable is set when the failure left the cart as it was before the removal.
	Retryable bool `json:"retryable"`
}

// PlaceOrderResult describes a PlaceOrder call that did not fail.
type PlaceOrderResult struct {
	Outcome  OrderOutcome    `json:"outcome"`
	Total    decimal.Decimal `json:"total"`
	NextView string          `json:"next_view,omitempty"`
}

// CartView is one open cart screen: a reconciled copy of the caller's remote
// cart plus the optimistic mutations applied to it.
//
// Network calls are made without holding the view lock. A load that finishes
// after the view was closed or reloaded is discarded.
type CartView struct {
	id       string
	identity identity.Identity
	deps     CartViewDeps

	mu         sync.Mutex
	cart       trade.Cart
	pending    map[string][]trade.RemovedLine
	reasons    []error
	loadedAt   *time.Time
	generation uint64
	loading    bool
	inflight   int
	closed     bool
}

// NewCartView creates a cart view in the Loading state. Call Load to fill it.
func NewCartView(viewID string, id identity.Identity, deps CartViewDeps) *CartView {
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Policy == "" {
		deps.Policy = RemovalKeepRemoved
	}
	return &CartView{
		id:       viewID,
		identity: id,
		deps:     deps,
		cart:     trade.EmptyCart(id.UserID),
		pending:  make(map[string][]trade.RemovedLine),
		loading:  true,
	}
}

// ID returns the view identifier.
func (v *CartView) ID() string { return v.id }

// Identity returns the identity the view was opened with.
func (v *CartView) Identity() identity.Identity { return v.identity }

// stateLocked derives the state from the view fields. Caller holds v.mu.
func (v *CartView) stateLocked() ViewState {
	switch {
	case v.closed:
		return ViewClosed
	case v.loading:
		return ViewLoading
	case v.inflight > 0:
		return ViewMutating
	default:
		return ViewLoaded
	}
}

// State returns the current lifecycle state.
func (v *CartView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *CartView) log(ctx context.Context) *logger.ContextLogger {
	return logger.WithLogger(logger.WithViewID(ctx, v.id), logger.FromContextOr(ctx, v.deps.Logger))
}

// Load rebuilds the local cart from scratch: the raw cart and the catalog
// slice are fetched concurrently, then reconciled.
//
// Catalog problems and unparseable carts degrade the result. A failed cart
// fetch leaves an empty cart; only ErrIdentityMissing and
// ErrSessionInvalidated fail the load. A load overtaken by Close or by a
// newer Load fails with ErrInvalidState and changes nothing.
func (v *CartView) Load(ctx context.Context) shared.Result[trade.Cart] {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return shared.Failed[trade.Cart](shared.ErrViewNotFound)
	}
	v.generation++
	gen := v.generation
	v.loading = true
	v.mu.Unlock()

	ctx, span := telemetry.StartServiceSpan(ctx, "cart_view", "load",
		telemetry.WithAttribute(telemetry.SpanAttrViewID, v.id),
		telemetry.WithAttribute(telemetry.SpanAttrUserID, v.identity.UserID),
	)
	defer span.End()

	res := v.fetch(ctx)

	v.mu.Lock()
	if v.closed || gen != v.generation {
		v.mu.Unlock()
		if res.HasReason(shared.ErrSessionInvalidated) {
			// The invalidation itself closed the view.
			return res
		}
		v.log(ctx).Debug("Discarding stale cart load", zap.Uint64("generation", gen))
		return shared.Failed[trade.Cart](fmt.Errorf("%w: load superseded", shared.ErrInvalidState))
	}
	v.loading = false
	if res.IsFailed() {
		v.cart = trade.EmptyCart(v.identity.UserID)
	} else {
		v.cart = res.Value
	}
	v.pending = make(map[string][]trade.RemovedLine)
	v.reasons = res.Reasons
	now := time.Now().UTC()
	v.loadedAt = &now
	v.mu.Unlock()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatus, string(res.Status),
		telemetry.SpanAttrLineCount, len(res.Value.Lines),
	)
	switch {
	case res.IsFailed():
		telemetry.RecordError(span, res.Err())
		v.log(ctx).Error("Cart load failed", zap.Error(res.Err()))
	case res.IsDegraded():
		telemetry.RecordDegradation(span, res.ReasonCodes())
		v.deps.Recorder.ObserveDegradation("cart_view.load", res.ReasonCodes())
		v.log(ctx).Warn("Cart loaded degraded",
			zap.Strings("reasons", res.ReasonCodes()),
			zap.Int("lines", len(res.Value.Lines)),
		)
	default:
		v.log(ctx).Debug("Cart loaded", zap.Int("lines", len(res.Value.Lines)))
	}
	return res
}

func (v *CartView) fetch(ctx context.Context) shared.Result[trade.Cart] {
	if err := v.identity.Validate(); err != nil {
		return shared.Failed[trade.Cart](err)
	}

	var (
		raw      trade.RawCart
		fetchErr error
		index    shared.Result[catalog.Index]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, fetchErr = v.deps.Carts.FetchCart(gctx, v.identity)
		return nil
	})
	g.Go(func() error {
		cctx := gctx
		if wait := v.deps.Enrichment.Wait; wait > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(gctx, wait)
			defer cancel()
		}
		index = v.deps.Catalog.Build(cctx, v.identity, v.deps.Enrichment.Query, v.deps.Enrichment.Limit)
		return nil
	})
	_ = g.Wait()

	if fetchErr != nil {
		if errors.Is(fetchErr, shared.ErrSessionInvalidated) || errors.Is(fetchErr, shared.ErrIdentityMissing) {
			return shared.Failed[trade.Cart](fetchErr)
		}
		return shared.Merge(shared.Degraded(trade.EmptyCart(v.identity.UserID), fetchErr), index)
	}
	return shared.Merge(trade.ReconcileCart(raw, index.Value), index)
}

// Snapshot returns a copy of the local state.
func (v *CartView) Snapshot() CartSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	lines := make([]trade.DisplayLine, len(v.cart.Lines))
	copy(lines, v.cart.Lines)
	snap := CartSnapshot{
		ViewID:   v.id,
		State:    v.stateLocked(),
		Cart:     trade.Cart{UserID: v.cart.UserID, Lines: lines, Total: v.cart.Total},
		Pending:  []trade.DisplayLine{},
		Degraded: shared.Degraded(struct{}{}, v.reasons...).ReasonCodes(),
		LoadedAt: v.loadedAt,
	}
	for _, removed := range v.pending {
		for _, r := range removed {
			snap.Pending = append(snap.Pending, r.Line)
		}
	}
	return snap
}

// RemoveFromCart removes every line with itemID from the local cart, then asks
// the cart store to do the same. What a remote failure does to the local cart
// is governed by the view's RemovalPolicy; the error is returned in every case.
func (v *CartView) RemoveFromCart(ctx context.Context, itemID string) (*RemovalResult, error) {
	if err := v.identity.Validate(); err != nil {
		v.deps.Recorder.ObserveMutation("remove_from_cart", outcomeInvalid)
		return nil, err
	}

	v.mu.Lock()
	switch {
	case v.closed:
		v.mu.Unlock()
		return nil, shared.ErrViewNotFound
	case v.loading:
		v.mu.Unlock()
		v.deps.Recorder.ObserveMutation("remove_from_cart", outcomeInvalid)
		return nil, fmt.Errorf("%w: cart is still loading", shared.ErrInvalidState)
	}
	next, removed := v.cart.Without(itemID)
	v.cart = next
	if v.deps.Policy == RemovalTwoPhase && len(removed) > 0 {
		v.pending[itemID] = append(v.pending[itemID], removed...)
	}
	v.inflight++
	gen := v.generation
	v.mu.Unlock()

	ctx, span := telemetry.StartServiceSpan(ctx, "cart_view", "remove",
		telemetry.WithAttribute(telemetry.SpanAttrViewID, v.id),
		telemetry.WithAttribute(telemetry.SpanAttrItemID, itemID),
	)
	defer span.End()

	err := v.deps.Carts.RemoveItem(ctx, v.identity, itemID)

	result := &RemovalResult{ItemID: itemID, Removed: len(removed)}
	v.mu.Lock()
	v.inflight--
	current := !v.closed && gen == v.generation
	if current && v.deps.Policy == RemovalTwoPhase {
		delete(v.pending, itemID)
	}
	if err != nil && current && len(removed) > 0 &&
		(v.deps.Policy == RemovalRestore || v.deps.Policy == RemovalTwoPhase) {
		v.cart = v.cart.Restore(removed)
		result.Restored = true
	}
	v.mu.Unlock()

	if err != nil {
		result.Retryable = result.Restored || len(removed) == 0
		telemetry.RecordError(span, err)
		v.deps.Recorder.ObserveMutation("remove_from_cart", outcomeFailed)
		v.log(ctx).Error("Remove from cart failed",
			zap.String("item_id", itemID),
			zap.String("policy", string(v.deps.Policy)),
			zap.Bool("restored", result.Restored),
			zap.Error(err),
		)
		return result, err
	}

	v.deps.Recorder.ObserveMutation("remove_from_cart", outcomeOK)
	v.log(ctx).Info("Item removed from cart",
		zap.String("item_id", itemID),
		zap.Int("lines", len(removed)),
	)
	return result, nil
}

// PlaceOrder places an order for the whole cart once confirmer agrees to the
// current total.
//
// A declined confirmation returns an OrderAborted result and no error. On
// success the local cart is cleared. On failure the local cart is unchanged.
func (v *CartView) PlaceOrder(ctx context.Context, confirmer Confirmer) (*PlaceOrderResult, error) {
	if err := v.identity.Validate(); err != nil {
		v.deps.Recorder.ObserveMutation("place_order", outcomeInvalid)
		return nil, err
	}

	total, err := v.checkoutTotal()
	if err != nil {
		v.deps.Recorder.ObserveMutation("place_order", outcomeInvalid)
		return nil, err
	}

	if confirmer == nil || !confirmer.Confirm(ctx, total) {
		v.deps.Recorder.ObserveMutation("place_order", outcomeAborted)
		v.log(ctx).Info("Order placement declined", zap.String("total", total.StringFixed(2)))
		return &PlaceOrderResult{Outcome: OrderAborted, Total: total}, nil
	}

	// The confirmer ran without the lock; the cart it approved must still be
	// the one being ordered.
	v.mu.Lock()
	current, err := v.checkoutTotalLocked()
	if err == nil && !current.Equal(total) {
		err = fmt.Errorf("%w: cart total changed during confirmation", shared.ErrInvalidState)
	}
	if err != nil {
		v.mu.Unlock()
		v.deps.Recorder.ObserveMutation("place_order", outcomeInvalid)
		v.log(ctx).Warn("Order placement rejected after confirmation", zap.Error(err))
		return nil, err
	}
	v.inflight++
	gen := v.generation
	v.mu.Unlock()

	ctx, span := telemetry.StartServiceSpan(ctx, "cart_view", "place_order",
		telemetry.WithAttribute(telemetry.SpanAttrViewID, v.id),
		telemetry.WithAttribute("total", total.StringFixed(2)),
	)
	defer span.End()

	err = v.deps.Orders.PlaceOrder(ctx, v.identity)

	v.mu.Lock()
	v.inflight--
	if err == nil && !v.closed && gen == v.generation {
		v.cart = trade.EmptyCart(v.identity.UserID)
		v.pending = make(map[string][]trade.RemovedLine)
	}
	v.mu.Unlock()

	if err != nil {
		telemetry.RecordError(span, err)
		v.deps.Recorder.ObserveMutation("place_order", outcomeFailed)
		v.log(ctx).Error("Place order failed", zap.Error(err))
		return nil, err
	}

	v.deps.Recorder.ObserveMutation("place_order", outcomeOK)
	v.log(ctx).Info("Order placed", zap.String("total", total.StringFixed(2)))
	return &PlaceOrderResult{Outcome: OrderPlaced, Total: total, NextView: NextViewOrderHistory}, nil
}

func (v *CartView) checkoutTotal() (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.checkoutTotalLocked()
}

// checkoutTotalLocked reports the total an order would be placed for. Caller
// holds v.mu.
func (v *CartView) checkoutTotalLocked() (decimal.Decimal, error) {
	switch {
	case v.closed:
		return decimal.Zero, shared.ErrViewNotFound
	case v.loading:
		return decimal.Zero, fmt.Errorf("%w: cart is still loading", shared.ErrInvalidState)
	case v.inflight > 0:
		return decimal.Zero, fmt.Errorf("%w: a cart change is still in progress", shared.ErrInvalidState)
	case v.cart.IsEmpty():
		return decimal.Zero, shared.ErrEmptyCart
	}
	return v.cart.Total, nil
}

// Close marks the view closed. Outstanding loads are discarded when they finish.
func (v *CartView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}
