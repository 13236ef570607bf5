package storefront

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/trade"
	"github.com/erp/storefront/internal/infrastructure/logger"
)

// View kinds, used as the active_views metric label.
const (
	ViewKindCart   = "cart"
	ViewKindSearch = "search"
)

// ViewGauge receives the number of open views per kind.
// telemetry.Metrics implements it.
type ViewGauge interface {
	SetActiveViews(kind string, n int)
}

// RegistryConfig bounds the view registry.
type RegistryConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxViews      int
}

type viewEntry struct {
	kind       string
	token      string
	userID     string
	lastAccess time.Time
	cart       *CartView
	search     *SearchView
}

func (e *viewEntry) close() {
	if e.cart != nil {
		e.cart.Close()
	}
	if e.search != nil {
		e.search.Close()
	}
}

// ViewRegistry owns every open view. Views are private to the identity that
// opened them, expire after an idle period and are dropped when their session
// is invalidated upstream.
type ViewRegistry struct {
	cfg      RegistryConfig
	cartDeps CartViewDeps
	catalog  *CatalogIndexBuilder
	search   SearchSettings
	gauge    ViewGauge
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	views map[string]*viewEntry

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewViewRegistry creates a registry. Call Start to run the idle sweeper.
func NewViewRegistry(cfg RegistryConfig, cartDeps CartViewDeps, search SearchSettings, logger *zap.Logger) *ViewRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewRegistry{
		cfg:      cfg,
		cartDeps: cartDeps,
		catalog:  cartDeps.Catalog,
		search:   search,
		logger:   logger,
		now:      time.Now,
		views:    make(map[string]*viewEntry),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetGauge sets the active view gauge.
func (r *ViewRegistry) SetGauge(g ViewGauge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauge = g
	r.reportLocked()
}

// OpenCartView registers a new cart view for id and loads it.
// The view stays registered whatever the load outcome.
func (r *ViewRegistry) OpenCartView(ctx context.Context, id identity.Identity) (*CartView, shared.Result[trade.Cart], error) {
	if err := id.Validate(); err != nil {
		return nil, shared.Failed[trade.Cart](err), err
	}
	viewID := uuid.NewString()
	view := NewCartView(viewID, id, r.cartDeps)
	if err := r.add(viewID, &viewEntry{kind: ViewKindCart, cart: view}, id); err != nil {
		return nil, shared.Failed[trade.Cart](err), err
	}
	logger.WithLogger(ctx, logger.FromContextOr(ctx, r.logger)).Info("Cart view opened", zap.String("view_id", viewID))
	return view, view.Load(ctx), nil
}

// OpenSearchView registers a new live search view for id.
func (r *ViewRegistry) OpenSearchView(ctx context.Context, id identity.Identity) (*SearchView, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	viewID := uuid.NewString()
	view := NewSearchView(ctx, viewID, id, r.catalog, r.search, r.logger)
	if err := r.add(viewID, &viewEntry{kind: ViewKindSearch, search: view}, id); err != nil {
		view.Close()
		return nil, err
	}
	return view, nil
}

func (r *ViewRegistry) add(viewID string, entry *viewEntry, id identity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.MaxViews > 0 && len(r.views) >= r.cfg.MaxViews {
		return fmt.Errorf("%w: open view limit of %d reached", shared.ErrInvalidState, r.cfg.MaxViews)
	}
	entry.token = id.Token
	entry.userID = id.UserID
	entry.lastAccess = r.now()
	r.views[viewID] = entry
	r.reportLocked()
	return nil
}

// lookup returns the entry for viewID when it belongs to id, refreshing its idle timer.
func (r *ViewRegistry) lookup(viewID, kind string, id identity.Identity) (*viewEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.views[viewID]
	if !ok || entry.kind != kind || entry.token != id.Token || entry.userID != id.UserID {
		return nil, shared.ErrViewNotFound
	}
	entry.lastAccess = r.now()
	return entry, nil
}

// CartView returns the open cart view viewID owned by id.
func (r *ViewRegistry) CartView(viewID string, id identity.Identity) (*CartView, error) {
	entry, err := r.lookup(viewID, ViewKindCart, id)
	if err != nil {
		return nil, err
	}
	return entry.cart, nil
}

// SearchView returns the open search view viewID owned by id.
func (r *ViewRegistry) SearchView(viewID string, id identity.Identity) (*SearchView, error) {
	entry, err := r.lookup(viewID, ViewKindSearch, id)
	if err != nil {
		return nil, err
	}
	return entry.search, nil
}

// Close closes and unregisters view viewID owned by id.
func (r *ViewRegistry) Close(viewID string, id identity.Identity) error {
	r.mu.Lock()
	entry, ok := r.views[viewID]
	if !ok || entry.token != id.Token || entry.userID != id.UserID {
		r.mu.Unlock()
		return shared.ErrViewNotFound
	}
	delete(r.views, viewID)
	r.reportLocked()
	r.mu.Unlock()

	entry.close()
	return nil
}

// SessionInvalidated closes every view opened with token.
func (r *ViewRegistry) SessionInvalidated(ctx context.Context, token string) {
	if token == "" {
		return
	}
	r.mu.Lock()
	var dropped []*viewEntry
	for viewID, entry := range r.views {
		if entry.token == token {
			dropped = append(dropped, entry)
			delete(r.views, viewID)
		}
	}
	r.reportLocked()
	r.mu.Unlock()

	// Closing a search view waits for its fetch, which may be the caller.
	go func() {
		for _, entry := range dropped {
			entry.close()
		}
	}()
	if len(dropped) > 0 {
		logger.WithLogger(ctx, logger.FromContextOr(ctx, r.logger)).Warn("Session invalidated, views dropped",
			zap.Int("views", len(dropped)),
		)
	}
}

// Len returns the number of open views.
func (r *ViewRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep closes views idle for longer than the idle TTL and returns how many it closed.
func (r *ViewRegistry) Sweep() int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var expired []*viewEntry
	for viewID, entry := range r.views {
		if entry.lastAccess.Before(cutoff) {
			expired = append(expired, entry)
			delete(r.views, viewID)
		}
	}
	r.reportLocked()
	r.mu.Unlock()

	for _, entry := range expired {
		entry.close()
	}
	if len(expired) > 0 {
		r.logger.Debug("Idle views expired", zap.Int("views", len(expired)))
	}
	return len(expired)
}

// Start runs the idle sweeper until Stop is called. Later calls do nothing.
func (r *ViewRegistry) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	interval := r.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// Stop ends the sweeper, if running, and closes every view.
func (r *ViewRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.done
	}

	r.mu.Lock()
	entries := make([]*viewEntry, 0, len(r.views))
	for _, entry := range r.views {
		entries = append(entries, entry)
	}
	r.views = make(map[string]*viewEntry)
	r.reportLocked()
	r.mu.Unlock()

	for _, entry := range entries {
		entry.close()
	}
}

func (r *ViewRegistry) reportLocked() {
	if r.gauge == nil {
		return
	}
	counts := map[string]int{ViewKindCart: 0, ViewKindSearch: 0}
	for _, entry := range r.views {
		counts[entry.kind]++
	}
	for kind, n := range counts {
		r.gauge.SetActiveViews(kind, n)
	}
}

var _ identity.SessionListener = (*ViewRegistry)(nil)
