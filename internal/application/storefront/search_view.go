package storefront

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/infrastructure/logger"
)

// SearchSettings configures a live search view.
type SearchSettings struct {
	Debounce time.Duration
	Limit    int
	After    AfterFunc
}

// SearchSnapshot is the visible state of a live search view.
type SearchSnapshot struct {
	ViewID string `json:"view_id"`
	// Query is the latest typed query.
	Query string `json:"query"`
	// ResultsQuery is the query Results were fetched for.
	ResultsQuery string           `json:"results_query"`
	Results      []catalog.Record `json:"results"`
	Pending      bool             `json:"pending"`
	Error        string           `json:"error,omitempty"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty"`
}

// SearchView is a product search box: every keystroke replaces the query and
// only the query that survives the debounce window is fetched.
type SearchView struct {
	id       string
	identity identity.Identity
	catalog  *CatalogIndexBuilder
	limit    int
	debounce *Debouncer
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	query        string
	seq          uint64
	results      []catalog.Record
	resultsQuery string
	inflight     int
	lastErr      error
	updatedAt    *time.Time
	closed       bool
	wg           sync.WaitGroup
}

// NewSearchView creates a search view. Background fetches run on a context
// derived from ctx that outlives ctx's cancellation and ends with Close.
func NewSearchView(ctx context.Context, viewID string, id identity.Identity, builder *CatalogIndexBuilder, settings SearchSettings, log *zap.Logger) *SearchView {
	if log == nil {
		log = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.WithoutCancel(logger.WithViewID(ctx, viewID)))
	return &SearchView{
		id:       viewID,
		identity: id,
		catalog:  builder,
		limit:    settings.Limit,
		debounce: NewDebouncer(settings.Debounce, settings.After),
		logger:   log,
		ctx:      base,
		cancel:   cancel,
		results:  []catalog.Record{},
	}
}

// ID returns the view identifier.
func (s *SearchView) ID() string { return s.id }

// Identity returns the identity the view was opened with.
func (s *SearchView) Identity() identity.Identity { return s.identity }

// Type records a new query. A blank query clears the results without a fetch.
func (s *SearchView) Type(query string) error {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return shared.ErrViewNotFound
	}
	s.query = query
	s.seq++
	seq := s.seq
	if query == "" {
		s.debounce.Cancel()
		s.results = []catalog.Record{}
		s.resultsQuery = ""
		s.lastErr = nil
		return nil
	}
	s.debounce.Trigger(func() { s.run(seq, query) })
	return nil
}

func (s *SearchView) run(seq uint64, query string) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.inflight++
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	records, err := s.catalog.Search(s.ctx, s.identity, query, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.closed || seq != s.seq {
		logger.WithLogger(s.ctx, s.logger).Debug("Discarding superseded search result", zap.String("query", query))
		return
	}
	now := time.Now().UTC()
	s.updatedAt = &now
	if err != nil {
		s.lastErr = err
		logger.WithLogger(s.ctx, s.logger).Warn("Live search failed", zap.String("query", query), zap.Error(err))
		return
	}
	s.lastErr = nil
	s.results = records
	s.resultsQuery = query
}

// Snapshot returns the current query and the latest accepted results.
func (s *SearchView) Snapshot() SearchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]catalog.Record, len(s.results))
	copy(results, s.results)
	snap := SearchSnapshot{
		ViewID:       s.id,
		Query:        s.query,
		ResultsQuery: s.resultsQuery,
		Results:      results,
		Pending:      s.inflight > 0 || s.debounce.Pending(),
		UpdatedAt:    s.updatedAt,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

// Close cancels the scheduled fetch and any fetch in flight, and waits for it to return.
func (s *SearchView) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.debounce.Stop()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
