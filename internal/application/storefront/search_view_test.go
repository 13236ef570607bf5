package storefront

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
)

func newTestSearchView(searcher *MockSearcher, clock *fakeClock) *SearchView {
	builder := NewCatalogIndexBuilder(searcher, zap.NewNop())
	settings := SearchSettings{Debounce: 300 * time.Millisecond, Limit: 10, After: clock.AfterFunc}
	return NewSearchView(context.Background(), "search-1", testIdentity, builder, settings, zap.NewNop())
}

func TestSearchView_KeystrokesProduceOneFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := &fakeClock{}
	searcher := new(MockSearcher)
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "widg", 10).
		Return([]valueobject.Fields{{"item_id": 7, "description": "Widget", "price": "10.50"}}, nil)
	view := newTestSearchView(searcher, clock)
	defer view.Close()

	for _, q := range []string{"w", "wi", "wid", "widg"} {
		require.NoError(t, view.Type(q))
		clock.Advance(50 * time.Millisecond)
	}
	assert.True(t, view.Snapshot().Pending)
	searcher.AssertNotCalled(t, "SearchCatalog", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	clock.Advance(250 * time.Millisecond)

	searcher.AssertNumberOfCalls(t, "SearchCatalog", 1)
	snap := view.Snapshot()
	assert.Equal(t, "widg", snap.Query)
	assert.Equal(t, "widg", snap.ResultsQuery)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "Widget", snap.Results[0].Caption)
	assert.False(t, snap.Pending)
	assert.Empty(t, snap.Error)
}

func TestSearchView_DiscardsSupersededResult(t *testing.T) {
	clock := &fakeClock{}
	searcher := new(MockSearcher)
	view := newTestSearchView(searcher, clock)
	defer view.Close()

	searcher.On("SearchCatalog", mock.Anything, testIdentity, "a", 10).
		Run(func(mock.Arguments) {
			// A keystroke lands while the first fetch is in flight.
			require.NoError(t, view.Type("ab"))
		}).
		Return([]valueobject.Fields{{"item_id": 1, "description": "Apple"}}, nil)
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "ab", 10).
		Return([]valueobject.Fields{{"item_id": 2, "description": "Abacus"}}, nil)

	require.NoError(t, view.Type("a"))
	clock.Advance(300 * time.Millisecond)

	snap := view.Snapshot()
	assert.Empty(t, snap.Results, "result for a superseded query is dropped")
	assert.Equal(t, "ab", snap.Query)
	assert.True(t, snap.Pending)

	clock.Advance(300 * time.Millisecond)

	snap = view.Snapshot()
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "Abacus", snap.Results[0].Caption)
	assert.Equal(t, "ab", snap.ResultsQuery)
}

func TestSearchView_FailureKeepsPreviousResults(t *testing.T) {
	clock := &fakeClock{}
	searcher := new(MockSearcher)
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "widget", 10).
		Return([]valueobject.Fields{{"item_id": 7, "description": "Widget"}}, nil)
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "widgets", 10).
		Return(nil, fmt.Errorf("%w: status 503", shared.ErrTransportFailure))
	view := newTestSearchView(searcher, clock)
	defer view.Close()

	require.NoError(t, view.Type("widget"))
	clock.Advance(time.Second)
	require.NoError(t, view.Type("widgets"))
	clock.Advance(time.Second)

	snap := view.Snapshot()
	assert.Equal(t, "widgets", snap.Query)
	assert.Equal(t, "widget", snap.ResultsQuery)
	require.Len(t, snap.Results, 1)
	assert.NotEmpty(t, snap.Error)
}

func TestSearchView_BlankQueryClearsWithoutFetch(t *testing.T) {
	clock := &fakeClock{}
	searcher := new(MockSearcher)
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "widget", 10).
		Return([]valueobject.Fields{{"item_id": 7}}, nil)
	view := newTestSearchView(searcher, clock)
	defer view.Close()

	require.NoError(t, view.Type("widget"))
	clock.Advance(time.Second)
	require.NoError(t, view.Type("wid"))
	require.NoError(t, view.Type("   "))
	clock.Advance(time.Second)

	snap := view.Snapshot()
	assert.Empty(t, snap.Query)
	assert.Empty(t, snap.Results)
	assert.False(t, snap.Pending)
	searcher.AssertNumberOfCalls(t, "SearchCatalog", 1)
}

func TestSearchView_ClosedViewIgnoresTimerAndRejectsInput(t *testing.T) {
	clock := &fakeClock{}
	searcher := new(MockSearcher)
	view := newTestSearchView(searcher, clock)

	require.NoError(t, view.Type("widget"))
	view.Close()
	clock.Advance(time.Second)

	assert.ErrorIs(t, view.Type("x"), shared.ErrViewNotFound)
	searcher.AssertNotCalled(t, "SearchCatalog", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	view.Close()
}

func TestSearchView_CloseCancelsInflightFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	searcher := new(MockSearcher)
	started := make(chan struct{})
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "slow", 10).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, fmt.Errorf("%w: context canceled", shared.ErrTransportFailure))

	builder := NewCatalogIndexBuilder(searcher, zap.NewNop())
	view := NewSearchView(context.Background(), "search-1", testIdentity, builder,
		SearchSettings{Debounce: time.Millisecond, Limit: 10}, zap.NewNop())

	require.NoError(t, view.Type("slow"))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("search never started")
	}

	view.Close()

	assert.Empty(t, view.Snapshot().Error, "cancelled fetch does not surface")
}
