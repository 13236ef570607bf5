package storefront

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
	"github.com/erp/storefront/internal/domain/trade"
)

func TestCatalogIndexBuilder_Build(t *testing.T) {
	t.Run("indexes accepted records", func(t *testing.T) {
		searcher := new(MockSearcher)
		searcher.On("SearchCatalog", mock.Anything, testIdentity, "book", 100).
			Return(append(widgetCatalog(), valueobject.Fields{"description": "no id"}), nil)
		builder := NewCatalogIndexBuilder(searcher, zap.NewNop())

		res := builder.Build(context.Background(), testIdentity, "book", 100)

		require.True(t, res.IsOK())
		assert.True(t, res.Value.IsReady())
		assert.Equal(t, 2, res.Value.Len())
		record, ok := res.Value.Lookup("7")
		require.True(t, ok)
		assert.Equal(t, "Widget", record.Caption)
	})

	t.Run("upstream failure yields an empty index", func(t *testing.T) {
		searcher := new(MockSearcher)
		searcher.On("SearchCatalog", mock.Anything, testIdentity, "book", 100).
			Return(nil, fmt.Errorf("%w: status 500", shared.ErrTransportFailure))
		recorder := newRecordingRecorder()
		builder := NewCatalogIndexBuilder(searcher, zap.NewNop())
		builder.SetRecorder(recorder)

		res := builder.Build(context.Background(), testIdentity, "book", 100)

		require.True(t, res.IsDegraded())
		assert.False(t, res.Value.IsReady())
		assert.Equal(t, 0, res.Value.Len())
		assert.True(t, res.HasReason(shared.ErrEnrichmentUnavailable))
		assert.Equal(t, []string{"ENRICHMENT_UNAVAILABLE"}, recorder.Degradations("catalog_index.build"))
	})
}

func TestCatalogIndexBuilder_Search(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "gad", 10).
		Return([]valueobject.Fields{
			{"id": "9", "caption": "Gadget", "price": "3.00"},
			{"caption": "nameless"},
			{"book_id": 11, "price": "bad"},
		}, nil)
	builder := NewCatalogIndexBuilder(searcher, zap.NewNop())

	records, err := builder.Search(context.Background(), testIdentity, "gad", 10)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "9", records[0].ItemID)
	assert.Equal(t, "11", records[1].ItemID)
	assert.True(t, records[1].Price.IsZero())
	assert.True(t, records[1].Degraded)
}

func TestCatalogIndexBuilder_SearchPropagatesFailure(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "x", 10).
		Return(nil, fmt.Errorf("%w: timeout", shared.ErrTransportFailure))
	builder := NewCatalogIndexBuilder(searcher, zap.NewNop())

	_, err := builder.Search(context.Background(), testIdentity, "x", 10)

	assert.ErrorIs(t, err, shared.ErrTransportFailure)
}

func TestCartService_AddToCart(t *testing.T) {
	tests := []struct {
		name string
		req  AddToCartRequest
		want trade.CartAddition
	}{
		{
			name: "passes values through",
			req:  AddToCartRequest{ItemID: "7", Quantity: 2, Price: decimal.RequireFromString("10.50")},
			want: trade.CartAddition{ItemID: "7", Quantity: 2, Price: decimal.RequireFromString("10.50")},
		},
		{
			name: "quantity below one becomes one",
			req:  AddToCartRequest{ItemID: " 7 ", Quantity: 0, Price: decimal.NewFromInt(4)},
			want: trade.CartAddition{ItemID: "7", Quantity: 1, Price: decimal.NewFromInt(4)},
		},
		{
			name: "negative price becomes zero",
			req:  AddToCartRequest{ItemID: "7", Quantity: -3, Price: decimal.NewFromInt(-1)},
			want: trade.CartAddition{ItemID: "7", Quantity: 1, Price: decimal.Zero},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := new(MockCartStore)
			carts.On("AddItem", mock.Anything, testIdentity, mock.MatchedBy(func(a trade.CartAddition) bool {
				return a.ItemID == tt.want.ItemID && a.Quantity == tt.want.Quantity && a.Price.Equal(tt.want.Price)
			})).Return(nil)
			svc := NewCartService(carts, zap.NewNop())

			confirmation, err := svc.AddToCart(context.Background(), testIdentity, tt.req)

			require.NoError(t, err)
			assert.Equal(t, tt.want.ItemID, confirmation.ItemID)
			assert.Equal(t, tt.want.Quantity, confirmation.Quantity)
			carts.AssertExpectations(t)
		})
	}
}

func TestCartService_AddToCartRejections(t *testing.T) {
	carts := new(MockCartStore)
	recorder := newRecordingRecorder()
	svc := NewCartService(carts, zap.NewNop())
	svc.SetRecorder(recorder)

	_, err := svc.AddToCart(context.Background(), identity.New("", ""), AddToCartRequest{ItemID: "7"})
	assert.ErrorIs(t, err, shared.ErrIdentityMissing)

	_, err = svc.AddToCart(context.Background(), testIdentity, AddToCartRequest{ItemID: "  "})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	carts.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{"add_to_cart:rejected", "add_to_cart:rejected"}, recorder.Mutations())
}

func TestCartService_AddToCartFailure(t *testing.T) {
	carts := new(MockCartStore)
	carts.On("AddItem", mock.Anything, testIdentity, mock.Anything).
		Return(fmt.Errorf("%w: status 500", shared.ErrTransportFailure)).Once()
	svc := NewCartService(carts, zap.NewNop())

	_, err := svc.AddToCart(context.Background(), testIdentity, AddToCartRequest{ItemID: "7", Quantity: 1})

	assert.ErrorIs(t, err, shared.ErrTransportFailure)
	carts.AssertNumberOfCalls(t, "AddItem", 1)
}

func newHistoryService(orders *MockOrderStore, searcher *MockSearcher) *OrderHistoryService {
	builder := NewCatalogIndexBuilder(searcher, zap.NewNop())
	return NewOrderHistoryService(orders, builder, EnrichmentSettings{Query: "book", Limit: 100, Wait: time.Second}, zap.NewNop())
}

func TestOrderHistoryService_History(t *testing.T) {
	orders := new(MockOrderStore)
	searcher := new(MockSearcher)
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "book", 100).Return(widgetCatalog(), nil)
	orders.On("FetchOrders", mock.Anything, testIdentity).Return([]valueobject.Fields{
		{
			"order_id":     "o-1",
			"created_at":   "2024-03-01T10:00:00Z",
			"items":        `[{"item_id":7,"quantity":1,"price":"9.00"}]`,
			"total_amount": "42.00",
			"status":       "placed",
		},
		{"id": 2, "date": "2024-02-01", "items": []any{}, "total": 0},
	}, nil)

	res := newHistoryService(orders, searcher).History(context.Background(), testIdentity)

	require.True(t, res.IsOK(), "reasons: %v", res.ReasonCodes())
	require.Len(t, res.Value, 2)
	first := res.Value[0]
	assert.Equal(t, "o-1", first.OrderID)
	assert.True(t, first.Total.Equal(decimal.NewFromInt(42)), "order total is taken as charged")
	require.Len(t, first.Items, 1)
	assert.Equal(t, "Widget", first.Items[0].Caption)
	assert.Equal(t, "2", res.Value[1].OrderID)
	require.NotNil(t, res.Value[1].CreatedAt)
}

func TestOrderHistoryService_Failures(t *testing.T) {
	tests := []struct {
		name       string
		fetchErr   error
		wantFailed bool
	}{
		{name: "transport failure degrades", fetchErr: shared.ErrTransportFailure},
		{name: "session invalidation fails", fetchErr: shared.ErrSessionInvalidated, wantFailed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockOrderStore)
			searcher := new(MockSearcher)
			searcher.On("SearchCatalog", mock.Anything, testIdentity, "book", 100).Return(widgetCatalog(), nil)
			orders.On("FetchOrders", mock.Anything, testIdentity).
				Return(nil, fmt.Errorf("%w: upstream", tt.fetchErr))

			res := newHistoryService(orders, searcher).History(context.Background(), testIdentity)

			if tt.wantFailed {
				require.True(t, res.IsFailed())
				assert.True(t, errors.Is(res.Err(), tt.fetchErr))
				return
			}
			require.True(t, res.IsDegraded())
			assert.Empty(t, res.Value)
			assert.NotNil(t, res.Value)
			assert.True(t, res.HasReason(tt.fetchErr))
		})
	}
}

func TestOrderHistoryService_CatalogDownDegrades(t *testing.T) {
	orders := new(MockOrderStore)
	searcher := new(MockSearcher)
	searcher.On("SearchCatalog", mock.Anything, testIdentity, "book", 100).
		Return(nil, shared.ErrTransportFailure)
	orders.On("FetchOrders", mock.Anything, testIdentity).Return([]valueobject.Fields{
		{"order_id": "o-1", "items": `[{"item_id":7,"quantity":1}]`, "total_amount": "5"},
	}, nil)

	res := newHistoryService(orders, searcher).History(context.Background(), testIdentity)

	require.True(t, res.IsDegraded())
	assert.True(t, res.HasReason(shared.ErrEnrichmentUnavailable))
	assert.Equal(t, "Item #7", res.Value[0].Items[0].Caption)
}

func TestOrderHistoryService_RequiresIdentity(t *testing.T) {
	orders := new(MockOrderStore)
	searcher := new(MockSearcher)

	res := newHistoryService(orders, searcher).History(context.Background(), identity.Identity{})

	assert.ErrorIs(t, res.Err(), shared.ErrIdentityMissing)
	orders.AssertNotCalled(t, "FetchOrders", mock.Anything, mock.Anything)
}

func TestParseRemovalPolicy(t *testing.T) {
	for in, want := range map[string]RemovalPolicy{
		"":             RemovalKeepRemoved,
		"keep_removed": RemovalKeepRemoved,
		"restore":      RemovalRestore,
		"two_phase":    RemovalTwoPhase,
	} {
		got, err := ParseRemovalPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseRemovalPolicy("rollback")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
