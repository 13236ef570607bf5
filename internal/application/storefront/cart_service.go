package storefront

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/trade"
	"github.com/erp/storefront/internal/infrastructure/logger"
	"github.com/erp/storefront/internal/infrastructure/telemetry"
)

// AddToCartRequest is one add-to-cart action from the product list.
type AddToCartRequest struct {
	ItemID   string
	Quantity int
	Price    decimal.Decimal
}

// AddToCartConfirmation echoes what the cart store accepted.
type AddToCartConfirmation struct {
	ItemID   string          `json:"item_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// CartService handles cart mutations that are not bound to an open cart view.
type CartService struct {
	carts    trade.CartStore
	recorder Recorder
	logger   *zap.Logger
}

// NewCartService creates a CartService.
func NewCartService(carts trade.CartStore, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, recorder: noopRecorder{}, logger: logger}
}

// SetRecorder sets the metrics recorder.
func (s *CartService) SetRecorder(r Recorder) {
	if r != nil {
		s.recorder = r
	}
}

// AddToCart adds an item to the caller's remote cart.
//
// A quantity below 1 is sent as 1 and a negative price as 0. No open cart view
// is refreshed; the next load picks the item up. Failures are not retried.
func (s *CartService) AddToCart(ctx context.Context, id identity.Identity, req AddToCartRequest) (*AddToCartConfirmation, error) {
	if err := id.Validate(); err != nil {
		s.recorder.ObserveMutation("add_to_cart", outcomeInvalid)
		return nil, err
	}
	itemID := strings.TrimSpace(req.ItemID)
	if itemID == "" {
		s.recorder.ObserveMutation("add_to_cart", outcomeInvalid)
		return nil, fmt.Errorf("%w: item id is required", shared.ErrInvalidInput)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "add",
		telemetry.WithAttribute(telemetry.SpanAttrUserID, id.UserID),
		telemetry.WithAttribute(telemetry.SpanAttrItemID, itemID),
	)
	defer span.End()

	addition := trade.CartAddition{
		ItemID:   itemID,
		Quantity: req.Quantity,
		Price:    req.Price,
	}
	if addition.Quantity < 1 {
		addition.Quantity = 1
	}
	if addition.Price.IsNegative() {
		addition.Price = decimal.Zero
	}

	log := logger.WithLogger(ctx, logger.FromContextOr(ctx, s.logger))
	if err := s.carts.AddItem(ctx, id, addition); err != nil {
		telemetry.RecordError(span, err)
		s.recorder.ObserveMutation("add_to_cart", outcomeFailed)
		log.Error("Add to cart failed", zap.String("item_id", itemID), zap.Error(err))
		return nil, err
	}

	s.recorder.ObserveMutation("add_to_cart", outcomeOK)
	log.Info("Item added to cart",
		zap.String("item_id", itemID),
		zap.Int("quantity", addition.Quantity),
	)
	return &AddToCartConfirmation{
		ItemID:   addition.ItemID,
		Quantity: addition.Quantity,
		Price:    addition.Price,
	}, nil
}
