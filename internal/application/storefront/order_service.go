package storefront

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
	"github.com/erp/storefront/internal/domain/trade"
	"github.com/erp/storefront/internal/infrastructure/logger"
	"github.com/erp/storefront/internal/infrastructure/telemetry"
)

// OrderHistoryService loads a caller's past orders, enriched with catalog captions.
type OrderHistoryService struct {
	orders     trade.OrderStore
	catalog    *CatalogIndexBuilder
	enrichment EnrichmentSettings
	recorder   Recorder
	logger     *zap.Logger
}

// NewOrderHistoryService creates an OrderHistoryService.
func NewOrderHistoryService(orders trade.OrderStore, builder *CatalogIndexBuilder, enrichment EnrichmentSettings, logger *zap.Logger) *OrderHistoryService {
	return &OrderHistoryService{
		orders:     orders,
		catalog:    builder,
		enrichment: enrichment,
		recorder:   noopRecorder{},
		logger:     logger,
	}
}

// SetRecorder sets the metrics recorder.
func (s *OrderHistoryService) SetRecorder(r Recorder) {
	if r != nil {
		s.recorder = r
	}
}

// History returns the caller's orders in upstream order.
//
// The order fetch and the catalog fetch run concurrently. A failed order fetch
// degrades to an empty history; only ErrIdentityMissing and
// ErrSessionInvalidated fail.
func (s *OrderHistoryService) History(ctx context.Context, id identity.Identity) shared.Result[[]trade.OrderRecord] {
	if err := id.Validate(); err != nil {
		return shared.Failed[[]trade.OrderRecord](err)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "order_history", "load",
		telemetry.WithAttribute(telemetry.SpanAttrUserID, id.UserID),
	)
	defer span.End()

	var (
		raws     []valueobject.Fields
		fetchErr error
		index    shared.Result[catalog.Index]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raws, fetchErr = s.orders.FetchOrders(gctx, id)
		return nil
	})
	g.Go(func() error {
		cctx := gctx
		if s.enrichment.Wait > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(gctx, s.enrichment.Wait)
			defer cancel()
		}
		index = s.catalog.Build(cctx, id, s.enrichment.Query, s.enrichment.Limit)
		return nil
	})
	_ = g.Wait()

	log := logger.WithLogger(ctx, logger.FromContextOr(ctx, s.logger))
	if fetchErr != nil {
		telemetry.RecordError(span, fetchErr)
		if errors.Is(fetchErr, shared.ErrSessionInvalidated) || errors.Is(fetchErr, shared.ErrIdentityMissing) {
			return shared.Failed[[]trade.OrderRecord](fetchErr)
		}
		res := shared.Degraded([]trade.OrderRecord{}, fetchErr)
		s.recorder.ObserveDegradation("order_history.load", res.ReasonCodes())
		log.Warn("Order history unavailable", zap.Error(fetchErr))
		return res
	}

	res := shared.Merge(trade.ReconcileOrders(raws, index.Value), index)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderCount, len(res.Value),
		telemetry.SpanAttrStatus, string(res.Status),
	)
	if res.IsDegraded() {
		telemetry.RecordDegradation(span, res.ReasonCodes())
		s.recorder.ObserveDegradation("order_history.load", res.ReasonCodes())
		log.Warn("Order history loaded degraded",
			zap.Strings("reasons", res.ReasonCodes()),
			zap.Int("orders", len(res.Value)),
		)
	}
	return res
}
