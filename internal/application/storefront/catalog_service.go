package storefront

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/storefront/internal/domain/catalog"
	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/infrastructure/logger"
	"github.com/erp/storefront/internal/infrastructure/telemetry"
)

// CatalogIndexBuilder fetches a bounded catalog slice and indexes it by item identifier.
type CatalogIndexBuilder struct {
	searcher catalog.Searcher
	recorder Recorder
	logger   *zap.Logger
}

// NewCatalogIndexBuilder creates a CatalogIndexBuilder.
func NewCatalogIndexBuilder(searcher catalog.Searcher, logger *zap.Logger) *CatalogIndexBuilder {
	return &CatalogIndexBuilder{
		searcher: searcher,
		recorder: noopRecorder{},
		logger:   logger,
	}
}

// SetRecorder sets the metrics recorder.
func (b *CatalogIndexBuilder) SetRecorder(r Recorder) {
	if r != nil {
		b.recorder = r
	}
}

// Build fetches up to limit catalog records matching query and indexes them.
//
// Build never fails: any upstream failure, including the context deadline,
// yields an empty index degraded with ErrEnrichmentUnavailable.
func (b *CatalogIndexBuilder) Build(ctx context.Context, id identity.Identity, query string, limit int) shared.Result[catalog.Index] {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog_index", "build",
		telemetry.WithAttribute(telemetry.SpanAttrQuery, query),
	)
	defer span.End()

	raws, err := b.searcher.SearchCatalog(ctx, id, query, limit)
	if err != nil {
		res := shared.Degraded(catalog.EmptyIndex(), fmt.Errorf("%w: %v", shared.ErrEnrichmentUnavailable, err))
		logger.WithLogger(ctx, logger.FromContextOr(ctx, b.logger)).Warn("Catalog enrichment unavailable",
			zap.String("query", query),
			zap.Error(err),
		)
		telemetry.RecordDegradation(span, res.ReasonCodes())
		b.recorder.ObserveDegradation("catalog_index.build", res.ReasonCodes())
		return res
	}

	index, stats := catalog.IndexFrom(raws)
	telemetry.SetAttributes(span,
		"accepted", stats.Accepted,
		"rejected", stats.Rejected,
		"duplicates", stats.Duplicates,
	)
	if stats.Rejected > 0 || stats.Degraded > 0 {
		logger.WithLogger(ctx, logger.FromContextOr(ctx, b.logger)).Debug("Catalog records normalised with losses",
			zap.Int("accepted", stats.Accepted),
			zap.Int("rejected", stats.Rejected),
			zap.Int("degraded_prices", stats.Degraded),
		)
	}
	return shared.Ok(index)
}

// Search returns the normalised catalog records matching query, in upstream order.
// Records without an identifier are dropped. Upstream failures are returned.
func (b *CatalogIndexBuilder) Search(ctx context.Context, id identity.Identity, query string, limit int) ([]catalog.Record, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "search",
		telemetry.WithAttribute(telemetry.SpanAttrQuery, query),
	)
	defer span.End()

	raws, err := b.searcher.SearchCatalog(ctx, id, query, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	records := make([]catalog.Record, 0, len(raws))
	for _, raw := range raws {
		r, err := catalog.Normalize(raw)
		if err != nil {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
