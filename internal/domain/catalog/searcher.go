package catalog

import (
	"context"

	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
)

// Searcher runs one bounded catalog search and returns the raw result objects.
type Searcher interface {
	SearchCatalog(ctx context.Context, id identity.Identity, query string, limit int) ([]valueobject.Fields, error)
}
