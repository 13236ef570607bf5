package catalog

import (
	"github.com/erp/storefront/internal/domain/shared/valueobject"
)

// Index maps item identifiers to normalised records.
//
// An Index is either Ready (built from a catalog response, possibly with zero
// entries) or Empty (no catalog data was available). Both are valid inputs to
// reconciliation; lookups on an Empty index always miss.
type Index struct {
	records map[string]Record
}

// EmptyIndex returns the index used when catalog enrichment is unavailable.
func EmptyIndex() Index {
	return Index{}
}

// NewIndex builds a Ready index from records. Later duplicates overwrite earlier ones.
func NewIndex(records ...Record) Index {
	idx := Index{records: make(map[string]Record, len(records))}
	for _, r := range records {
		idx.records[r.ItemID] = r
	}
	return idx
}

// BuildStats describes what happened to the raw items fed into an index.
type BuildStats struct {
	Accepted   int
	Rejected   int
	Degraded   int
	Duplicates int
}

// IndexFrom normalises raw items and builds a Ready index from the accepted ones.
func IndexFrom(raws []valueobject.Fields) (Index, BuildStats) {
	var stats BuildStats
	idx := Index{records: make(map[string]Record, len(raws))}
	for _, raw := range raws {
		record, err := Normalize(raw)
		if err != nil {
			stats.Rejected++
			continue
		}
		if _, dup := idx.records[record.ItemID]; dup {
			stats.Duplicates++
		}
		if record.Degraded {
			stats.Degraded++
		}
		idx.records[record.ItemID] = record
		stats.Accepted++
	}
	return idx, stats
}

// IsReady reports whether the index was built from catalog data.
func (i Index) IsReady() bool {
	return i.records != nil
}

// Len returns the number of indexed records.
func (i Index) Len() int {
	return len(i.records)
}

// Lookup returns the record for itemID.
func (i Index) Lookup(itemID string) (Record, bool) {
	r, ok := i.records[itemID]
	return r, ok
}

// Records returns all records in unspecified order.
func (i Index) Records() []Record {
	out := make([]Record, 0, len(i.records))
	for _, r := range i.records {
		out = append(out, r)
	}
	return out
}
