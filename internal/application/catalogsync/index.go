// Package catalogsync implements the catalog synchronization engine: the
// destination index snapshot, the per-record reconciliation algorithm with
// two-phase create, the whole-catalog bulk diff updater, and the orchestrator
// that drives a worker pool over the source records.
package catalogsync

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

// Index is the in-memory snapshot of the destination catalog, built once per
// run by exhaustive pagination. Every record is reachable under every
// applicable match key (variant skus, barcodes, title). During the run the
// index is read-mostly: the only writes are inserts performed by the worker
// that just completed a CREATE, so a concurrently dispatched task for the
// same key never re-creates the product. The index is discarded at run end.
type Index struct {
	byKey sync.Map // catalog.MatchKey -> catalog.DestinationRecord
	size  atomic.Int64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// BuildIndex pages through the whole destination catalog and indexes every
// record. A non-advancing cursor aborts with ErrCursorStalled.
func BuildIndex(ctx context.Context, dest catalog.DestinationCatalog) (*Index, error) {
	idx := NewIndex()
	err := catalog.Paginate(ctx,
		func(ctx context.Context, cursor string) ([]catalog.DestinationRecord, string, error) {
			page, err := dest.ListProducts(ctx, cursor)
			if err != nil {
				return nil, "", err
			}
			return page.Records, page.NextCursor, nil
		},
		func(records []catalog.DestinationRecord) error {
			for _, rec := range records {
				idx.Insert(rec)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// BuildPacedIndex is BuildIndex with the listing calls routed through the
// retry executor, so snapshotting draws from the shared rate budget like
// every other remote call.
func BuildPacedIndex(ctx context.Context, dest catalog.DestinationCatalog, exec *retry.Executor) (*Index, error) {
	return BuildIndex(ctx, &pacedDestination{DestinationCatalog: dest, exec: exec})
}

// Lookup returns the record indexed under key.
func (i *Index) Lookup(key catalog.MatchKey) (catalog.DestinationRecord, bool) {
	v, ok := i.byKey.Load(key)
	if !ok {
		return catalog.DestinationRecord{}, false
	}
	return v.(catalog.DestinationRecord), true
}

// Insert indexes a record under all of its match keys, replacing any previous
// occupant (last write wins). Called during the build and immediately after
// every completed CREATE.
func (i *Index) Insert(rec catalog.DestinationRecord) {
	for _, key := range catalog.KeysOf(rec) {
		if _, loaded := i.byKey.Swap(key, rec); !loaded {
			i.size.Add(1)
		}
	}
}

// Len returns the number of distinct keys in the index.
func (i *Index) Len() int {
	return int(i.size.Load())
}
