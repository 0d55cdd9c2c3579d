package catalogsync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

// ErrUnknownRefreshKind indicates an unsupported refresh kind.
var ErrUnknownRefreshKind = errors.New("catalogsync: unknown refresh kind")

// RefreshKind selects the variant value a whole-catalog refresh diffs.
type RefreshKind string

const (
	// RefreshKindPrices refreshes selling and compare-at prices.
	RefreshKindPrices RefreshKind = "prices"
	// RefreshKindQuantities refreshes available quantities.
	RefreshKindQuantities RefreshKind = "quantities"
)

// IsValid reports whether the kind is supported.
func (k RefreshKind) IsValid() bool {
	return k == RefreshKindPrices || k == RefreshKindQuantities
}

// Refresh runs a whole-catalog refresh of the given kind synchronously: it
// loads the source records, snapshots the destination in one paginated pass,
// and applies the value diff with one bulk mutation per affected parent.
// A refresh is exclusive with sync runs; both share the rate budget and would
// race on the same variants.
func (s *Service) Refresh(ctx context.Context, kind RefreshKind) (RefreshReport, error) {
	if !kind.IsValid() {
		return RefreshReport{}, fmt.Errorf("%w: %q", ErrUnknownRefreshKind, kind)
	}

	s.mu.Lock()
	if s.active != nil || s.refreshing {
		s.mu.Unlock()
		return RefreshReport{}, ErrRunActive
	}
	s.refreshing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	records, err := loadSourceRecords(ctx, s.source, s.exec)
	if err != nil {
		return RefreshReport{}, fmt.Errorf("load source catalog: %w", err)
	}

	updater, err := NewBulkDiffUpdater(s.dest, s.exec, BulkDiffConfig{
		LocationID: s.rcfg.LocationID,
		Epsilon:    s.rcfg.QuantityEpsilon,
	}, s.logger)
	if err != nil {
		return RefreshReport{}, err
	}

	s.logger.Info("catalog refresh started",
		zap.String("kind", string(kind)),
		zap.Int("records", len(records)),
	)

	var report RefreshReport
	if kind == RefreshKindPrices {
		report, err = updater.RefreshPrices(ctx, PriceTargetsFrom(records))
	} else {
		report, err = updater.RefreshQuantities(ctx, QuantityTargetsFrom(records))
	}
	if err != nil {
		return report, err
	}

	s.logger.Info("catalog refresh finished",
		zap.String("kind", string(kind)),
		zap.Int("scanned", report.Scanned),
		zap.Int("changed", report.Changed),
		zap.Int("applied", report.Applied),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}

// loadSourceRecords collects the whole source catalog through the paced
// pagination loop.
func loadSourceRecords(ctx context.Context, source catalog.SourceCatalog, exec *retry.Executor) ([]catalog.SourceRecord, error) {
	var records []catalog.SourceRecord
	err := catalog.Paginate(ctx,
		func(ctx context.Context, cursor string) ([]catalog.SourceRecord, string, error) {
			page, err := retry.DoValue(ctx, exec, "source.list_products", func(ctx context.Context) (catalog.SourcePage, error) {
				return source.ListProducts(ctx, cursor)
			})
			if err != nil {
				return nil, "", err
			}
			return page.Records, page.NextCursor, nil
		},
		func(items []catalog.SourceRecord) error {
			records = append(records, items...)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return records, nil
}
