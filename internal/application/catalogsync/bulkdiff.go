package catalogsync

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/domain/syncrun"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

// ErrInvalidBulkDiffConfig indicates an unusable bulk diff configuration.
var ErrInvalidBulkDiffConfig = errors.New("catalogsync: invalid bulk diff configuration")

// BulkDiffConfig holds bulk refresh tuning parameters.
type BulkDiffConfig struct {
	// LocationID is the storefront location quantities are set at.
	LocationID string
	// Epsilon is the numeric tolerance below which a value difference counts
	// as "no change", avoiding floating-point false positives.
	Epsilon decimal.Decimal
}

// DefaultBulkDiffConfig returns bulk refresh defaults.
func DefaultBulkDiffConfig() BulkDiffConfig {
	return BulkDiffConfig{
		LocationID: "primary",
		Epsilon:    decimal.NewFromFloat(0.001),
	}
}

// Validate validates the configuration.
func (c BulkDiffConfig) Validate() error {
	if c.LocationID == "" || c.Epsilon.IsNegative() {
		return ErrInvalidBulkDiffConfig
	}
	return nil
}

// PriceTarget is the desired price pair for one variant.
type PriceTarget struct {
	// Price is the desired selling price.
	Price decimal.Decimal
	// ComparePrice is the desired compare-at price.
	ComparePrice decimal.Decimal
}

// RefreshReport summarizes one whole-catalog refresh. Per-parent mutation
// results are independent: one parent's failure never aborts parents already
// queued or in flight.
type RefreshReport struct {
	// Scanned is the number of destination variants examined.
	Scanned int `json:"scanned"`
	// Changed is the number of variants whose value differed beyond the
	// tolerance.
	Changed int `json:"changed"`
	// Parents is the number of parent products covering the changed
	// variants; one bulk mutation is issued per parent.
	Parents int `json:"parents"`
	// Applied is the number of variant-level changes the vendor accepted.
	Applied int `json:"applied"`
	// Failures lists rejected items and failed parent mutations.
	Failures []catalog.ItemFailure `json:"failures,omitempty"`
}

// BulkDiffUpdater performs whole-catalog price and stock refreshes. Per-record
// reconciliation would need one lookup call per entity; instead the updater
// fetches the destination snapshot in a single paginated pass, diffs it
// in memory against the target map, groups changed variants by parent
// product, and issues one bulk mutation per affected parent.
type BulkDiffUpdater struct {
	dest   catalog.DestinationCatalog
	exec   *retry.Executor
	cfg    BulkDiffConfig
	logger *zap.Logger
}

// NewBulkDiffUpdater creates a BulkDiffUpdater.
func NewBulkDiffUpdater(dest catalog.DestinationCatalog, exec *retry.Executor, cfg BulkDiffConfig, logger *zap.Logger) (*BulkDiffUpdater, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkDiffUpdater{dest: dest, exec: exec, cfg: cfg, logger: logger}, nil
}

// PriceTargetsFrom builds the price target map from source records.
func PriceTargetsFrom(records []catalog.SourceRecord) map[catalog.MatchKey]PriceTarget {
	targets := make(map[catalog.MatchKey]PriceTarget)
	for _, rec := range records {
		for _, v := range rec.Variants {
			key := catalog.NormalizeKey(v.SKU)
			if key.IsZero() {
				continue
			}
			targets[key] = PriceTarget{Price: v.Price, ComparePrice: v.ComparePrice}
		}
	}
	return targets
}

// QuantityTargetsFrom builds the quantity target map from source records,
// summing per-warehouse quantities.
func QuantityTargetsFrom(records []catalog.SourceRecord) map[catalog.MatchKey]decimal.Decimal {
	targets := make(map[catalog.MatchKey]decimal.Decimal)
	for _, rec := range records {
		for _, v := range rec.Variants {
			key := catalog.NormalizeKey(v.SKU)
			if key.IsZero() {
				continue
			}
			targets[key] = v.TotalQuantity()
		}
	}
	return targets
}

// RefreshPrices diffs every destination variant's price pair against targets
// and applies the changes with one bulk mutation per parent product.
func (u *BulkDiffUpdater) RefreshPrices(ctx context.Context, targets map[catalog.MatchKey]PriceTarget) (RefreshReport, error) {
	var report RefreshReport
	byParent := make(map[string][]catalog.VariantUpdate)

	err := u.scan(ctx, func(productID string, v catalog.DestinationVariant) {
		report.Scanned++
		target, ok := targets[catalog.NormalizeKey(v.SKU)]
		if !ok {
			return
		}
		update := catalog.VariantUpdate{VariantID: v.ID}
		if !withinTolerance(target.Price, v.Price, u.cfg.Epsilon) {
			price := target.Price
			update.Price = &price
		}
		if !withinTolerance(target.ComparePrice, v.ComparePrice, u.cfg.Epsilon) {
			compare := target.ComparePrice
			update.ComparePrice = &compare
		}
		if update.Price == nil && update.ComparePrice == nil {
			return
		}
		report.Changed++
		byParent[productID] = append(byParent[productID], update)
	})
	if err != nil {
		return report, err
	}

	report.Parents = len(byParent)
	for _, productID := range sortedKeys(byParent) {
		updates := byParent[productID]
		batch, err := retry.DoValue(ctx, u.exec, "storefront.bulk_update_variants", func(ctx context.Context) (catalog.BatchReport, error) {
			return u.dest.BulkUpdateVariants(ctx, productID, updates)
		})
		if err != nil {
			if catalog.IsRunFatal(err) {
				return report, err
			}
			report.Failures = append(report.Failures, catalog.ItemFailure{ItemID: productID, Message: err.Error()})
			u.logger.Warn("price refresh failed for parent",
				zap.String("product_id", productID),
				zap.Int("updates", len(updates)),
				zap.Error(err),
			)
			continue
		}
		report.Applied += batch.Succeeded
		report.Failures = append(report.Failures, batch.Failures...)
	}
	return report, nil
}

// RefreshQuantities diffs every destination variant's quantity against
// targets and applies the changes with one batch quantity call per parent.
func (u *BulkDiffUpdater) RefreshQuantities(ctx context.Context, targets map[catalog.MatchKey]decimal.Decimal) (RefreshReport, error) {
	var report RefreshReport
	byParent := make(map[string][]catalog.QuantityChange)

	err := u.scan(ctx, func(productID string, v catalog.DestinationVariant) {
		report.Scanned++
		target, ok := targets[catalog.NormalizeKey(v.SKU)]
		if !ok {
			return
		}
		if withinTolerance(target, v.Quantity, u.cfg.Epsilon) {
			return
		}
		report.Changed++
		byParent[productID] = append(byParent[productID], catalog.QuantityChange{
			InventoryItemID: v.InventoryItemID,
			LocationID:      u.cfg.LocationID,
			Quantity:        target,
		})
	})
	if err != nil {
		return report, err
	}

	report.Parents = len(byParent)
	for _, productID := range sortedKeys(byParent) {
		changes := byParent[productID]
		batch, err := retry.DoValue(ctx, u.exec, "storefront.set_quantities", func(ctx context.Context) (catalog.BatchReport, error) {
			return u.dest.SetQuantities(ctx, changes)
		})
		if err != nil {
			if catalog.IsRunFatal(err) {
				return report, err
			}
			report.Failures = append(report.Failures, catalog.ItemFailure{ItemID: productID, Message: err.Error()})
			u.logger.Warn("quantity refresh failed for parent",
				zap.String("product_id", productID),
				zap.Int("changes", len(changes)),
				zap.Error(err),
			)
			continue
		}
		report.Applied += batch.Succeeded
		report.Failures = append(report.Failures, batch.Failures...)
	}
	return report, nil
}

// Stats converts a refresh report into run counters, mapping applied changes
// to updates and failures to failures.
func (r RefreshReport) Stats() syncrun.StatsSnapshot {
	return syncrun.StatsSnapshot{
		Total:     r.Changed,
		Processed: r.Applied + len(r.Failures),
		Updated:   r.Applied,
		Failed:    len(r.Failures),
	}
}

// scan walks the whole destination catalog once, visiting every variant.
func (u *BulkDiffUpdater) scan(ctx context.Context, visit func(productID string, v catalog.DestinationVariant)) error {
	return catalog.Paginate(ctx,
		func(ctx context.Context, cursor string) ([]catalog.DestinationRecord, string, error) {
			page, err := retry.DoValue(ctx, u.exec, "storefront.list_products", func(ctx context.Context) (catalog.DestinationPage, error) {
				return u.dest.ListProducts(ctx, cursor)
			})
			if err != nil {
				return nil, "", err
			}
			return page.Records, page.NextCursor, nil
		},
		func(records []catalog.DestinationRecord) error {
			for _, rec := range records {
				for _, v := range rec.Variants {
					visit(rec.ID, v)
				}
			}
			return nil
		},
	)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
