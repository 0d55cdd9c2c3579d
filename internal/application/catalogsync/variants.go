package catalogsync

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

// syncVariants reconciles variants and stock of an existing product. Variants
// missing on the storefront are bulk-created in chunks; variants present on
// both sides get their target quantity (sum of per-warehouse quantities) set
// in one batch call, and only when the target differs from the current value
// beyond the tolerance. Unchanged source data therefore produces zero writes.
func (r *Reconciler) syncVariants(ctx context.Context, rec catalog.SourceRecord, dest catalog.DestinationRecord) subOpResult {
	res := subOpResult{name: "variants"}

	existing := make(map[catalog.MatchKey]catalog.DestinationVariant, len(dest.Variants))
	for _, v := range dest.Variants {
		key := catalog.NormalizeKey(v.SKU)
		if !key.IsZero() {
			existing[key] = v
		}
	}

	var missing []catalog.SourceVariant
	changes := make([]catalog.QuantityChange, 0, len(rec.Variants))
	for _, src := range rec.Variants {
		key := catalog.NormalizeKey(src.SKU)
		if key.IsZero() {
			continue
		}
		current, ok := existing[key]
		if !ok {
			missing = append(missing, src)
			continue
		}
		target := src.TotalQuantity()
		if !withinTolerance(target, current.Quantity, r.cfg.QuantityEpsilon) {
			changes = append(changes, catalog.QuantityChange{
				InventoryItemID: current.InventoryItemID,
				LocationID:      r.cfg.LocationID,
				Quantity:        target,
			})
		}
	}

	var createFailures []catalog.ItemFailure
	if len(missing) > 0 {
		created, err := r.createVariants(ctx, dest.ID, missing)
		if err != nil {
			res.err = fmt.Errorf("create missing variants: %w", err)
			return res
		}
		createFailures = created.Failures
		// Freshly created variants start at zero stock; include them in the
		// same quantity batch.
		targets := make(map[catalog.MatchKey]decimal.Decimal, len(missing))
		for _, v := range missing {
			targets[catalog.NormalizeKey(v.SKU)] = v.TotalQuantity()
		}
		for _, v := range created.Created {
			target, ok := targets[catalog.NormalizeKey(v.SKU)]
			if !ok || target.IsZero() {
				continue
			}
			changes = append(changes, catalog.QuantityChange{
				InventoryItemID: v.InventoryItemID,
				LocationID:      r.cfg.LocationID,
				Quantity:        target,
			})
		}
	}

	var quantityFailures []catalog.ItemFailure
	if len(changes) > 0 {
		report, err := retry.DoValue(ctx, r.exec, "storefront.set_quantities", func(ctx context.Context) (catalog.BatchReport, error) {
			return r.dest.SetQuantities(ctx, changes)
		})
		if err != nil {
			res.err = fmt.Errorf("set quantities: %w", err)
			return res
		}
		quantityFailures = report.Failures
	}

	if len(createFailures) > 0 || len(quantityFailures) > 0 {
		res.err = fmt.Errorf("%d variant creations and %d quantity sets failed (%s)",
			len(createFailures), len(quantityFailures),
			firstFailure(append(append([]catalog.ItemFailure{}, createFailures...), quantityFailures...)))
	}
	return res
}

// withinTolerance reports whether a and b differ by no more than epsilon.
func withinTolerance(a, b, epsilon decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(epsilon)
}
