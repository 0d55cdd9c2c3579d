// Package migration moves orders from the inventory source-of-record onto
// the storefront. Lines are matched to storefront variants by the same key
// normalization the catalog sync uses; unmatched lines are reported, never
// invented. Every created order is re-read and verified before the migration
// is declared successful.
package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/application/catalogsync"
	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

var (
	// ErrOrderNotFound indicates the source order does not exist.
	ErrOrderNotFound = errors.New("migration: source order not found")
	// ErrNoLinesMatched indicates no order line could be resolved to a
	// storefront variant, so there is nothing to create.
	ErrNoLinesMatched = errors.New("migration: no order lines matched a storefront variant")
	// ErrVerificationFailed indicates the created order, on re-read, does not
	// carry what was submitted. The order is left in place for inspection.
	ErrVerificationFailed = errors.New("migration: created order failed verification")
)

// UnmatchedLine reports one order line that could not be resolved.
type UnmatchedLine struct {
	// SKU is the line's source SKU, may be empty.
	SKU string `json:"sku,omitempty"`
	// Name is the line's product name.
	Name string `json:"name,omitempty"`
	// Reason explains why the line was not migrated.
	Reason string `json:"reason"`
}

// Result reports one order migration.
type Result struct {
	// SourceOrderID is the migrated order's id in the source system.
	SourceOrderID string `json:"source_order_id"`
	// DestinationOrderID is the created order's id on the storefront.
	DestinationOrderID string `json:"destination_order_id"`
	// Reference is the order number carried onto the storefront order.
	Reference string `json:"reference"`
	// LinesTotal is the source order's line count.
	LinesTotal int `json:"lines_total"`
	// LinesMigrated is the count of lines resolved and submitted.
	LinesMigrated int `json:"lines_migrated"`
	// Unmatched lists the lines left behind and why.
	Unmatched []UnmatchedLine `json:"unmatched,omitempty"`
	// TransferQuality is LinesMigrated / LinesTotal in [0, 1].
	TransferQuality float64 `json:"transfer_quality"`
	// VerifiedAt is when the post-write verification passed.
	VerifiedAt time.Time `json:"verified_at"`
}

// Migrator migrates single orders across catalogs.
type Migrator struct {
	source catalog.SourceCatalog
	dest   catalog.DestinationCatalog
	index  *catalogsync.Index
	exec   *retry.Executor
	logger *zap.Logger
}

// NewMigrator creates a Migrator. The index must hold a current destination
// snapshot; the caller decides when to rebuild it.
func NewMigrator(
	source catalog.SourceCatalog,
	dest catalog.DestinationCatalog,
	index *catalogsync.Index,
	exec *retry.Executor,
	logger *zap.Logger,
) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{source: source, dest: dest, index: index, exec: exec, logger: logger}
}

// MigrateOrder copies one source order onto the storefront. It resolves each
// line to a storefront variant, creates the order with the matched lines,
// then re-reads it and verifies line count and total quantity against what
// was submitted. A verification shortfall is a hard error; the created order
// is never deleted.
func (m *Migrator) MigrateOrder(ctx context.Context, orderID string) (*Result, error) {
	order, err := retry.DoValue(ctx, m.exec, "source.get_order", func(ctx context.Context) (*catalog.SourceOrder, error) {
		return m.source.GetOrder(ctx, orderID)
	})
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("fetch source order %s: %w", orderID, err)
	}

	draft, unmatched := m.resolveLines(*order)
	if len(draft.Lines) == 0 {
		return nil, fmt.Errorf("%w: order %s", ErrNoLinesMatched, orderID)
	}

	created, err := retry.DoValue(ctx, m.exec, "storefront.create_order", func(ctx context.Context) (*catalog.DestinationOrder, error) {
		return m.dest.CreateOrder(ctx, draft)
	})
	if err != nil {
		return nil, fmt.Errorf("create storefront order for %s: %w", orderID, err)
	}

	if err := m.verify(ctx, created.ID, draft); err != nil {
		return nil, err
	}

	result := &Result{
		SourceOrderID:      order.ID,
		DestinationOrderID: created.ID,
		Reference:          draft.Reference,
		LinesTotal:         len(order.Lines),
		LinesMigrated:      len(draft.Lines),
		Unmatched:          unmatched,
		TransferQuality:    float64(len(draft.Lines)) / float64(len(order.Lines)),
		VerifiedAt:         time.Now(),
	}
	m.logger.Info("order migrated",
		zap.String("source_order_id", result.SourceOrderID),
		zap.String("destination_order_id", result.DestinationOrderID),
		zap.Int("lines_total", result.LinesTotal),
		zap.Int("lines_migrated", result.LinesMigrated),
		zap.Float64("transfer_quality", result.TransferQuality),
	)
	return result, nil
}

// resolveLines maps each order line to a storefront variant via the index.
// A line resolves through its SKU first, then its barcode, then its name.
func (m *Migrator) resolveLines(order catalog.SourceOrder) (catalog.OrderDraft, []UnmatchedLine) {
	draft := catalog.OrderDraft{
		Reference:     order.Number,
		CustomerEmail: order.CustomerEmail,
	}
	var unmatched []UnmatchedLine
	for _, line := range order.Lines {
		variantID, ok := m.resolveVariant(line)
		if !ok {
			unmatched = append(unmatched, UnmatchedLine{
				SKU:    line.SKU,
				Name:   line.Name,
				Reason: "no matching sku",
			})
			continue
		}
		draft.Lines = append(draft.Lines, catalog.OrderDraftLine{
			VariantID: variantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return draft, unmatched
}

func (m *Migrator) resolveVariant(line catalog.SourceOrderLine) (string, bool) {
	for _, raw := range []string{line.SKU, line.Barcode, line.Name} {
		key := catalog.NormalizeKey(raw)
		if key.IsZero() {
			continue
		}
		rec, ok := m.index.Lookup(key)
		if !ok {
			continue
		}
		if v, ok := matchVariant(rec, line); ok {
			return v, true
		}
	}
	return "", false
}

// matchVariant picks the variant within a matched product. A SKU or barcode
// hit wins; a product matched only by name falls back to its sole variant,
// and is rejected when the product has several.
func matchVariant(rec catalog.DestinationRecord, line catalog.SourceOrderLine) (string, bool) {
	sku := catalog.NormalizeKey(line.SKU)
	barcode := catalog.NormalizeKey(line.Barcode)
	for _, v := range rec.Variants {
		if !sku.IsZero() && catalog.NormalizeKey(v.SKU) == sku {
			return v.ID, true
		}
		if !barcode.IsZero() && catalog.NormalizeKey(v.Barcode) == barcode {
			return v.ID, true
		}
	}
	if sku.IsZero() && barcode.IsZero() && len(rec.Variants) == 1 {
		return rec.Variants[0].ID, true
	}
	return "", false
}

// verify re-reads the created order and checks it carries every submitted
// line and the full submitted quantity.
func (m *Migrator) verify(ctx context.Context, orderID string, draft catalog.OrderDraft) error {
	got, err := retry.DoValue(ctx, m.exec, "storefront.get_order", func(ctx context.Context) (*catalog.DestinationOrder, error) {
		return m.dest.GetOrder(ctx, orderID)
	})
	if err != nil {
		return fmt.Errorf("%w: re-read of order %s: %v", ErrVerificationFailed, orderID, err)
	}

	var problems []string
	if len(got.Lines) != len(draft.Lines) {
		problems = append(problems, fmt.Sprintf("line count %d, submitted %d", len(got.Lines), len(draft.Lines)))
	}
	want := draft.TotalQuantity()
	have := got.TotalQuantity()
	if !have.Equal(want) {
		problems = append(problems, fmt.Sprintf("total quantity %s, submitted %s", have.String(), want.String()))
	}
	if len(problems) > 0 {
		m.logger.Error("order verification shortfall",
			zap.String("destination_order_id", orderID),
			zap.Strings("problems", problems),
		)
		return fmt.Errorf("%w: order %s: %s", ErrVerificationFailed, orderID, strings.Join(problems, "; "))
	}
	return nil
}
