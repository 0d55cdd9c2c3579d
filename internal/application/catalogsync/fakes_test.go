package catalogsync

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

// newFastExecutor returns a single-attempt executor so fake failures surface
// immediately without backoff sleeps.
func newFastExecutor(t *testing.T) *retry.Executor {
	t.Helper()
	exec, err := retry.NewExecutor(retry.Config{
		MaxAttempts:     1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1,
	}, nil, zap.NewNop())
	require.NoError(t, err)
	return exec
}

// ---------------------------------------------------------------------------
// Source Fake
// ---------------------------------------------------------------------------

type fakeSource struct {
	mu        sync.Mutex
	records   []catalog.SourceRecord
	pageSize  int
	listErr   error
	gate      chan struct{}
	images    map[string][]string
	imagesErr error
	orders    map[string]*catalog.SourceOrder
}

func (s *fakeSource) ListProducts(ctx context.Context, cursor string) (catalog.SourcePage, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return catalog.SourcePage{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return catalog.SourcePage{}, s.listErr
	}
	size := s.pageSize
	if size <= 0 {
		size = len(s.records)
	}
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	if start >= len(s.records) {
		return catalog.SourcePage{}, nil
	}
	end := start + size
	next := ""
	if end < len(s.records) {
		next = strconv.Itoa(end)
	} else {
		end = len(s.records)
	}
	return catalog.SourcePage{Records: s.records[start:end], NextCursor: next}, nil
}

func (s *fakeSource) GetProduct(_ context.Context, sku string) (*catalog.SourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].SKU == sku {
			rec := s.records[i]
			return &rec, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s *fakeSource) GetOrder(_ context.Context, orderID string) (*catalog.SourceOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return order, nil
}

func (s *fakeSource) ListOrderedImages(_ context.Context, sku string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imagesErr != nil {
		return nil, s.imagesErr
	}
	return s.images[sku], nil
}

// ---------------------------------------------------------------------------
// Destination Fake
// ---------------------------------------------------------------------------

type fakeDest struct {
	mu       sync.Mutex
	pageSize int
	products map[string]*catalog.DestinationRecord
	order    []string
	orders   map[string]*catalog.DestinationOrder
	nextID   int

	// calls is the ordered log of mutating and listing calls.
	calls []string
	// failOn maps a call name to an error returned instead of executing it.
	failOn map[string]error
	// failBulkForProduct fails bulk variant updates for specific parents.
	failBulkForProduct map[string]error
	// rejectSKUs marks variant inputs rejected item-level during creation.
	rejectSKUs map[string]string
	// rejectItems marks inventory items rejected item-level by quantity sets.
	rejectItems map[string]string
	// stallCursor makes listings repeat the same next cursor forever.
	stallCursor bool
}

func newFakeDest(records ...catalog.DestinationRecord) *fakeDest {
	d := &fakeDest{
		products: make(map[string]*catalog.DestinationRecord),
		orders:   make(map[string]*catalog.DestinationOrder),
	}
	for _, rec := range records {
		rec := rec
		d.products[rec.ID] = &rec
		d.order = append(d.order, rec.ID)
	}
	return d
}

func (d *fakeDest) begin(name string) error {
	d.calls = append(d.calls, name)
	if err, ok := d.failOn[name]; ok {
		return err
	}
	return nil
}

func (d *fakeDest) callCount(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (d *fakeDest) callLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

func (d *fakeDest) product(id string) catalog.DestinationRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.products[id]
}

func (d *fakeDest) id(prefix string) string {
	d.nextID++
	return fmt.Sprintf("%s-%d", prefix, d.nextID)
}

func (d *fakeDest) ListProducts(_ context.Context, cursor string) (catalog.DestinationPage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("list_products"); err != nil {
		return catalog.DestinationPage{}, err
	}
	records := make([]catalog.DestinationRecord, 0, len(d.order))
	for _, id := range d.order {
		records = append(records, *d.products[id])
	}
	if d.stallCursor {
		return catalog.DestinationPage{Records: records, NextCursor: "stuck"}, nil
	}
	size := d.pageSize
	if size <= 0 {
		size = len(records)
	}
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	if start >= len(records) {
		return catalog.DestinationPage{}, nil
	}
	end := start + size
	next := ""
	if end < len(records) {
		next = strconv.Itoa(end)
	} else {
		end = len(records)
	}
	return catalog.DestinationPage{Records: records[start:end], NextCursor: next}, nil
}

func (d *fakeDest) CreateProductDraft(_ context.Context, draft catalog.ProductDraft) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("create_draft"); err != nil {
		return "", err
	}
	id := d.id("prod")
	d.products[id] = &catalog.DestinationRecord{
		ID:          id,
		Title:       draft.Title,
		Description: draft.Description,
		Status:      catalog.ProductStatusDraft,
	}
	d.order = append(d.order, id)
	return id, nil
}

func (d *fakeDest) UpdateProductDetails(_ context.Context, productID string, details catalog.ProductDetails) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("update_details"); err != nil {
		return err
	}
	rec, ok := d.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	rec.Title = details.Title
	rec.Description = details.Description
	return nil
}

func (d *fakeDest) UpdateProductSEO(_ context.Context, productID string, seo catalog.SEOFields) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("update_seo"); err != nil {
		return err
	}
	rec, ok := d.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	rec.SEO = seo
	return nil
}

func (d *fakeDest) CreateVariants(_ context.Context, productID string, variants []catalog.VariantInput) (catalog.VariantCreateResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("create_variants"); err != nil {
		return catalog.VariantCreateResult{}, err
	}
	rec, ok := d.products[productID]
	if !ok {
		return catalog.VariantCreateResult{}, catalog.ErrNotFound
	}
	var result catalog.VariantCreateResult
	for _, in := range variants {
		if msg, rejected := d.rejectSKUs[in.SKU]; rejected {
			result.Failures = append(result.Failures, catalog.ItemFailure{ItemID: in.SKU, Message: msg})
			continue
		}
		variant := catalog.DestinationVariant{
			ID:              d.id("var"),
			SKU:             in.SKU,
			Barcode:         in.Barcode,
			Price:           in.Price,
			ComparePrice:    in.ComparePrice,
			InventoryItemID: d.id("inv"),
		}
		rec.Variants = append(rec.Variants, variant)
		result.Created = append(result.Created, variant)
	}
	return result, nil
}

func (d *fakeDest) BulkUpdateVariants(_ context.Context, productID string, updates []catalog.VariantUpdate) (catalog.BatchReport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("bulk_update_variants"); err != nil {
		return catalog.BatchReport{}, err
	}
	if err, ok := d.failBulkForProduct[productID]; ok {
		return catalog.BatchReport{}, err
	}
	rec, ok := d.products[productID]
	if !ok {
		return catalog.BatchReport{}, catalog.ErrNotFound
	}
	var report catalog.BatchReport
	for _, up := range updates {
		applied := false
		for i := range rec.Variants {
			if rec.Variants[i].ID != up.VariantID {
				continue
			}
			if up.Price != nil {
				rec.Variants[i].Price = *up.Price
			}
			if up.ComparePrice != nil {
				rec.Variants[i].ComparePrice = *up.ComparePrice
			}
			applied = true
			break
		}
		if applied {
			report.Succeeded++
		} else {
			report.Failures = append(report.Failures, catalog.ItemFailure{ItemID: up.VariantID, Message: "unknown variant"})
		}
	}
	return report, nil
}

func (d *fakeDest) SetQuantities(_ context.Context, changes []catalog.QuantityChange) (catalog.BatchReport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("set_quantities"); err != nil {
		return catalog.BatchReport{}, err
	}
	var report catalog.BatchReport
	for _, change := range changes {
		if msg, rejected := d.rejectItems[change.InventoryItemID]; rejected {
			report.Failures = append(report.Failures, catalog.ItemFailure{ItemID: change.InventoryItemID, Message: msg})
			continue
		}
		applied := false
		for _, rec := range d.products {
			for i := range rec.Variants {
				if rec.Variants[i].InventoryItemID == change.InventoryItemID {
					rec.Variants[i].Quantity = change.Quantity
					applied = true
				}
			}
		}
		if applied {
			report.Succeeded++
		} else {
			report.Failures = append(report.Failures, catalog.ItemFailure{ItemID: change.InventoryItemID, Message: "unknown inventory item"})
		}
	}
	return report, nil
}

func (d *fakeDest) ActivateProduct(_ context.Context, productID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("activate"); err != nil {
		return err
	}
	rec, ok := d.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	rec.Status = catalog.ProductStatusActive
	return nil
}

func (d *fakeDest) ListMedia(_ context.Context, productID string) ([]catalog.MediaAsset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("list_media"); err != nil {
		return nil, err
	}
	rec, ok := d.products[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	out := make([]catalog.MediaAsset, len(rec.Media))
	copy(out, rec.Media)
	return out, nil
}

func (d *fakeDest) CreateMedia(_ context.Context, productID string, media catalog.MediaInput) (catalog.MediaAsset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("create_media"); err != nil {
		return catalog.MediaAsset{}, err
	}
	rec, ok := d.products[productID]
	if !ok {
		return catalog.MediaAsset{}, catalog.ErrNotFound
	}
	asset := catalog.MediaAsset{
		ID:       d.id("media"),
		URL:      media.URL,
		Alt:      media.Alt,
		Position: len(rec.Media) + 1,
	}
	rec.Media = append(rec.Media, asset)
	return asset, nil
}

func (d *fakeDest) DeleteMedia(_ context.Context, productID, mediaID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("delete_media"); err != nil {
		return err
	}
	rec, ok := d.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	kept := rec.Media[:0]
	for _, asset := range rec.Media {
		if asset.ID != mediaID {
			kept = append(kept, asset)
		}
	}
	rec.Media = kept
	return nil
}

func (d *fakeDest) ReorderMedia(_ context.Context, productID string, mediaIDs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("reorder_media"); err != nil {
		return err
	}
	rec, ok := d.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	byID := make(map[string]catalog.MediaAsset, len(rec.Media))
	for _, asset := range rec.Media {
		byID[asset.ID] = asset
	}
	reordered := make([]catalog.MediaAsset, 0, len(rec.Media))
	for _, id := range mediaIDs {
		if asset, ok := byID[id]; ok {
			asset.Position = len(reordered) + 1
			reordered = append(reordered, asset)
			delete(byID, id)
		}
	}
	for _, asset := range rec.Media {
		if _, stray := byID[asset.ID]; stray {
			asset.Position = len(reordered) + 1
			reordered = append(reordered, asset)
		}
	}
	rec.Media = reordered
	return nil
}

func (d *fakeDest) CreateOrder(_ context.Context, draft catalog.OrderDraft) (*catalog.DestinationOrder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("create_order"); err != nil {
		return nil, err
	}
	order := &catalog.DestinationOrder{
		ID:        d.id("order"),
		Reference: draft.Reference,
		CreatedAt: time.Now(),
	}
	for _, line := range draft.Lines {
		order.Lines = append(order.Lines, catalog.DestinationOrderLine{
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		})
	}
	d.orders[order.ID] = order
	return order, nil
}

func (d *fakeDest) GetOrder(_ context.Context, orderID string) (*catalog.DestinationOrder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("get_order"); err != nil {
		return nil, err
	}
	order, ok := d.orders[orderID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return order, nil
}

var (
	_ catalog.SourceCatalog      = (*fakeSource)(nil)
	_ catalog.DestinationCatalog = (*fakeDest)(nil)
)
