package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

// SourcePage is one page of source records.
type SourcePage struct {
	// Records are the records on this page.
	Records []SourceRecord
	// NextCursor is the cursor for the next page, empty on the last page.
	NextCursor string
}

// DestinationPage is one page of destination records.
type DestinationPage struct {
	// Records are the records on this page.
	Records []DestinationRecord
	// NextCursor is the cursor for the next page, empty on the last page.
	NextCursor string
}

// Paginate drives an exhaustive cursor walk over a paged listing. It stops on
// an empty page or an absent next cursor, and fails with ErrCursorStalled if
// the vendor returns a non-advancing cursor, so a misbehaving vendor can
// never trap the caller in an infinite loop.
func Paginate[T any](
	ctx context.Context,
	list func(ctx context.Context, cursor string) ([]T, string, error),
	visit func(items []T) error,
) error {
	cursor := ""
	for {
		items, next, err := list(ctx, cursor)
		if err != nil {
			return err
		}
		if len(items) > 0 {
			if err := visit(items); err != nil {
				return err
			}
		}
		if next == "" || len(items) == 0 {
			return nil
		}
		if next == cursor {
			return ErrCursorStalled
		}
		cursor = next
	}
}

// ---------------------------------------------------------------------------
// Partial-Failure Reports
// ---------------------------------------------------------------------------

// ItemFailure describes one failed item inside a batch call.
type ItemFailure struct {
	// ItemID identifies the failed item (sku, variant id or inventory item id).
	ItemID string
	// Code is the vendor error code, may be empty.
	Code string
	// Message is the error description.
	Message string
}

// BatchReport carries the outcome of a batch mutation. Partial failures are
// data, not errors: a batch call only returns a Go error when the whole call
// failed.
type BatchReport struct {
	// Succeeded is the number of items applied.
	Succeeded int
	// Failures lists the items that were rejected.
	Failures []ItemFailure
}

// AllSucceeded reports whether every item in the batch was applied.
func (r BatchReport) AllSucceeded() bool {
	return len(r.Failures) == 0
}

// Merge folds another report into this one.
func (r *BatchReport) Merge(other BatchReport) {
	r.Succeeded += other.Succeeded
	r.Failures = append(r.Failures, other.Failures...)
}

// VariantCreateResult is the outcome of a bulk variant creation.
type VariantCreateResult struct {
	// Created holds the variants that were created, with storefront ids.
	Created []DestinationVariant
	// Failures lists the inputs that were rejected.
	Failures []ItemFailure
}

// Report converts the result into a BatchReport.
func (r VariantCreateResult) Report() BatchReport {
	return BatchReport{Succeeded: len(r.Created), Failures: r.Failures}
}

// Merge folds another result into this one.
func (r *VariantCreateResult) Merge(other VariantCreateResult) {
	r.Created = append(r.Created, other.Created...)
	r.Failures = append(r.Failures, other.Failures...)
}

// ---------------------------------------------------------------------------
// Mutation Inputs
// ---------------------------------------------------------------------------

// ProductDraft is the minimal payload for creating a storefront product in
// draft state. Variants, quantities and media are attached afterwards; the
// product only goes live once all of them are in place.
type ProductDraft struct {
	// Title is the product title.
	Title string
	// Description is the product body/description.
	Description string
}

// ProductDetails is the payload for updating a product's descriptive fields.
type ProductDetails struct {
	// Title is the new title.
	Title string
	// Description is the new description.
	Description string
}

// SEOFields is the payload for updating a product's search metadata.
type SEOFields struct {
	// PageTitle is the search-result page title.
	PageTitle string
	// MetaDescription is the search-result snippet.
	MetaDescription string
}

// VariantInput is the payload for creating one variant on a product.
type VariantInput struct {
	// SKU is the variant's stock keeping unit.
	SKU string
	// Barcode is the variant's barcode, may be empty.
	Barcode string
	// Price is the selling price.
	Price decimal.Decimal
	// ComparePrice is the compare-at price, zero when absent.
	ComparePrice decimal.Decimal
}

// VariantUpdate is one variant-level change inside a product-scoped bulk
// mutation. Nil fields are left untouched.
type VariantUpdate struct {
	// VariantID is the storefront variant id.
	VariantID string
	// Price is the new selling price, nil to keep the current one.
	Price *decimal.Decimal
	// ComparePrice is the new compare-at price, nil to keep the current one.
	ComparePrice *decimal.Decimal
}

// QuantityChange sets the absolute available quantity of one inventory item
// at one location.
type QuantityChange struct {
	// InventoryItemID is the storefront inventory-item handle.
	InventoryItemID string
	// LocationID is the storefront location.
	LocationID string
	// Quantity is the absolute quantity to set.
	Quantity decimal.Decimal
}

// MediaInput is the payload for attaching one image to a product.
type MediaInput struct {
	// URL is the image source URL.
	URL string
	// Alt is the alternative text.
	Alt string
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// SourceCatalog is the capability port over the inventory source-of-record.
// Implementations live in internal/infrastructure/inventory; every method is
// network-bound and must be routed through the retry executor by callers.
type SourceCatalog interface {
	// ListProducts returns one page of source records.
	ListProducts(ctx context.Context, cursor string) (SourcePage, error)

	// GetProduct returns a single record by sku.
	GetProduct(ctx context.Context, sku string) (*SourceRecord, error)

	// GetOrder returns a source order by id.
	GetOrder(ctx context.Context, orderID string) (*SourceOrder, error)

	// ListOrderedImages returns the curated, ordered image URLs for a sku
	// from the auxiliary image feed. Returns ErrAuxiliaryUnavailable when the
	// feed is down; callers degrade the media sub-operation to "skipped"
	// rather than failing the record.
	ListOrderedImages(ctx context.Context, sku string) ([]string, error)
}

// DestinationCatalog is the capability port over the storefront platform.
// Batch methods chunk their input into vendor-size-bounded requests and
// report partial failures as data.
type DestinationCatalog interface {
	// ListProducts returns one page of destination records.
	ListProducts(ctx context.Context, cursor string) (DestinationPage, error)

	// CreateProductDraft creates a minimal product in draft state and
	// returns its id.
	CreateProductDraft(ctx context.Context, draft ProductDraft) (string, error)

	// UpdateProductDetails updates a product's descriptive fields.
	UpdateProductDetails(ctx context.Context, productID string, details ProductDetails) error

	// UpdateProductSEO updates a product's search metadata.
	UpdateProductSEO(ctx context.Context, productID string, seo SEOFields) error

	// CreateVariants bulk-creates variants on a product, chunked to the
	// vendor's batch limit. Created variants are returned with their
	// storefront ids; rejected inputs appear in Failures.
	CreateVariants(ctx context.Context, productID string, variants []VariantInput) (VariantCreateResult, error)

	// BulkUpdateVariants applies price-level changes to several variants of
	// one product in a single mutation.
	BulkUpdateVariants(ctx context.Context, productID string, updates []VariantUpdate) (BatchReport, error)

	// SetQuantities sets absolute quantities for a batch of inventory items.
	SetQuantities(ctx context.Context, changes []QuantityChange) (BatchReport, error)

	// ActivateProduct flips a draft product live. Called only after variants,
	// quantities and media are all in place.
	ActivateProduct(ctx context.Context, productID string) error

	// ListMedia returns a product's media assets in display order.
	ListMedia(ctx context.Context, productID string) ([]MediaAsset, error)

	// CreateMedia attaches one image to a product.
	CreateMedia(ctx context.Context, productID string, media MediaInput) (MediaAsset, error)

	// DeleteMedia removes one image from a product.
	DeleteMedia(ctx context.Context, productID, mediaID string) error

	// ReorderMedia sets the display order of a product's media assets.
	ReorderMedia(ctx context.Context, productID string, mediaIDs []string) error

	// CreateOrder creates an order on the storefront.
	CreateOrder(ctx context.Context, draft OrderDraft) (*DestinationOrder, error)

	// GetOrder re-reads an order, used for post-write verification.
	GetOrder(ctx context.Context, orderID string) (*DestinationOrder, error)
}
