package catalog

import (
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Source-of-Record Model
// ---------------------------------------------------------------------------

// WarehouseStock is the quantity of one variant held at one warehouse.
type WarehouseStock struct {
	// WarehouseCode identifies the warehouse in the source system.
	WarehouseCode string
	// Quantity is the stock level at that warehouse.
	Quantity decimal.Decimal
}

// SourceVariant is a sellable variant of a source record.
type SourceVariant struct {
	// SKU is the variant's stock keeping unit.
	SKU string
	// Barcode is the variant's barcode (EAN/UPC), may be empty.
	Barcode string
	// Price is the selling price.
	Price decimal.Decimal
	// ComparePrice is the original/compare-at price, zero when absent.
	ComparePrice decimal.Decimal
	// Stock holds per-warehouse quantities.
	Stock []WarehouseStock
}

// TotalQuantity returns the variant's quantity summed over all warehouses.
func (v SourceVariant) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, s := range v.Stock {
		total = total.Add(s.Quantity)
	}
	return total
}

// SourceRecord is a product as the inventory source-of-record sees it.
type SourceRecord struct {
	// SKU is the record-level stock keeping unit.
	SKU string
	// Barcode is the record-level barcode, may be empty.
	Barcode string
	// Name is the display name. A blank name makes the record unsyncable.
	Name string
	// Description is the long-form description.
	Description string
	// Variants are the sellable variants. A simple product has one variant.
	Variants []SourceVariant
	// ImageURLs is the desired ordered list of product images. May be empty
	// when the ordered-image feed must be consulted instead.
	ImageURLs []string
}

// ---------------------------------------------------------------------------
// Storefront Model
// ---------------------------------------------------------------------------

// ProductStatus is the lifecycle status of a storefront product.
type ProductStatus string

const (
	// ProductStatusDraft marks a product that is not yet visible to buyers.
	ProductStatusDraft ProductStatus = "DRAFT"
	// ProductStatusActive marks a live, purchasable product.
	ProductStatusActive ProductStatus = "ACTIVE"
)

// IsValid returns true if the status is valid.
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProductStatus.
func (s ProductStatus) String() string {
	return string(s)
}

// MediaAsset is one image attached to a storefront product.
type MediaAsset struct {
	// ID is the asset id on the storefront.
	ID string
	// URL is the asset's source URL; assets are diffed by URL.
	URL string
	// Alt is the alternative text.
	Alt string
	// Position is the 1-based display position.
	Position int
}

// DestinationVariant is a variant of a storefront product.
type DestinationVariant struct {
	// ID is the variant id on the storefront.
	ID string
	// SKU is the variant's stock keeping unit.
	SKU string
	// Barcode is the variant's barcode, may be empty.
	Barcode string
	// Price is the current selling price.
	Price decimal.Decimal
	// ComparePrice is the current compare-at price, zero when absent.
	ComparePrice decimal.Decimal
	// InventoryItemID is the storefront's inventory-item handle used by
	// quantity mutations.
	InventoryItemID string
	// Quantity is the current available quantity.
	Quantity decimal.Decimal
}

// DestinationRecord is a product as the storefront sees it.
type DestinationRecord struct {
	// ID is the product id on the storefront.
	ID string
	// Title is the product title.
	Title string
	// Description is the product body/description.
	Description string
	// Status is the lifecycle status.
	Status ProductStatus
	// Variants are the product's variants.
	Variants []DestinationVariant
	// Media are the product's image assets in display order.
	Media []MediaAsset
	// SEO is the product's current search metadata.
	SEO SEOFields
}

// VariantBySKU returns the variant whose normalized SKU matches key.
func (r DestinationRecord) VariantBySKU(key MatchKey) (DestinationVariant, bool) {
	for _, v := range r.Variants {
		if NormalizeKey(v.SKU) == key {
			return v, true
		}
	}
	return DestinationVariant{}, false
}
