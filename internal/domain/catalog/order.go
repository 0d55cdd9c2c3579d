package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// SourceOrderLine is one line item of a source order.
type SourceOrderLine struct {
	// SKU identifies the ordered variant in the source system.
	SKU string
	// Barcode is the variant barcode, may be empty.
	Barcode string
	// Name is the product name as recorded on the order.
	Name string
	// Quantity is the ordered quantity.
	Quantity decimal.Decimal
	// UnitPrice is the price per unit.
	UnitPrice decimal.Decimal
}

// SourceOrder is an order held by the inventory source-of-record.
type SourceOrder struct {
	// ID is the order id in the source system.
	ID string
	// Number is the human-facing order number.
	Number string
	// CustomerEmail is the buyer's email.
	CustomerEmail string
	// Lines are the order's line items.
	Lines []SourceOrderLine
	// CreatedAt is when the order was placed.
	CreatedAt time.Time
}

// OrderDraftLine is one line of an order to be created on the storefront.
type OrderDraftLine struct {
	// VariantID is the storefront variant id the line resolves to.
	VariantID string
	// Quantity is the ordered quantity.
	Quantity decimal.Decimal
	// UnitPrice is the price per unit.
	UnitPrice decimal.Decimal
}

// OrderDraft is the payload for creating an order on the storefront.
type OrderDraft struct {
	// Reference is the source order number, carried for traceability.
	Reference string
	// CustomerEmail is the buyer's email.
	CustomerEmail string
	// Lines are the resolved line items.
	Lines []OrderDraftLine
}

// TotalQuantity returns the draft's quantity summed over all lines.
func (d OrderDraft) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.Quantity)
	}
	return total
}

// DestinationOrderLine is one line of an order as the storefront reports it.
type DestinationOrderLine struct {
	// VariantID is the storefront variant id.
	VariantID string
	// Quantity is the ordered quantity.
	Quantity decimal.Decimal
}

// DestinationOrder is an order as the storefront reports it.
type DestinationOrder struct {
	// ID is the order id on the storefront.
	ID string
	// Reference is the carried source order number.
	Reference string
	// Lines are the order's line items.
	Lines []DestinationOrderLine
	// CreatedAt is when the order was created on the storefront.
	CreatedAt time.Time
}

// TotalQuantity returns the order's quantity summed over all lines.
func (o DestinationOrder) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Quantity)
	}
	return total
}
