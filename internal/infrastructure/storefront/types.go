package storefront

import (
	"github.com/shopspring/decimal"

	"github.com/shopbridge/backend/internal/domain/catalog"
)

// ---------------------------------------------------------------------------
// Wire Types
// ---------------------------------------------------------------------------

// errorEnvelope is the vendor's error body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// wireVariant is a product variant as the vendor serializes it.
type wireVariant struct {
	ID              string `json:"id"`
	SKU             string `json:"sku"`
	Barcode         string `json:"barcode,omitempty"`
	Price           string `json:"price"`
	CompareAtPrice  string `json:"compare_at_price,omitempty"`
	InventoryItemID string `json:"inventory_item_id"`
	Available       string `json:"available"`
}

// wireMedia is a media asset as the vendor serializes it.
type wireMedia struct {
	ID       string `json:"id"`
	URL      string `json:"src"`
	Alt      string `json:"alt,omitempty"`
	Position int    `json:"position"`
}

// wireSEO is a product's search metadata.
type wireSEO struct {
	PageTitle       string `json:"page_title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
}

// wireProduct is a product as the vendor serializes it.
type wireProduct struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"body_html,omitempty"`
	Status      string        `json:"status"`
	Variants    []wireVariant `json:"variants,omitempty"`
	Media       []wireMedia   `json:"media,omitempty"`
	SEO         wireSEO       `json:"seo"`
}

// productsPageResponse is one page of the product listing.
type productsPageResponse struct {
	Products   []wireProduct `json:"products"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// productResponse wraps a single product.
type productResponse struct {
	Product wireProduct `json:"product"`
}

// wireItemError is one rejected item inside a batch response.
type wireItemError struct {
	ItemID  string `json:"item_id"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// variantBatchCreateRequest bulk-creates variants on a product.
type variantBatchCreateRequest struct {
	Variants []variantCreateInput `json:"variants"`
}

type variantCreateInput struct {
	SKU            string `json:"sku"`
	Barcode        string `json:"barcode,omitempty"`
	Price          string `json:"price"`
	CompareAtPrice string `json:"compare_at_price,omitempty"`
}

// variantBatchCreateResponse reports created variants and rejected inputs.
type variantBatchCreateResponse struct {
	Created []wireVariant   `json:"created"`
	Errors  []wireItemError `json:"errors,omitempty"`
}

// variantBatchUpdateRequest applies price changes to variants of one product.
type variantBatchUpdateRequest struct {
	Updates []variantUpdateInput `json:"updates"`
}

type variantUpdateInput struct {
	VariantID      string  `json:"variant_id"`
	Price          *string `json:"price,omitempty"`
	CompareAtPrice *string `json:"compare_at_price,omitempty"`
}

// batchReportResponse reports a batch mutation outcome.
type batchReportResponse struct {
	Succeeded int             `json:"succeeded"`
	Errors    []wireItemError `json:"errors,omitempty"`
}

// inventorySetRequest sets absolute quantities.
type inventorySetRequest struct {
	Changes []inventoryChangeInput `json:"changes"`
}

type inventoryChangeInput struct {
	InventoryItemID string `json:"inventory_item_id"`
	LocationID      string `json:"location_id"`
	Available       string `json:"available"`
}

// mediaListResponse lists a product's media in display order.
type mediaListResponse struct {
	Media []wireMedia `json:"media"`
}

// mediaCreateRequest attaches one image.
type mediaCreateRequest struct {
	Media struct {
		URL string `json:"src"`
		Alt string `json:"alt,omitempty"`
	} `json:"media"`
}

// mediaReorderRequest sets the display order.
type mediaReorderRequest struct {
	MediaIDs []string `json:"media_ids"`
}

// wireOrderLine is one order line as the vendor serializes it.
type wireOrderLine struct {
	VariantID string `json:"variant_id"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price,omitempty"`
}

// wireOrder is an order as the vendor serializes it.
type wireOrder struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference,omitempty"`
	Email     string          `json:"email,omitempty"`
	Lines     []wireOrderLine `json:"line_items"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// orderResponse wraps a single order.
type orderResponse struct {
	Order wireOrder `json:"order"`
}

// orderCreateRequest creates an order.
type orderCreateRequest struct {
	Order struct {
		Reference string          `json:"reference,omitempty"`
		Email     string          `json:"email,omitempty"`
		Lines     []wireOrderLine `json:"line_items"`
	} `json:"order"`
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// parseDecimal parses a vendor decimal string, zero on empty or malformed
// input.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (v wireVariant) toDomain() catalog.DestinationVariant {
	return catalog.DestinationVariant{
		ID:              v.ID,
		SKU:             v.SKU,
		Barcode:         v.Barcode,
		Price:           parseDecimal(v.Price),
		ComparePrice:    parseDecimal(v.CompareAtPrice),
		InventoryItemID: v.InventoryItemID,
		Quantity:        parseDecimal(v.Available),
	}
}

func (m wireMedia) toDomain() catalog.MediaAsset {
	return catalog.MediaAsset{
		ID:       m.ID,
		URL:      m.URL,
		Alt:      m.Alt,
		Position: m.Position,
	}
}

func (p wireProduct) toDomain() catalog.DestinationRecord {
	rec := catalog.DestinationRecord{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      productStatus(p.Status),
		SEO: catalog.SEOFields{
			PageTitle:       p.SEO.PageTitle,
			MetaDescription: p.SEO.MetaDescription,
		},
	}
	for _, v := range p.Variants {
		rec.Variants = append(rec.Variants, v.toDomain())
	}
	for _, m := range p.Media {
		rec.Media = append(rec.Media, m.toDomain())
	}
	return rec
}

func productStatus(s string) catalog.ProductStatus {
	if s == "active" {
		return catalog.ProductStatusActive
	}
	return catalog.ProductStatusDraft
}

func toItemFailures(errs []wireItemError) []catalog.ItemFailure {
	if len(errs) == 0 {
		return nil
	}
	failures := make([]catalog.ItemFailure, 0, len(errs))
	for _, e := range errs {
		failures = append(failures, catalog.ItemFailure{
			ItemID:  e.ItemID,
			Code:    e.Code,
			Message: e.Message,
		})
	}
	return failures
}
