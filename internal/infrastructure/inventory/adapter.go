// Package inventory implements the source catalog port over the inventory
// source-of-record's REST API. The auxiliary image feed is a separate,
// less reliable endpoint; its failures surface as ErrAuxiliaryUnavailable so
// callers can degrade instead of failing the record.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopbridge/backend/internal/domain/catalog"
)

// maxResponseSize is the maximum allowed response size from the inventory
// API (10MB).
const maxResponseSize = 10 * 1024 * 1024

// ---------------------------------------------------------------------------
// Wire Types
// ---------------------------------------------------------------------------

type wireStock struct {
	Warehouse string `json:"warehouse"`
	Quantity  string `json:"quantity"`
}

type wireVariant struct {
	SKU            string      `json:"sku"`
	Barcode        string      `json:"barcode,omitempty"`
	Price          string      `json:"price"`
	CompareAtPrice string      `json:"compare_at_price,omitempty"`
	Stock          []wireStock `json:"stock,omitempty"`
}

type wireProduct struct {
	SKU         string        `json:"sku"`
	Barcode     string        `json:"barcode,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Variants    []wireVariant `json:"variants,omitempty"`
	ImageURLs   []string      `json:"image_urls,omitempty"`
}

type productsPageResponse struct {
	Products   []wireProduct `json:"products"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type productResponse struct {
	Product wireProduct `json:"product"`
}

type wireOrderLine struct {
	SKU       string `json:"sku,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type wireOrder struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Lines         []wireOrderLine `json:"lines"`
	CreatedAt     string          `json:"created_at,omitempty"`
}

type orderResponse struct {
	Order wireOrder `json:"order"`
}

type imageFeedResponse struct {
	Images []string `json:"images"`
}

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

func (p wireProduct) toDomain() catalog.SourceRecord {
	rec := catalog.SourceRecord{
		SKU:         p.SKU,
		Barcode:     p.Barcode,
		Name:        p.Name,
		Description: p.Description,
		ImageURLs:   p.ImageURLs,
	}
	for _, v := range p.Variants {
		variant := catalog.SourceVariant{
			SKU:          v.SKU,
			Barcode:      v.Barcode,
			Price:        parseDecimal(v.Price),
			ComparePrice: parseDecimal(v.CompareAtPrice),
		}
		for _, s := range v.Stock {
			variant.Stock = append(variant.Stock, catalog.WarehouseStock{
				WarehouseCode: s.Warehouse,
				Quantity:      parseDecimal(s.Quantity),
			})
		}
		rec.Variants = append(rec.Variants, variant)
	}
	return rec
}

func (o wireOrder) toDomain() *catalog.SourceOrder {
	order := &catalog.SourceOrder{
		ID:            o.ID,
		Number:        o.Number,
		CustomerEmail: o.CustomerEmail,
	}
	if o.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, o.CreatedAt); err == nil {
			order.CreatedAt = t
		}
	}
	for _, line := range o.Lines {
		order.Lines = append(order.Lines, catalog.SourceOrderLine{
			SKU:       line.SKU,
			Barcode:   line.Barcode,
			Name:      line.Name,
			Quantity:  parseDecimal(line.Quantity),
			UnitPrice: parseDecimal(line.UnitPrice),
		})
	}
	return order
}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// Adapter implements catalog.SourceCatalog against the inventory REST API.
type Adapter struct {
	config     *Config
	httpClient *http.Client
}

// NewAdapter creates an inventory adapter with the given configuration.
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// ListProducts returns one page of source records.
func (a *Adapter) ListProducts(ctx context.Context, cursor string) (catalog.SourcePage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(a.config.PageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	body, err := a.doRequest(ctx, a.config.BaseURL, "/products?"+query.Encode())
	if err != nil {
		return catalog.SourcePage{}, err
	}

	var resp productsPageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return catalog.SourcePage{}, fmt.Errorf("%w: parse products page: %v", catalog.ErrInvalid, err)
	}

	page := catalog.SourcePage{NextCursor: resp.NextCursor}
	for _, p := range resp.Products {
		page.Records = append(page.Records, p.toDomain())
	}
	return page, nil
}

// GetProduct returns a single record by sku.
func (a *Adapter) GetProduct(ctx context.Context, sku string) (*catalog.SourceRecord, error) {
	body, err := a.doRequest(ctx, a.config.BaseURL, "/products/"+url.PathEscape(sku))
	if err != nil {
		return nil, err
	}

	var resp productResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse product: %v", catalog.ErrInvalid, err)
	}
	rec := resp.Product.toDomain()
	return &rec, nil
}

// GetOrder returns a source order by id.
func (a *Adapter) GetOrder(ctx context.Context, orderID string) (*catalog.SourceOrder, error) {
	body, err := a.doRequest(ctx, a.config.BaseURL, "/orders/"+url.PathEscape(orderID))
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse order: %v", catalog.ErrInvalid, err)
	}
	return resp.Order.toDomain(), nil
}

// ListOrderedImages returns the curated, ordered image URLs for a sku from
// the auxiliary feed. All feed failures fold into ErrAuxiliaryUnavailable:
// the feed is best-effort and must never fail a record.
func (a *Adapter) ListOrderedImages(ctx context.Context, sku string) ([]string, error) {
	if a.config.ImageFeedURL == "" {
		return nil, fmt.Errorf("%w: image feed not configured", catalog.ErrAuxiliaryUnavailable)
	}

	body, err := a.doRequest(ctx, a.config.ImageFeedURL, "/images/"+url.PathEscape(sku))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", catalog.ErrAuxiliaryUnavailable, err)
	}

	var resp imageFeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse image feed: %v", catalog.ErrAuxiliaryUnavailable, err)
	}
	return resp.Images, nil
}

// doRequest performs one GET against the given API root and classifies
// failures into the catalog error taxonomy.
func (a *Adapter) doRequest(ctx context.Context, base, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, fmt.Errorf("inventory: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", catalog.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", catalog.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", catalog.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP 429", catalog.ErrThrottled)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", catalog.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: HTTP 404", catalog.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", catalog.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d", catalog.ErrInvalid, resp.StatusCode)
	}
	return body, nil
}

// Ensure Adapter implements the source catalog port
var _ catalog.SourceCatalog = (*Adapter)(nil)
