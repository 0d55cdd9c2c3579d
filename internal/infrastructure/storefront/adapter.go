// Package storefront implements the destination catalog port over the
// storefront platform's REST API. HTTP status codes and vendor error codes
// are folded into the catalog error taxonomy so callers never see transport
// details; batch mutations are chunked to the vendor's limit and report
// partial failures as data.
package storefront

import (
	"bytes"
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

	"github.com/shopbridge/backend/internal/domain/catalog"
)

// maxResponseSize is the maximum allowed response size from the storefront
// API (10MB).
const maxResponseSize = 10 * 1024 * 1024

// Adapter implements catalog.DestinationCatalog against the storefront REST
// API.
type Adapter struct {
	config     *Config
	httpClient *http.Client
}

// NewAdapter creates a storefront adapter with the given configuration.
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

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// ListProducts returns one page of destination records.
func (a *Adapter) ListProducts(ctx context.Context, cursor string) (catalog.DestinationPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(a.config.PageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	body, err := a.doRequest(ctx, http.MethodGet, "/products?"+query.Encode(), nil)
	if err != nil {
		return catalog.DestinationPage{}, err
	}

	var resp productsPageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return catalog.DestinationPage{}, fmt.Errorf("%w: parse products page: %v", catalog.ErrInvalid, err)
	}

	page := catalog.DestinationPage{NextCursor: resp.NextCursor}
	for _, p := range resp.Products {
		page.Records = append(page.Records, p.toDomain())
	}
	return page, nil
}

// CreateProductDraft creates a minimal product in draft state.
func (a *Adapter) CreateProductDraft(ctx context.Context, draft catalog.ProductDraft) (string, error) {
	payload := map[string]any{
		"product": map[string]any{
			"title":     draft.Title,
			"body_html": draft.Description,
			"status":    "draft",
		},
	}

	body, err := a.doRequest(ctx, http.MethodPost, "/products", payload)
	if err != nil {
		return "", err
	}

	var resp productResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: parse created product: %v", catalog.ErrInvalid, err)
	}
	if resp.Product.ID == "" {
		return "", fmt.Errorf("%w: created product has no id", catalog.ErrInvalid)
	}
	return resp.Product.ID, nil
}

// UpdateProductDetails updates a product's descriptive fields.
func (a *Adapter) UpdateProductDetails(ctx context.Context, productID string, details catalog.ProductDetails) error {
	payload := map[string]any{
		"product": map[string]any{
			"title":     details.Title,
			"body_html": details.Description,
		},
	}
	_, err := a.doRequest(ctx, http.MethodPut, "/products/"+url.PathEscape(productID), payload)
	return err
}

// UpdateProductSEO updates a product's search metadata.
func (a *Adapter) UpdateProductSEO(ctx context.Context, productID string, seo catalog.SEOFields) error {
	payload := map[string]any{
		"seo": wireSEO{
			PageTitle:       seo.PageTitle,
			MetaDescription: seo.MetaDescription,
		},
	}
	_, err := a.doRequest(ctx, http.MethodPut, "/products/"+url.PathEscape(productID)+"/seo", payload)
	return err
}

// ActivateProduct flips a draft product live.
func (a *Adapter) ActivateProduct(ctx context.Context, productID string) error {
	_, err := a.doRequest(ctx, http.MethodPost, "/products/"+url.PathEscape(productID)+"/activate", nil)
	return err
}

// ---------------------------------------------------------------------------
// Variant and Inventory Operations
// ---------------------------------------------------------------------------

// CreateVariants bulk-creates variants on a product, chunked to the vendor's
// batch limit. Rejected inputs are reported as failures, not errors.
func (a *Adapter) CreateVariants(ctx context.Context, productID string, variants []catalog.VariantInput) (catalog.VariantCreateResult, error) {
	var result catalog.VariantCreateResult
	for _, chunk := range chunkSlice(variants, a.config.MaxBatchSize) {
		req := variantBatchCreateRequest{}
		for _, v := range chunk {
			in := variantCreateInput{
				SKU:     v.SKU,
				Barcode: v.Barcode,
				Price:   v.Price.StringFixed(2),
			}
			if v.ComparePrice.IsPositive() {
				in.CompareAtPrice = v.ComparePrice.StringFixed(2)
			}
			req.Variants = append(req.Variants, in)
		}

		body, err := a.doRequest(ctx, http.MethodPost, "/products/"+url.PathEscape(productID)+"/variants/batch", req)
		if err != nil {
			return result, err
		}

		var resp variantBatchCreateResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return result, fmt.Errorf("%w: parse variant batch response: %v", catalog.ErrInvalid, err)
		}

		chunkResult := catalog.VariantCreateResult{Failures: toItemFailures(resp.Errors)}
		for _, v := range resp.Created {
			chunkResult.Created = append(chunkResult.Created, v.toDomain())
		}
		result.Merge(chunkResult)
	}
	return result, nil
}

// BulkUpdateVariants applies price-level changes to several variants of one
// product.
func (a *Adapter) BulkUpdateVariants(ctx context.Context, productID string, updates []catalog.VariantUpdate) (catalog.BatchReport, error) {
	var report catalog.BatchReport
	for _, chunk := range chunkSlice(updates, a.config.MaxBatchSize) {
		req := variantBatchUpdateRequest{}
		for _, u := range chunk {
			in := variantUpdateInput{VariantID: u.VariantID}
			if u.Price != nil {
				s := u.Price.StringFixed(2)
				in.Price = &s
			}
			if u.ComparePrice != nil {
				s := u.ComparePrice.StringFixed(2)
				in.CompareAtPrice = &s
			}
			req.Updates = append(req.Updates, in)
		}

		body, err := a.doRequest(ctx, http.MethodPut, "/products/"+url.PathEscape(productID)+"/variants/batch", req)
		if err != nil {
			return report, err
		}

		var resp batchReportResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return report, fmt.Errorf("%w: parse variant update response: %v", catalog.ErrInvalid, err)
		}
		report.Merge(catalog.BatchReport{Succeeded: resp.Succeeded, Failures: toItemFailures(resp.Errors)})
	}
	return report, nil
}

// SetQuantities sets absolute quantities for a batch of inventory items.
func (a *Adapter) SetQuantities(ctx context.Context, changes []catalog.QuantityChange) (catalog.BatchReport, error) {
	var report catalog.BatchReport
	for _, chunk := range chunkSlice(changes, a.config.MaxBatchSize) {
		req := inventorySetRequest{}
		for _, c := range chunk {
			locationID := c.LocationID
			if locationID == "" {
				locationID = a.config.LocationID
			}
			req.Changes = append(req.Changes, inventoryChangeInput{
				InventoryItemID: c.InventoryItemID,
				LocationID:      locationID,
				Available:       c.Quantity.String(),
			})
		}

		body, err := a.doRequest(ctx, http.MethodPost, "/inventory/set", req)
		if err != nil {
			return report, err
		}

		var resp batchReportResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return report, fmt.Errorf("%w: parse inventory response: %v", catalog.ErrInvalid, err)
		}
		report.Merge(catalog.BatchReport{Succeeded: resp.Succeeded, Failures: toItemFailures(resp.Errors)})
	}
	return report, nil
}

// ---------------------------------------------------------------------------
// Media Operations
// ---------------------------------------------------------------------------

// ListMedia returns a product's media assets in display order.
func (a *Adapter) ListMedia(ctx context.Context, productID string) ([]catalog.MediaAsset, error) {
	body, err := a.doRequest(ctx, http.MethodGet, "/products/"+url.PathEscape(productID)+"/media", nil)
	if err != nil {
		return nil, err
	}

	var resp mediaListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse media list: %v", catalog.ErrInvalid, err)
	}

	assets := make([]catalog.MediaAsset, 0, len(resp.Media))
	for _, m := range resp.Media {
		assets = append(assets, m.toDomain())
	}
	return assets, nil
}

// CreateMedia attaches one image to a product.
func (a *Adapter) CreateMedia(ctx context.Context, productID string, media catalog.MediaInput) (catalog.MediaAsset, error) {
	var req mediaCreateRequest
	req.Media.URL = media.URL
	req.Media.Alt = media.Alt

	body, err := a.doRequest(ctx, http.MethodPost, "/products/"+url.PathEscape(productID)+"/media", req)
	if err != nil {
		return catalog.MediaAsset{}, err
	}

	var resp struct {
		Media wireMedia `json:"media"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return catalog.MediaAsset{}, fmt.Errorf("%w: parse created media: %v", catalog.ErrInvalid, err)
	}
	return resp.Media.toDomain(), nil
}

// DeleteMedia removes one image from a product.
func (a *Adapter) DeleteMedia(ctx context.Context, productID, mediaID string) error {
	path := "/products/" + url.PathEscape(productID) + "/media/" + url.PathEscape(mediaID)
	_, err := a.doRequest(ctx, http.MethodDelete, path, nil)
	return err
}

// ReorderMedia sets the display order of a product's media assets.
func (a *Adapter) ReorderMedia(ctx context.Context, productID string, mediaIDs []string) error {
	req := mediaReorderRequest{MediaIDs: mediaIDs}
	_, err := a.doRequest(ctx, http.MethodPut, "/products/"+url.PathEscape(productID)+"/media/order", req)
	return err
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// CreateOrder creates an order on the storefront.
func (a *Adapter) CreateOrder(ctx context.Context, draft catalog.OrderDraft) (*catalog.DestinationOrder, error) {
	var req orderCreateRequest
	req.Order.Reference = draft.Reference
	req.Order.Email = draft.CustomerEmail
	for _, line := range draft.Lines {
		req.Order.Lines = append(req.Order.Lines, wireOrderLine{
			VariantID: line.VariantID,
			Quantity:  line.Quantity.String(),
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}

	body, err := a.doRequest(ctx, http.MethodPost, "/orders", req)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse created order: %v", catalog.ErrInvalid, err)
	}
	return orderToDomain(resp.Order), nil
}

// GetOrder re-reads an order.
func (a *Adapter) GetOrder(ctx context.Context, orderID string) (*catalog.DestinationOrder, error) {
	body, err := a.doRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse order: %v", catalog.ErrInvalid, err)
	}
	return orderToDomain(resp.Order), nil
}

func orderToDomain(o wireOrder) *catalog.DestinationOrder {
	order := &catalog.DestinationOrder{
		ID:        o.ID,
		Reference: o.Reference,
	}
	if o.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, o.CreatedAt); err == nil {
			order.CreatedAt = t
		}
	}
	for _, line := range o.Lines {
		order.Lines = append(order.Lines, catalog.DestinationOrderLine{
			VariantID: line.VariantID,
			Quantity:  parseDecimal(line.Quantity),
		})
	}
	return order
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs one HTTP request against the storefront API and
// classifies failures into the catalog error taxonomy.
func (a *Adapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("storefront: encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(a.config.BaseURL, "/")+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("storefront: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Access-Token", a.config.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", catalog.ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return nil, classifyStatus(resp.StatusCode, body)
	}
	return body, nil
}

// classifyTransportError maps client-side failures. Timeouts are retryable;
// a host that cannot be reached at all ends the run.
func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", catalog.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", catalog.ErrUnreachable, err)
}

// classifyStatus maps a non-2xx response. The vendor's error code takes
// precedence over the bare HTTP status when present.
func classifyStatus(status int, body []byte) error {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)
	code := env.Error.Code
	message := env.Error.Message
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusTooManyRequests || code == "THROTTLED":
		return fmt.Errorf("%w: %s", catalog.ErrThrottled, message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", catalog.ErrAuthFailed, message)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, message)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", catalog.ErrUnavailable, status, message)
	default:
		if code != "" {
			return fmt.Errorf("%w: %s: %s", catalog.ErrInvalid, code, message)
		}
		return fmt.Errorf("%w: HTTP %d: %s", catalog.ErrInvalid, status, message)
	}
}

// chunkSlice splits items into chunks of at most size elements.
func chunkSlice[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Ensure Adapter implements the destination catalog port
var _ catalog.DestinationCatalog = (*Adapter)(nil)
