package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbridge/backend/internal/domain/catalog"
)

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := NewConfig(server.URL, "test-token")
	cfg.MaxBatchSize = 2
	adapter, err := NewAdapter(cfg)
	require.NoError(t, err)
	return adapter
}

func TestConfig_Validate(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		cfg := &Config{BaseURL: "https://shop.example", AccessToken: "tok"}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "primary", cfg.LocationID)
		assert.Equal(t, 100, cfg.PageSize)
		assert.Equal(t, 50, cfg.MaxBatchSize)
		assert.Equal(t, 30, cfg.TimeoutSeconds)
	})

	t.Run("rejects missing base url", func(t *testing.T) {
		cfg := &Config{AccessToken: "tok"}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigMissingBaseURL)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		cfg := &Config{BaseURL: "https://shop.example"}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigMissingToken)
	})

	t.Run("rejects oversized batches", func(t *testing.T) {
		cfg := NewConfig("https://shop.example", "tok")
		cfg.MaxBatchSize = 500
		assert.ErrorIs(t, cfg.Validate(), ErrConfigBadBatchSize)
	})
}

func TestAdapter_ListProducts(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Access-Token"))
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		fmt.Fprint(w, `{
			"products": [{
				"id": "p1",
				"title": "Widget",
				"body_html": "A fine widget",
				"status": "active",
				"variants": [{
					"id": "v1",
					"sku": "sku-1",
					"barcode": "111",
					"price": "19.99",
					"compare_at_price": "24.99",
					"inventory_item_id": "inv-1",
					"available": "8"
				}],
				"media": [{"id": "m1", "src": "https://img/1.jpg", "position": 1}],
				"seo": {"page_title": "Widget", "meta_description": "A fine widget"}
			}],
			"next_cursor": "def"
		}`)
	}))

	page, err := adapter.ListProducts(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "def", page.NextCursor)
	require.Len(t, page.Records, 1)

	rec := page.Records[0]
	assert.Equal(t, "p1", rec.ID)
	assert.Equal(t, catalog.ProductStatusActive, rec.Status)
	assert.Equal(t, "Widget", rec.SEO.PageTitle)
	require.Len(t, rec.Variants, 1)
	assert.True(t, rec.Variants[0].Price.Equal(decimal.NewFromFloat(19.99)))
	assert.True(t, rec.Variants[0].Quantity.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, "inv-1", rec.Variants[0].InventoryItemID)
	require.Len(t, rec.Media, 1)
	assert.Equal(t, "https://img/1.jpg", rec.Media[0].URL)
}

func TestAdapter_CreateProductDraft(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/products", r.URL.Path)

		var req map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "draft", req["product"]["status"])
		assert.Equal(t, "Widget", req["product"]["title"])

		fmt.Fprint(w, `{"product": {"id": "p9", "title": "Widget", "status": "draft"}}`)
	}))

	id, err := adapter.CreateProductDraft(context.Background(), catalog.ProductDraft{
		Title:       "Widget",
		Description: "A fine widget",
	})
	require.NoError(t, err)
	assert.Equal(t, "p9", id)
}

func TestAdapter_ErrorClassification(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"429 is throttled", http.StatusTooManyRequests, `{}`, catalog.ErrThrottled},
		{"vendor throttle code wins over status", http.StatusBadRequest,
			`{"error": {"code": "THROTTLED", "message": "slow down"}}`, catalog.ErrThrottled},
		{"401 ends the run", http.StatusUnauthorized, `{}`, catalog.ErrAuthFailed},
		{"403 ends the run", http.StatusForbidden, `{}`, catalog.ErrAuthFailed},
		{"404 is terminal per entity", http.StatusNotFound, `{}`, catalog.ErrNotFound},
		{"500 is transient", http.StatusInternalServerError, `{}`, catalog.ErrUnavailable},
		{"503 is transient", http.StatusServiceUnavailable, `{}`, catalog.ErrUnavailable},
		{"422 is invalid", http.StatusUnprocessableEntity,
			`{"error": {"code": "INVALID_TITLE", "message": "title too long"}}`, catalog.ErrInvalid},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))

			_, err := adapter.ListProducts(context.Background(), "")
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestAdapter_UnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	cfg := NewConfig(server.URL, "tok")
	adapter, err := NewAdapter(cfg)
	require.NoError(t, err)

	_, err = adapter.ListProducts(context.Background(), "")
	assert.ErrorIs(t, err, catalog.ErrUnreachable)
}

func TestAdapter_CreateVariantsChunked(t *testing.T) {
	var batchSizes []int
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/p1/variants/batch", r.URL.Path)

		var req variantBatchCreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Variants))

		resp := variantBatchCreateResponse{}
		for _, v := range req.Variants {
			if v.SKU == "sku-bad" {
				resp.Errors = append(resp.Errors, wireItemError{ItemID: v.SKU, Code: "DUPLICATE", Message: "sku exists"})
				continue
			}
			resp.Created = append(resp.Created, wireVariant{
				ID:              "var-" + v.SKU,
				SKU:             v.SKU,
				Price:           v.Price,
				InventoryItemID: "inv-" + v.SKU,
			})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))

	inputs := []catalog.VariantInput{
		{SKU: "sku-1", Price: decimal.NewFromInt(10)},
		{SKU: "sku-2", Price: decimal.NewFromInt(11)},
		{SKU: "sku-bad", Price: decimal.NewFromInt(12)},
		{SKU: "sku-4", Price: decimal.NewFromInt(13)},
		{SKU: "sku-5", Price: decimal.NewFromInt(14)},
	}

	result, err := adapter.CreateVariants(context.Background(), "p1", inputs)
	require.NoError(t, err)

	// MaxBatchSize is 2: five inputs arrive as 2+2+1.
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
	assert.Len(t, result.Created, 4)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "sku-bad", result.Failures[0].ItemID)
	assert.Equal(t, "DUPLICATE", result.Failures[0].Code)
}

func TestAdapter_SetQuantitiesFillsDefaultLocation(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inventory/set", r.URL.Path)

		var req inventorySetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Changes, 2)
		assert.Equal(t, "primary", req.Changes[0].LocationID)
		assert.Equal(t, "warehouse-2", req.Changes[1].LocationID)
		assert.Equal(t, "8", req.Changes[0].Available)

		fmt.Fprint(w, `{"succeeded": 2}`)
	}))

	report, err := adapter.SetQuantities(context.Background(), []catalog.QuantityChange{
		{InventoryItemID: "inv-1", Quantity: decimal.NewFromInt(8)},
		{InventoryItemID: "inv-2", LocationID: "warehouse-2", Quantity: decimal.NewFromInt(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.True(t, report.AllSucceeded())
}

func TestAdapter_BulkUpdateVariants(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)

		var req variantBatchUpdateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Updates, 1)
		require.NotNil(t, req.Updates[0].Price)
		assert.Equal(t, "12.50", *req.Updates[0].Price)
		assert.Nil(t, req.Updates[0].CompareAtPrice)

		fmt.Fprint(w, `{"succeeded": 1}`)
	}))

	price := decimal.NewFromFloat(12.5)
	report, err := adapter.BulkUpdateVariants(context.Background(), "p1", []catalog.VariantUpdate{
		{VariantID: "v1", Price: &price},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
}

func TestAdapter_MediaRoundTrip(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/products/p1/media":
			var req mediaCreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			fmt.Fprintf(w, `{"media": {"id": "m1", "src": %q, "position": 1}}`, req.Media.URL)
		case r.Method == http.MethodGet && r.URL.Path == "/products/p1/media":
			fmt.Fprint(w, `{"media": [{"id": "m1", "src": "https://img/1.jpg", "position": 1}]}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/products/p1/media/m1":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPut && r.URL.Path == "/products/p1/media/order":
			var req mediaReorderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"m1"}, req.MediaIDs)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	ctx := context.Background()

	asset, err := adapter.CreateMedia(ctx, "p1", catalog.MediaInput{URL: "https://img/1.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "m1", asset.ID)

	assets, err := adapter.ListMedia(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "https://img/1.jpg", assets[0].URL)

	require.NoError(t, adapter.ReorderMedia(ctx, "p1", []string{"m1"}))
	require.NoError(t, adapter.DeleteMedia(ctx, "p1", "m1"))
}

func TestAdapter_OrderRoundTrip(t *testing.T) {
	created := time.Now().UTC().Truncate(time.Second)
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			var req orderCreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "SO-1042", req.Order.Reference)
			require.Len(t, req.Order.Lines, 1)
			assert.Equal(t, "2", req.Order.Lines[0].Quantity)

			fmt.Fprintf(w, `{"order": {"id": "o1", "reference": "SO-1042",
				"line_items": [{"variant_id": "v1", "quantity": "2"}],
				"created_at": %q}}`, created.Format(time.RFC3339))
		case r.Method == http.MethodGet && r.URL.Path == "/orders/o1":
			fmt.Fprint(w, `{"order": {"id": "o1", "reference": "SO-1042",
				"line_items": [{"variant_id": "v1", "quantity": "2"}]}}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	order, err := adapter.CreateOrder(context.Background(), catalog.OrderDraft{
		Reference: "SO-1042",
		Lines: []catalog.OrderDraftLine{
			{VariantID: "v1", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
	assert.Equal(t, created, order.CreatedAt.UTC())
	assert.True(t, order.TotalQuantity().Equal(decimal.NewFromInt(2)))

	reread, err := adapter.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", reread.ID)
	require.Len(t, reread.Lines, 1)
	assert.Equal(t, "v1", reread.Lines[0].VariantID)
}

func TestChunkSlice(t *testing.T) {
	assert.Nil(t, chunkSlice([]int{}, 2))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunkSlice([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1, 2, 3}}, chunkSlice([]int{1, 2, 3}, 10))
}
