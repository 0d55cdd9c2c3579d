package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected MatchKey
	}{
		{"lowercases", "AB-1", "ab-1"},
		{"trims whitespace", "  ab-1  ", "ab-1"},
		{"trims and lowercases", " AB-1 ", "ab-1"},
		{"empty stays empty", "", ""},
		{"whitespace only becomes empty", "   ", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeKey(tc.raw))
		})
	}
}

func TestMatchKey_IsZero(t *testing.T) {
	assert.True(t, MatchKey("").IsZero())
	assert.False(t, MatchKey("ab-1").IsZero())
}

func TestKeyFor(t *testing.T) {
	t.Run("sku wins over barcode and name", func(t *testing.T) {
		rec := SourceRecord{SKU: "SKU-1", Barcode: "4006381333931", Name: "Widget"}
		assert.Equal(t, MatchKey("sku-1"), KeyFor(rec))
	})

	t.Run("barcode wins over name when sku is blank", func(t *testing.T) {
		rec := SourceRecord{SKU: "  ", Barcode: "4006381333931", Name: "Widget"}
		assert.Equal(t, MatchKey("4006381333931"), KeyFor(rec))
	})

	t.Run("falls back to name", func(t *testing.T) {
		rec := SourceRecord{Name: "Widget Deluxe"}
		assert.Equal(t, MatchKey("widget deluxe"), KeyFor(rec))
	})

	t.Run("fully blank record yields zero key", func(t *testing.T) {
		assert.True(t, KeyFor(SourceRecord{}).IsZero())
	})
}

func TestKeysOf(t *testing.T) {
	t.Run("collects variant skus, barcodes and title", func(t *testing.T) {
		rec := DestinationRecord{
			Title: "Widget",
			Variants: []DestinationVariant{
				{SKU: "SKU-1", Barcode: "111"},
				{SKU: "SKU-2"},
			},
		}
		keys := KeysOf(rec)
		assert.Equal(t, []MatchKey{"sku-1", "111", "sku-2", "widget"}, keys)
	})

	t.Run("deduplicates keys", func(t *testing.T) {
		rec := DestinationRecord{
			Title: "sku-1",
			Variants: []DestinationVariant{
				{SKU: "SKU-1", Barcode: "SKU-1"},
			},
		}
		assert.Equal(t, []MatchKey{"sku-1"}, KeysOf(rec))
	})

	t.Run("skips blank identifiers", func(t *testing.T) {
		rec := DestinationRecord{
			Variants: []DestinationVariant{{SKU: "", Barcode: "  "}},
		}
		assert.Empty(t, KeysOf(rec))
	})
}
