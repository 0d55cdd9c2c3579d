package catalog

import (
	"strings"
)

// MatchKey is the normalized identifier used to correlate a source record
// with a destination record. Normalization trims surrounding whitespace and
// case-folds, so " AB-1 " and "ab-1" resolve to the same key.
type MatchKey string

// String returns the string representation of MatchKey.
func (k MatchKey) String() string {
	return string(k)
}

// IsZero reports whether the key is empty.
func (k MatchKey) IsZero() bool {
	return k == ""
}

// NormalizeKey builds a MatchKey from a raw identifier.
func NormalizeKey(raw string) MatchKey {
	return MatchKey(strings.ToLower(strings.TrimSpace(raw)))
}

// KeyFor resolves the match key of a source record using the fallback chain
// sku, then barcode, then display name. The chain is a deliberate policy
// choice: a name can collide with an unrelated product's historical title, so
// sku and barcode always win when present.
func KeyFor(rec SourceRecord) MatchKey {
	if key := NormalizeKey(rec.SKU); !key.IsZero() {
		return key
	}
	if key := NormalizeKey(rec.Barcode); !key.IsZero() {
		return key
	}
	return NormalizeKey(rec.Name)
}

// KeysOf returns every match key a destination record should be indexed
// under: each variant's sku and barcode, plus the product title. Within one
// snapshot a key resolves to at most one record; the index applies
// last-write-wins when a vendor permits duplicates.
func KeysOf(rec DestinationRecord) []MatchKey {
	keys := make([]MatchKey, 0, len(rec.Variants)*2+1)
	seen := make(map[MatchKey]struct{}, len(rec.Variants)*2+1)
	add := func(raw string) {
		key := NormalizeKey(raw)
		if key.IsZero() {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, v := range rec.Variants {
		add(v.SKU)
		add(v.Barcode)
	}
	add(rec.Title)
	return keys
}
