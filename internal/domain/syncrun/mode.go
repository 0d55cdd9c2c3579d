// Package syncrun defines the domain model of one catalog synchronization
// run: the sync mode, the run statistics and their invariant, and the
// progress-event surface observed by callers while a run executes.
package syncrun

// Mode selects which sub-operations a synchronization run performs. It is a
// closed set consumed by the reconciliation engine; it never changes the
// orchestrator's concurrency behavior.
type Mode string

const (
	// ModeFull syncs details, variants/stock, media and seo, creating
	// missing products.
	ModeFull Mode = "FULL"
	// ModeDetails syncs only descriptive fields of existing products.
	ModeDetails Mode = "DETAILS"
	// ModeStock syncs only variants and quantities of existing products.
	ModeStock Mode = "STOCK"
	// ModeMedia syncs only images of existing products.
	ModeMedia Mode = "MEDIA"
	// ModeSEO syncs only search metadata of existing products.
	ModeSEO Mode = "SEO"
	// ModeMissing only creates products absent from the storefront and
	// leaves existing ones untouched.
	ModeMissing Mode = "MISSING"
)

// IsValid returns true if the mode is valid.
func (m Mode) IsValid() bool {
	switch m {
	case ModeFull, ModeDetails, ModeStock, ModeMedia, ModeSEO, ModeMissing:
		return true
	default:
		return false
	}
}

// String returns the string representation of Mode.
func (m Mode) String() string {
	return string(m)
}

// AllowsCreate reports whether the mode may create products on the
// storefront.
func (m Mode) AllowsCreate() bool {
	return m == ModeFull || m == ModeMissing
}

// UpdatesExisting reports whether the mode touches products that already
// exist on the storefront.
func (m Mode) UpdatesExisting() bool {
	return m != ModeMissing
}

// IncludesDetails reports whether the details sub-operation runs.
func (m Mode) IncludesDetails() bool {
	return m == ModeFull || m == ModeDetails
}

// IncludesStock reports whether the variant/stock sub-operation runs.
func (m Mode) IncludesStock() bool {
	return m == ModeFull || m == ModeStock
}

// IncludesMedia reports whether the media sub-operation runs.
func (m Mode) IncludesMedia() bool {
	return m == ModeFull || m == ModeMedia
}

// IncludesSEO reports whether the seo sub-operation runs.
func (m Mode) IncludesSEO() bool {
	return m == ModeFull || m == ModeSEO
}
