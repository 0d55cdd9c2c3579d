package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/domain/syncrun"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

// ErrInvalidReconcilerConfig indicates an unusable reconciler configuration.
var ErrInvalidReconcilerConfig = errors.New("catalogsync: invalid reconciler configuration")

// Action is the resolved action for one source record.
type Action int

const (
	// ActionSkip leaves the record untouched.
	ActionSkip Action = iota
	// ActionCreate creates the product on the storefront.
	ActionCreate
	// ActionUpdate updates the existing storefront product.
	ActionUpdate
)

// String returns the string representation of Action.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	default:
		return "skip"
	}
}

// ReconcilerConfig holds reconciliation tuning parameters.
type ReconcilerConfig struct {
	// LocationID is the storefront location quantities are set at.
	LocationID string
	// VariantChunkSize bounds variant-creation batches. Smaller chunks trade
	// latency for blast-radius containment when one item poisons a batch.
	VariantChunkSize int
	// QuantityEpsilon is the numeric tolerance below which a quantity or
	// price difference counts as "no change".
	QuantityEpsilon decimal.Decimal
	// MediaSettleDelay is how long to wait after media mutations before
	// issuing a reorder, giving the vendor time to settle new asset ids.
	MediaSettleDelay time.Duration
}

// DefaultReconcilerConfig returns reconciler defaults.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		LocationID:       "primary",
		VariantChunkSize: 50,
		QuantityEpsilon:  decimal.NewFromFloat(0.001),
		MediaSettleDelay: 500 * time.Millisecond,
	}
}

// Validate validates the configuration.
func (c ReconcilerConfig) Validate() error {
	if c.LocationID == "" {
		return ErrInvalidReconcilerConfig
	}
	if c.VariantChunkSize <= 0 {
		return ErrInvalidReconcilerConfig
	}
	if c.QuantityEpsilon.IsNegative() {
		return ErrInvalidReconcilerConfig
	}
	if c.MediaSettleDelay < 0 {
		return ErrInvalidReconcilerConfig
	}
	return nil
}

// Reconciler decides and executes the per-record action. All vendor calls go
// through the retry executor; partial batch failures surface as record-level
// failures without rolling back already-applied sub-operations, so repeated
// runs converge on the remaining diff.
type Reconciler struct {
	source catalog.SourceCatalog
	dest   catalog.DestinationCatalog
	index  *Index
	exec   *retry.Executor
	cfg    ReconcilerConfig
	logger *zap.Logger

	// sleep is a test seam for the media settle delay.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewReconciler creates a Reconciler bound to one run's index.
func NewReconciler(
	source catalog.SourceCatalog,
	dest catalog.DestinationCatalog,
	index *Index,
	exec *retry.Executor,
	cfg ReconcilerConfig,
	logger *zap.Logger,
) (*Reconciler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		source: source,
		dest:   dest,
		index:  index,
		exec:   exec,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}, nil
}

// Resolve computes the action for a source record under the given mode.
func (r *Reconciler) Resolve(rec catalog.SourceRecord, mode syncrun.Mode) (Action, catalog.DestinationRecord) {
	key := catalog.KeyFor(rec)
	if key.IsZero() {
		return ActionSkip, catalog.DestinationRecord{}
	}
	dest, ok := r.index.Lookup(key)
	if ok {
		if mode.UpdatesExisting() {
			return ActionUpdate, dest
		}
		return ActionSkip, dest
	}
	if mode.AllowsCreate() {
		return ActionCreate, catalog.DestinationRecord{}
	}
	return ActionSkip, catalog.DestinationRecord{}
}

// Process runs the full per-record algorithm and returns the entity outcome.
// Run-fatal errors (auth failure, vendor unreachable) are returned separately
// so the orchestrator can abort; every other failure is folded into the
// outcome.
func (r *Reconciler) Process(ctx context.Context, rec catalog.SourceRecord, mode syncrun.Mode) (syncrun.Outcome, error) {
	key := catalog.KeyFor(rec)
	if strings.TrimSpace(rec.Name) == "" {
		return syncrun.Outcome{Key: key.String(), Status: syncrun.OutcomeSkipped, Detail: "blank display name"}, nil
	}

	action, dest := r.Resolve(rec, mode)
	switch action {
	case ActionCreate:
		return r.create(ctx, key, rec)
	case ActionUpdate:
		return r.update(ctx, key, rec, dest, mode)
	default:
		detail := "no action for mode " + mode.String()
		if _, exists := r.index.Lookup(key); exists {
			detail = "already present on storefront"
		}
		return syncrun.Outcome{Key: key.String(), Status: syncrun.OutcomeSkipped, Detail: detail}, nil
	}
}

// ---------------------------------------------------------------------------
// Create (two phases)
// ---------------------------------------------------------------------------

// create builds the product in two phases: first a minimal draft, then
// variants, quantities, media and search metadata, and only once all of those
// are in place the activation call that flips it live. A crash mid-create
// therefore leaves a recoverable draft, never a live product with missing
// variants.
func (r *Reconciler) create(ctx context.Context, key catalog.MatchKey, rec catalog.SourceRecord) (syncrun.Outcome, error) {
	productID, err := retry.DoValue(ctx, r.exec, "storefront.create_draft", func(ctx context.Context) (string, error) {
		return r.dest.CreateProductDraft(ctx, catalog.ProductDraft{
			Title:       rec.Name,
			Description: rec.Description,
		})
	})
	if err != nil {
		return r.failure(key, "create draft: "+err.Error(), err)
	}

	created, err := r.createVariants(ctx, productID, rec.Variants)
	if err != nil {
		return r.failure(key, fmt.Sprintf("create variants on %s: %v", productID, err), err)
	}
	if len(created.Failures) > 0 {
		detail := fmt.Sprintf("create variants on %s: %d of %d rejected (%s)",
			productID, len(created.Failures), len(rec.Variants), firstFailure(created.Failures))
		return syncrun.Outcome{Key: key.String(), Status: syncrun.OutcomeFailed, Detail: detail}, nil
	}

	changes := r.initialQuantities(rec, created.Created)
	if len(changes) > 0 {
		report, err := retry.DoValue(ctx, r.exec, "storefront.set_quantities", func(ctx context.Context) (catalog.BatchReport, error) {
			return r.dest.SetQuantities(ctx, changes)
		})
		if err != nil {
			return r.failure(key, fmt.Sprintf("set quantities on %s: %v", productID, err), err)
		}
		if !report.AllSucceeded() {
			detail := fmt.Sprintf("set quantities on %s: %d failed (%s)",
				productID, len(report.Failures), firstFailure(report.Failures))
			return syncrun.Outcome{Key: key.String(), Status: syncrun.OutcomeFailed, Detail: detail}, nil
		}
	}

	var mediaNote string
	media, res := r.attachMedia(ctx, productID, rec)
	if res.err != nil {
		return r.failure(key, fmt.Sprintf("attach media on %s: %v", productID, res.err), res.err)
	}
	if res.skipped {
		mediaNote = "; media skipped: " + res.reason
	}

	// Search metadata is set before activation so a freshly created product
	// needs no follow-up write on the next run.
	seo := seoFor(rec)
	if err := r.exec.Do(ctx, "storefront.update_seo", func(ctx context.Context) error {
		return r.dest.UpdateProductSEO(ctx, productID, seo)
	}); err != nil {
		return r.failure(key, fmt.Sprintf("set seo on %s: %v", productID, err), err)
	}

	if err := r.exec.Do(ctx, "storefront.activate", func(ctx context.Context) error {
		return r.dest.ActivateProduct(ctx, productID)
	}); err != nil {
		return r.failure(key, fmt.Sprintf("activate %s: %v", productID, err), err)
	}

	record := catalog.DestinationRecord{
		ID:          productID,
		Title:       rec.Name,
		Description: rec.Description,
		Status:      catalog.ProductStatusActive,
		Variants:    r.withQuantities(created.Created, rec),
		Media:       media,
		SEO:         seo,
	}
	r.index.Insert(record)

	return syncrun.Outcome{
		Key:    key.String(),
		Status: syncrun.OutcomeCreated,
		Detail: "created as " + productID + mediaNote,
	}, nil
}

// createVariants bulk-creates all variants of a new product in chunks.
func (r *Reconciler) createVariants(ctx context.Context, productID string, variants []catalog.SourceVariant) (catalog.VariantCreateResult, error) {
	inputs := make([]catalog.VariantInput, 0, len(variants))
	for _, v := range variants {
		inputs = append(inputs, catalog.VariantInput{
			SKU:          v.SKU,
			Barcode:      v.Barcode,
			Price:        v.Price,
			ComparePrice: v.ComparePrice,
		})
	}

	var result catalog.VariantCreateResult
	for start := 0; start < len(inputs); start += r.cfg.VariantChunkSize {
		end := start + r.cfg.VariantChunkSize
		if end > len(inputs) {
			end = len(inputs)
		}
		chunk := inputs[start:end]
		part, err := retry.DoValue(ctx, r.exec, "storefront.create_variants", func(ctx context.Context) (catalog.VariantCreateResult, error) {
			return r.dest.CreateVariants(ctx, productID, chunk)
		})
		if err != nil {
			return result, err
		}
		result.Merge(part)
	}
	return result, nil
}

// initialQuantities computes the quantity-set batch for freshly created
// variants: the per-warehouse sum of the matching source variant.
func (r *Reconciler) initialQuantities(rec catalog.SourceRecord, created []catalog.DestinationVariant) []catalog.QuantityChange {
	targets := make(map[catalog.MatchKey]decimal.Decimal, len(rec.Variants))
	for _, v := range rec.Variants {
		targets[catalog.NormalizeKey(v.SKU)] = v.TotalQuantity()
	}
	changes := make([]catalog.QuantityChange, 0, len(created))
	for _, v := range created {
		target, ok := targets[catalog.NormalizeKey(v.SKU)]
		if !ok || target.IsZero() {
			continue
		}
		changes = append(changes, catalog.QuantityChange{
			InventoryItemID: v.InventoryItemID,
			LocationID:      r.cfg.LocationID,
			Quantity:        target,
		})
	}
	return changes
}

// withQuantities stamps the source target quantities onto created variants
// for the index snapshot, so a retried task sees current values.
func (r *Reconciler) withQuantities(created []catalog.DestinationVariant, rec catalog.SourceRecord) []catalog.DestinationVariant {
	targets := make(map[catalog.MatchKey]decimal.Decimal, len(rec.Variants))
	for _, v := range rec.Variants {
		targets[catalog.NormalizeKey(v.SKU)] = v.TotalQuantity()
	}
	out := make([]catalog.DestinationVariant, len(created))
	copy(out, created)
	for i := range out {
		if target, ok := targets[catalog.NormalizeKey(out[i].SKU)]; ok {
			out[i].Quantity = target
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Update (independent sub-operations)
// ---------------------------------------------------------------------------

// subOpResult is the outcome of one update sub-operation.
type subOpResult struct {
	name    string
	skipped bool
	reason  string
	err     error
}

// update runs the mode-selected sub-operations in the fixed order details,
// variants/stock, media, seo. A failure in one sub-operation is recorded but
// never blocks the ones after it.
func (r *Reconciler) update(ctx context.Context, key catalog.MatchKey, rec catalog.SourceRecord, dest catalog.DestinationRecord, mode syncrun.Mode) (syncrun.Outcome, error) {
	results := make([]subOpResult, 0, 4)

	if mode.IncludesDetails() {
		results = append(results, r.syncDetails(ctx, rec, dest))
	}
	if mode.IncludesStock() {
		results = append(results, r.syncVariants(ctx, rec, dest))
	}
	if mode.IncludesMedia() {
		results = append(results, r.syncMedia(ctx, rec, dest))
	}
	if mode.IncludesSEO() {
		results = append(results, r.syncSEO(ctx, rec, dest))
	}

	var notes []string
	var failed bool
	var fatal error
	for _, res := range results {
		switch {
		case res.err != nil:
			failed = true
			notes = append(notes, fmt.Sprintf("%s: %v", res.name, res.err))
			if catalog.IsRunFatal(res.err) {
				fatal = res.err
			}
		case res.skipped:
			notes = append(notes, fmt.Sprintf("%s: skipped (%s)", res.name, res.reason))
		}
	}
	if fatal != nil {
		return syncrun.Outcome{Key: key.String(), Status: syncrun.OutcomeFailed, Detail: strings.Join(notes, "; ")}, fatal
	}
	if failed {
		return syncrun.Outcome{Key: key.String(), Status: syncrun.OutcomeFailed, Detail: strings.Join(notes, "; ")}, nil
	}
	return syncrun.Outcome{Key: key.String(), Status: syncrun.OutcomeUpdated, Detail: strings.Join(notes, "; ")}, nil
}

// syncDetails updates title and description when they differ. Equal values
// produce no write, keeping unchanged re-runs call-free.
func (r *Reconciler) syncDetails(ctx context.Context, rec catalog.SourceRecord, dest catalog.DestinationRecord) subOpResult {
	res := subOpResult{name: "details"}
	if dest.Title == rec.Name && dest.Description == rec.Description {
		return res
	}
	res.err = r.exec.Do(ctx, "storefront.update_details", func(ctx context.Context) error {
		return r.dest.UpdateProductDetails(ctx, dest.ID, catalog.ProductDetails{
			Title:       rec.Name,
			Description: rec.Description,
		})
	})
	return res
}

// syncSEO updates search metadata when it differs from the current values.
func (r *Reconciler) syncSEO(ctx context.Context, rec catalog.SourceRecord, dest catalog.DestinationRecord) subOpResult {
	res := subOpResult{name: "seo"}
	want := seoFor(rec)
	if dest.SEO == want {
		return res
	}
	res.err = r.exec.Do(ctx, "storefront.update_seo", func(ctx context.Context) error {
		return r.dest.UpdateProductSEO(ctx, dest.ID, want)
	})
	return res
}

func (r *Reconciler) failure(key catalog.MatchKey, detail string, err error) (syncrun.Outcome, error) {
	outcome := syncrun.Outcome{Key: key.String(), Status: syncrun.OutcomeFailed, Detail: detail}
	if catalog.IsRunFatal(err) {
		return outcome, err
	}
	return outcome, nil
}

func firstFailure(failures []catalog.ItemFailure) string {
	if len(failures) == 0 {
		return ""
	}
	f := failures[0]
	if f.Code != "" {
		return f.ItemID + ": " + f.Code + " " + f.Message
	}
	return f.ItemID + ": " + f.Message
}

// seoFor derives a record's search metadata. The meta description carries the
// vendor's 160-byte limit.
func seoFor(rec catalog.SourceRecord) catalog.SEOFields {
	return catalog.SEOFields{
		PageTitle:       rec.Name,
		MetaDescription: truncate(rec.Description, 160),
	}
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
