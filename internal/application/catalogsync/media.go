package catalogsync

import (
	"context"
	"fmt"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
)

// desiredImages resolves the ordered image URLs for a record. Record-embedded
// URLs take precedence; otherwise the curated ordered-image feed is
// consulted. An unavailable feed degrades the media sub-operation to
// "skipped" instead of failing the record.
func (r *Reconciler) desiredImages(ctx context.Context, rec catalog.SourceRecord) ([]string, subOpResult) {
	res := subOpResult{name: "media"}
	if len(rec.ImageURLs) > 0 {
		return dedupeURLs(rec.ImageURLs), res
	}
	urls, err := retry.DoValue(ctx, r.exec, "source.list_ordered_images", func(ctx context.Context) ([]string, error) {
		return r.source.ListOrderedImages(ctx, rec.SKU)
	})
	if err != nil {
		if catalog.IsDegraded(err) {
			res.skipped = true
			res.reason = "auxiliary source unavailable"
			return nil, res
		}
		res.err = fmt.Errorf("ordered-image feed: %w", err)
		return nil, res
	}
	return dedupeURLs(urls), res
}

// syncMedia reconciles an existing product's images against the desired
// ordered list, diffing by URL. Assets absent from the desired set are
// deleted, missing ones created, and, only when anything changed, the asset
// list is re-fetched and reordered. Reordering runs last because new asset
// ids are only known, and vendor-side processing only settled, after
// creation; a short settle delay precedes the reorder.
func (r *Reconciler) syncMedia(ctx context.Context, rec catalog.SourceRecord, dest catalog.DestinationRecord) subOpResult {
	desired, res := r.desiredImages(ctx, rec)
	if res.err != nil || res.skipped {
		return res
	}

	current := make(map[string]catalog.MediaAsset, len(dest.Media))
	for _, asset := range dest.Media {
		current[asset.URL] = asset
	}
	wanted := make(map[string]struct{}, len(desired))
	for _, url := range desired {
		wanted[url] = struct{}{}
	}

	mutated := false
	for _, asset := range dest.Media {
		if _, keep := wanted[asset.URL]; keep {
			continue
		}
		if err := r.exec.Do(ctx, "storefront.delete_media", func(ctx context.Context) error {
			return r.dest.DeleteMedia(ctx, dest.ID, asset.ID)
		}); err != nil {
			res.err = fmt.Errorf("delete asset %s: %w", asset.ID, err)
			return res
		}
		mutated = true
	}

	for _, url := range desired {
		if _, exists := current[url]; exists {
			continue
		}
		if _, err := retry.DoValue(ctx, r.exec, "storefront.create_media", func(ctx context.Context) (catalog.MediaAsset, error) {
			return r.dest.CreateMedia(ctx, dest.ID, catalog.MediaInput{URL: url, Alt: rec.Name})
		}); err != nil {
			res.err = fmt.Errorf("create asset %s: %w", url, err)
			return res
		}
		mutated = true
	}

	// Order already matches if nothing was created or deleted; a reorder with
	// stale ids would also be wrong, so it is gated on mutation.
	if !mutated {
		return res
	}

	if err := r.sleep(ctx, r.cfg.MediaSettleDelay); err != nil {
		res.err = err
		return res
	}
	if err := r.reorderMedia(ctx, dest.ID, desired); err != nil {
		res.err = err
	}
	return res
}

// attachMedia populates media on a freshly created product. The product has
// no existing assets, so this is creation plus a final ordering pass.
func (r *Reconciler) attachMedia(ctx context.Context, productID string, rec catalog.SourceRecord) ([]catalog.MediaAsset, subOpResult) {
	desired, res := r.desiredImages(ctx, rec)
	if res.err != nil || res.skipped || len(desired) == 0 {
		return nil, res
	}

	for _, url := range desired {
		if _, err := retry.DoValue(ctx, r.exec, "storefront.create_media", func(ctx context.Context) (catalog.MediaAsset, error) {
			return r.dest.CreateMedia(ctx, productID, catalog.MediaInput{URL: url, Alt: rec.Name})
		}); err != nil {
			res.err = fmt.Errorf("create asset %s: %w", url, err)
			return nil, res
		}
	}

	if err := r.sleep(ctx, r.cfg.MediaSettleDelay); err != nil {
		res.err = err
		return nil, res
	}
	if err := r.reorderMedia(ctx, productID, desired); err != nil {
		res.err = err
		return nil, res
	}

	assets, err := retry.DoValue(ctx, r.exec, "storefront.list_media", func(ctx context.Context) ([]catalog.MediaAsset, error) {
		return r.dest.ListMedia(ctx, productID)
	})
	if err != nil {
		res.err = err
		return nil, res
	}
	return assets, res
}

// reorderMedia re-fetches the asset list and issues a reorder matching the
// desired URL order. Assets the vendor reports beyond the desired set keep
// their relative position at the tail.
func (r *Reconciler) reorderMedia(ctx context.Context, productID string, desired []string) error {
	assets, err := retry.DoValue(ctx, r.exec, "storefront.list_media", func(ctx context.Context) ([]catalog.MediaAsset, error) {
		return r.dest.ListMedia(ctx, productID)
	})
	if err != nil {
		return fmt.Errorf("refresh asset list: %w", err)
	}

	byURL := make(map[string]string, len(assets))
	for _, asset := range assets {
		byURL[asset.URL] = asset.ID
	}
	order := make([]string, 0, len(assets))
	placed := make(map[string]struct{}, len(assets))
	for _, url := range desired {
		if id, ok := byURL[url]; ok {
			order = append(order, id)
			placed[id] = struct{}{}
		}
	}
	for _, asset := range assets {
		if _, ok := placed[asset.ID]; !ok {
			order = append(order, asset.ID)
		}
	}
	if len(order) == 0 {
		return nil
	}

	if err := r.exec.Do(ctx, "storefront.reorder_media", func(ctx context.Context) error {
		return r.dest.ReorderMedia(ctx, productID, order)
	}); err != nil {
		return fmt.Errorf("reorder assets: %w", err)
	}
	return nil
}

func dedupeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}
