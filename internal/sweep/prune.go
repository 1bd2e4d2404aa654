package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/dev-tams/sweepkit/internal/storage/object"
)

// prune deletes direct non-placeholder objects last modified strictly before
// the threshold and returns the survivors. An object sitting exactly on the
// threshold survives. Placeholders are exempt regardless of their own age;
// the resolver owns their fate. That exemption includes placeholders of
// subfolders: a child stored under the unslashed convention lists as a direct
// object of its parent, and only the child's own resolver may remove it.
func (p *pass) prune(ctx context.Context, prefix string, listing object.Listing) ([]object.Info, error) {
	subs := make(map[string]struct{}, len(listing.SubPrefixes))
	for _, sub := range listing.SubPrefixes {
		subs[sub] = struct{}{}
	}

	remaining := make([]object.Info, 0, len(listing.Objects))
	for _, obj := range listing.Objects {
		if p.isPlaceholder(prefix, obj) || p.isChildPlaceholder(subs, obj) {
			remaining = append(remaining, obj)
			continue
		}
		if !obj.ModTime.Before(p.opts.Threshold) {
			remaining = append(remaining, obj)
			continue
		}

		if p.opts.Verbose {
			fmt.Printf(
				"prune: delete key=%s modtime=%s\n",
				obj.Key, obj.ModTime.UTC().Format(time.RFC3339),
			)
		}
		if !p.opts.DryRun {
			// best-effort: the key vanishing between list and delete is fine
			if err := p.store.DeleteIfExists(ctx, obj.Key); err != nil {
				return nil, fmt.Errorf("prune %s: %w", obj.Key, err)
			}
		}
		p.stats.ObjectsPruned++
	}
	return remaining, nil
}

// isChildPlaceholder reports whether a zero-length object is the unslashed
// marker of one of the folder's listed subfolders.
func (p *pass) isChildPlaceholder(subs map[string]struct{}, obj object.Info) bool {
	if obj.Size != 0 {
		return false
	}
	_, ok := subs[obj.Key+p.opts.Delimiter]
	return ok
}
