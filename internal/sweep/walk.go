package sweep

import (
	"context"
	"fmt"
	"strings"

	"github.com/dev-tams/sweepkit/internal/storage/object"
)

// walk visits one virtual folder and reports whether it still holds real
// content. Children are resolved before the folder's own fate (post-order),
// but the emptiness decision uses only the direct-listing snapshot taken
// before recursion: a sub-prefix entry never counts as content, only direct
// non-placeholder objects do.
func (p *pass) walk(ctx context.Context, prefix string, depth int) (bool, error) {
	if depth > p.opts.MaxDepth {
		return false, fmt.Errorf("%w: %q", ErrMaxDepth, prefix)
	}

	listing, err := p.store.ListHierarchical(ctx, prefix, p.opts.Delimiter)
	if err != nil {
		return false, fmt.Errorf("list %q: %w", prefix, err)
	}
	p.stats.PrefixesVisited++

	for _, sub := range listing.SubPrefixes {
		if _, err := p.walk(ctx, sub, depth+1); err != nil {
			return false, err
		}
	}

	objects := listing.Objects
	if p.opts.Policy == PolicyFreshness {
		objects, err = p.prune(ctx, prefix, listing)
		if err != nil {
			return false, err
		}
	}

	if p.hasRealContent(prefix, objects) {
		if p.opts.Verbose {
			fmt.Printf("sweep: keep %s (has content)\n", prefix)
		}
		return true, nil
	}

	res, err := p.resolvePlaceholder(ctx, prefix)
	if err != nil {
		return false, err
	}
	switch res {
	case PlaceholderDeleted:
		p.stats.PlaceholdersDeleted++
		if p.opts.Verbose {
			fmt.Printf("sweep: removed empty folder %s\n", prefix)
		}
	case PlaceholderKept:
		// a non-zero object lives under the folder's own name; hands off
		p.stats.PlaceholdersKept++
		return true, nil
	}
	return false, nil
}

// hasRealContent decides emptiness from the direct objects. Only existence is
// needed, so the loop stops accumulating once a match is found.
func (p *pass) hasRealContent(prefix string, objects []object.Info) bool {
	found := false
	for _, obj := range objects {
		if found {
			break
		}
		if !p.isPlaceholder(prefix, obj) {
			found = true
		}
	}
	return found
}

// isPlaceholder requires both conditions: zero length AND a name matching the
// owning prefix under either naming convention. Size alone or name alone is
// not enough.
func (p *pass) isPlaceholder(prefix string, obj object.Info) bool {
	if obj.Size != 0 {
		return false
	}
	return obj.Key == prefix || obj.Key == strings.TrimSuffix(prefix, p.opts.Delimiter)
}
