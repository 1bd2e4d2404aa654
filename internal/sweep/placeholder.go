package sweep

import (
	"context"
	"fmt"
	"strings"
)

// Resolution is the outcome of resolving a folder's placeholder object.
type Resolution int

const (
	// PlaceholderAbsent: no marker existed under either naming convention.
	// Nothing to do, not an error.
	PlaceholderAbsent Resolution = iota
	// PlaceholderDeleted: a zero-length marker was found and removed.
	PlaceholderDeleted
	// PlaceholderKept: an object with payload lives under the folder's own
	// name; it is not a placeholder and stays untouched.
	PlaceholderKept
)

// resolvePlaceholder is entered only once the folder evaluated empty. It
// tries the two marker conventions in order: the prefix as-is (trailing
// delimiter), then the prefix with the delimiter stripped. At most two
// lookups happen per folder; not-found is an expected branch.
func (p *pass) resolvePlaceholder(ctx context.Context, prefix string) (Resolution, error) {
	unslashed := strings.TrimSuffix(prefix, p.opts.Delimiter)

	for _, key := range []string{prefix, unslashed} {
		if key == "" {
			continue
		}
		props, err := p.store.GetProperties(ctx, key)
		if err != nil {
			return PlaceholderAbsent, fmt.Errorf("resolve placeholder %q: %w", key, err)
		}
		if !props.Exists {
			continue
		}
		if props.Size > 0 {
			return PlaceholderKept, nil
		}
		if !p.opts.DryRun {
			if err := p.store.DeleteIfExists(ctx, key); err != nil {
				return PlaceholderAbsent, fmt.Errorf("delete placeholder %q: %w", key, err)
			}
		}
		return PlaceholderDeleted, nil
	}

	return PlaceholderAbsent, nil
}
