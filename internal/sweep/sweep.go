package sweep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dev-tams/sweepkit/internal/storage"
)

// Policy selects how emptiness is decided for a folder. Exactly one policy is
// active per pass; they yield different idempotence guarantees and must not
// be mixed.
type Policy string

const (
	// PolicyPresence: a folder is non-empty if any direct object is not a
	// placeholder, regardless of age. No pruning happens.
	PolicyPresence Policy = "presence"
	// PolicyFreshness: direct objects older than the retention threshold are
	// pruned first; a folder is non-empty if any non-placeholder survives.
	PolicyFreshness Policy = "freshness"
)

// DefaultMaxDepth bounds the recursion on pathologically deep prefix trees.
const DefaultMaxDepth = 64

var ErrMaxDepth = errors.New("sweep: prefix tree exceeds max depth")

type Options struct {
	// Root is the prefix the pass starts under. Empty means the whole
	// container; non-empty roots must end with the delimiter.
	Root      string
	Delimiter string
	Policy    Policy
	// Threshold is the retention cutoff, computed once per pass. Objects last
	// modified strictly before it are pruned (freshness policy only).
	Threshold time.Time
	MaxDepth  int
	// DryRun reports deletions in the stats without performing them.
	DryRun  bool
	Verbose bool
}

type Stats struct {
	PrefixesVisited     int
	ObjectsPruned       int
	PlaceholdersDeleted int
	PlaceholdersKept    int
}

type pass struct {
	store storage.Store
	opts  Options
	stats Stats
}

// RunPass drives one full sweep from the root: every top-level sub-prefix is
// walked bottom-up, and non-prefix entries at the root are skipped. Partial
// progress on error stands; the next pass reconciles whatever remains.
func RunPass(ctx context.Context, store storage.Store, opts Options) (Stats, error) {
	if opts.Delimiter == "" {
		opts.Delimiter = storage.Delimiter
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Policy == "" {
		opts.Policy = PolicyPresence
	}
	if opts.Policy == PolicyFreshness && opts.Threshold.IsZero() {
		return Stats{}, fmt.Errorf("sweep: freshness policy requires a retention threshold")
	}
	if opts.Root != "" && !strings.HasSuffix(opts.Root, opts.Delimiter) {
		return Stats{}, fmt.Errorf("sweep: root %q must end with the delimiter", opts.Root)
	}

	p := &pass{store: store, opts: opts}

	listing, err := store.ListHierarchical(ctx, opts.Root, opts.Delimiter)
	if err != nil {
		return p.stats, fmt.Errorf("list root %q: %w", opts.Root, err)
	}
	p.stats.PrefixesVisited++

	if opts.Verbose {
		fmt.Printf(
			"sweep: root=%q policy=%s subfolders=%d direct=%d\n",
			opts.Root, opts.Policy, len(listing.SubPrefixes), len(listing.Objects),
		)
	}

	// direct objects at the root are not the walker's to manage; skip them
	// and keep going
	for _, sub := range listing.SubPrefixes {
		if _, err := p.walk(ctx, sub, 1); err != nil {
			return p.stats, err
		}
	}

	return p.stats, nil
}
