package sweep

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dev-tams/sweepkit/internal/storage/object"
)

// fakeStore keeps a flat key space in memory and derives hierarchical
// listings from it the way S3-style stores do: keys grouped one level deep by
// delimiter, with a key equal to the listed prefix showing up as a direct
// object.
type fakeStore struct {
	objects map[string]object.Info
	deleted []string

	// non-empty values make the matching operation fail with errStoreDown
	listFailPrefix string
	deleteFailKey  string
}

var errStoreDown = errors.New("store unavailable")

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]object.Info)}
}

func (f *fakeStore) put(key string, size int64, mod time.Time) {
	f.objects[key] = object.Info{Key: key, Size: size, ModTime: mod}
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) ListHierarchical(_ context.Context, prefix, delim string) (object.Listing, error) {
	if f.listFailPrefix != "" && prefix == f.listFailPrefix {
		return object.Listing{}, errStoreDown
	}

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out object.Listing
	seen := map[string]bool{}
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if rest == "" {
			out.Objects = append(out.Objects, f.objects[k])
			continue
		}
		if i := strings.Index(rest, delim); i >= 0 {
			sub := prefix + rest[:i+len(delim)]
			if !seen[sub] {
				seen[sub] = true
				out.SubPrefixes = append(out.SubPrefixes, sub)
			}
			continue
		}
		out.Objects = append(out.Objects, f.objects[k])
	}
	return out, nil
}

func (f *fakeStore) GetProperties(_ context.Context, key string) (object.Properties, error) {
	obj, ok := f.objects[key]
	if !ok {
		return object.Properties{}, nil
	}
	return object.Properties{Exists: true, Size: obj.Size}, nil
}

func (f *fakeStore) DeleteIfExists(_ context.Context, key string) error {
	if f.deleteFailKey != "" && key == f.deleteFailKey {
		return errStoreDown
	}
	if _, ok := f.objects[key]; ok {
		delete(f.objects, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeStore) has(key string) bool {
	_, ok := f.objects[key]
	return ok
}

func daysAgo(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -n)
}

func TestPassDeletesNestedEmptyFoldersBottomUp(t *testing.T) {
	st := newFakeStore()
	st.put("a/", 0, daysAgo(200))
	st.put("a/b/", 0, daysAgo(200))

	stats, err := RunPass(context.Background(), st, Options{Policy: PolicyPresence})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if stats.PlaceholdersDeleted != 2 {
		t.Fatalf("expected 2 placeholders deleted, got %d", stats.PlaceholdersDeleted)
	}
	if st.has("a/") || st.has("a/b/") {
		t.Fatalf("expected both placeholders gone, remaining: %v", st.objects)
	}
}

func TestPassIsIdempotent(t *testing.T) {
	st := newFakeStore()
	st.put("a/", 0, daysAgo(200))
	st.put("a/b/", 0, daysAgo(200))
	st.put("c/keep.txt", 500, daysAgo(10))

	opts := Options{Policy: PolicyFreshness, Threshold: daysAgo(90)}

	if _, err := RunPass(context.Background(), st, opts); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	stats, err := RunPass(context.Background(), st, opts)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if stats.ObjectsPruned != 0 || stats.PlaceholdersDeleted != 0 {
		t.Fatalf("second pass should be a fixed point, got %+v", stats)
	}
	if !st.has("c/keep.txt") {
		t.Fatalf("expected fresh object to survive both passes")
	}
}

func TestNonEmptyFolderIsPreserved(t *testing.T) {
	st := newFakeStore()
	st.put("b/", 0, daysAgo(400))
	st.put("b/file.txt", 500, daysAgo(10))

	stats, err := RunPass(context.Background(), st, Options{
		Policy:    PolicyFreshness,
		Threshold: daysAgo(90),
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if !st.has("b/file.txt") {
		t.Fatalf("expected fresh object to be kept")
	}
	if !st.has("b/") {
		t.Fatalf("expected placeholder of non-empty folder to be kept")
	}
	if stats.ObjectsPruned != 0 || stats.PlaceholdersDeleted != 0 {
		t.Fatalf("expected no deletions, got %+v", stats)
	}
}

func TestUnslashedPlaceholderFallback(t *testing.T) {
	st := newFakeStore()
	st.put("f", 0, daysAgo(300))
	st.put("f/old.txt", 100, daysAgo(120))

	stats, err := RunPass(context.Background(), st, Options{
		Policy:    PolicyFreshness,
		Threshold: daysAgo(90),
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if st.has("f/old.txt") {
		t.Fatalf("expected stale object to be pruned")
	}
	if st.has("f") {
		t.Fatalf("expected unslashed placeholder to be deleted via fallback")
	}
	if stats.ObjectsPruned != 1 || stats.PlaceholdersDeleted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestChildPlaceholderIsExemptFromPruning(t *testing.T) {
	st := newFakeStore()
	st.put("p/f", 0, daysAgo(400))
	st.put("p/f/fresh.txt", 100, daysAgo(1))

	stats, err := RunPass(context.Background(), st, Options{
		Policy:    PolicyFreshness,
		Threshold: daysAgo(90),
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	// p/f is the unslashed marker of p/f/, not stale payload of p/; only the
	// walk of p/f/ itself may remove it
	if !st.has("p/f") {
		t.Fatalf("subfolder marker must not be age-pruned by the parent")
	}
	if !st.has("p/f/fresh.txt") {
		t.Fatalf("fresh object must survive, remaining: %v", st.objects)
	}
	if stats.ObjectsPruned != 0 || stats.PlaceholdersDeleted != 0 {
		t.Fatalf("expected no deletions, got %+v", stats)
	}
}

func TestPassAbortsOnListError(t *testing.T) {
	st := newFakeStore()
	st.put("a/", 0, daysAgo(200))
	st.put("b/", 0, daysAgo(200))
	st.listFailPrefix = "b/"

	_, err := RunPass(context.Background(), st, Options{Policy: PolicyPresence})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if st.has("a/") {
		t.Fatalf("deletions completed before the failure must stand")
	}
	if !st.has("b/") {
		t.Fatalf("failed subtree must be left untouched")
	}
}

func TestPassAbortsOnDeleteErrorWithPartialProgress(t *testing.T) {
	st := newFakeStore()
	st.put("a/", 0, daysAgo(400))
	st.put("a/old1.txt", 100, daysAgo(120))
	st.put("a/old2.txt", 100, daysAgo(120))
	st.deleteFailKey = "a/old2.txt"

	stats, err := RunPass(context.Background(), st, Options{
		Policy:    PolicyFreshness,
		Threshold: daysAgo(90),
	})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if st.has("a/old1.txt") {
		t.Fatalf("prune work completed before the failure must stand")
	}
	if !st.has("a/") {
		t.Fatalf("placeholder must be untouched when the pass aborts mid-prune")
	}
	if stats.ObjectsPruned != 1 {
		t.Fatalf("expected 1 pruned object before the abort, got %d", stats.ObjectsPruned)
	}
}

func TestResolvePlaceholderStateMachine(t *testing.T) {
	ctx := context.Background()

	// slashed marker wins without the second lookup
	st := newFakeStore()
	st.put("d/", 0, daysAgo(10))
	p := &pass{store: st, opts: Options{Delimiter: "/"}}
	res, err := p.resolvePlaceholder(ctx, "d/")
	if err != nil {
		t.Fatalf("resolvePlaceholder: %v", err)
	}
	if res != PlaceholderDeleted || st.has("d/") {
		t.Fatalf("expected slashed marker deleted, got %v", res)
	}

	// non-zero object under the folder name is kept
	st = newFakeStore()
	st.put("d", 42, daysAgo(10))
	p = &pass{store: st, opts: Options{Delimiter: "/"}}
	res, err = p.resolvePlaceholder(ctx, "d/")
	if err != nil {
		t.Fatalf("resolvePlaceholder: %v", err)
	}
	if res != PlaceholderKept || !st.has("d") {
		t.Fatalf("expected payload object kept, got %v", res)
	}

	// neither convention present is a normal outcome
	st = newFakeStore()
	p = &pass{store: st, opts: Options{Delimiter: "/"}}
	res, err = p.resolvePlaceholder(ctx, "d/")
	if err != nil {
		t.Fatalf("resolvePlaceholder: %v", err)
	}
	if res != PlaceholderAbsent {
		t.Fatalf("expected absent, got %v", res)
	}
}

func TestPruningBoundaryIsExclusive(t *testing.T) {
	threshold := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	st := newFakeStore()
	st.put("e/", 0, threshold.AddDate(0, 0, -400))
	st.put("e/at-threshold.txt", 10, threshold)
	st.put("e/older.txt", 10, threshold.Add(-time.Millisecond))

	stats, err := RunPass(context.Background(), st, Options{
		Policy:    PolicyFreshness,
		Threshold: threshold,
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if !st.has("e/at-threshold.txt") {
		t.Fatalf("object exactly at the threshold must survive")
	}
	if st.has("e/older.txt") {
		t.Fatalf("object one millisecond older must be pruned")
	}
	if !st.has("e/") {
		t.Fatalf("placeholder must stay while a survivor remains")
	}
	if stats.ObjectsPruned != 1 {
		t.Fatalf("expected 1 pruned object, got %d", stats.ObjectsPruned)
	}
}

func TestStaleOnlyFolderIsEmptiedAndRemoved(t *testing.T) {
	st := newFakeStore()
	st.put("e/", 0, daysAgo(400))
	st.put("e/old.txt", 100, daysAgo(120))

	stats, err := RunPass(context.Background(), st, Options{
		Policy:    PolicyFreshness,
		Threshold: daysAgo(90),
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if st.has("e/old.txt") || st.has("e/") {
		t.Fatalf("expected stale object and placeholder deleted in one pass, remaining: %v", st.objects)
	}
	if stats.ObjectsPruned != 1 || stats.PlaceholdersDeleted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRootWithOnlyPlaceholderEndsEmpty(t *testing.T) {
	st := newFakeStore()
	st.put("a/", 0, daysAgo(30))

	stats, err := RunPass(context.Background(), st, Options{Policy: PolicyPresence})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if len(st.objects) != 0 {
		t.Fatalf("expected empty store, remaining: %v", st.objects)
	}
	if stats.PlaceholdersDeleted != 1 {
		t.Fatalf("expected 1 placeholder deleted, got %d", stats.PlaceholdersDeleted)
	}
}

func TestPresencePolicyIgnoresAge(t *testing.T) {
	st := newFakeStore()
	st.put("a/", 0, daysAgo(400))
	st.put("a/ancient.txt", 100, daysAgo(400))

	stats, err := RunPass(context.Background(), st, Options{Policy: PolicyPresence})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if !st.has("a/ancient.txt") || !st.has("a/") {
		t.Fatalf("presence policy must not delete anything here, remaining: %v", st.objects)
	}
	if stats.ObjectsPruned != 0 || stats.PlaceholdersDeleted != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSubfolderContentDoesNotCountForParent(t *testing.T) {
	st := newFakeStore()
	st.put("h/", 0, daysAgo(30))
	st.put("h/i/", 0, daysAgo(30))
	st.put("h/i/real.txt", 100, daysAgo(1))

	stats, err := RunPass(context.Background(), st, Options{Policy: PolicyPresence})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if !st.has("h/i/real.txt") || !st.has("h/i/") {
		t.Fatalf("non-empty subfolder must be preserved, remaining: %v", st.objects)
	}
	// only direct objects count as content, so the parent's own marker goes
	if st.has("h/") {
		t.Fatalf("parent placeholder should be deleted; subfolder entries are not content")
	}
	if stats.PlaceholdersDeleted != 1 {
		t.Fatalf("expected 1 placeholder deleted, got %d", stats.PlaceholdersDeleted)
	}
}

func TestDryRunDeletesNothing(t *testing.T) {
	st := newFakeStore()
	st.put("a/", 0, daysAgo(200))
	st.put("a/old.txt", 100, daysAgo(120))

	stats, err := RunPass(context.Background(), st, Options{
		Policy:    PolicyFreshness,
		Threshold: daysAgo(90),
		DryRun:    true,
	})
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if stats.ObjectsPruned != 1 || stats.PlaceholdersDeleted != 1 {
		t.Fatalf("dry run should still report work, got %+v", stats)
	}
	if len(st.deleted) != 0 {
		t.Fatalf("dry run must not delete, deleted: %v", st.deleted)
	}
}

func TestPassScopedToRoot(t *testing.T) {
	st := newFakeStore()
	st.put("exports/a/", 0, daysAgo(30))
	st.put("other/b/", 0, daysAgo(30))

	if _, err := RunPass(context.Background(), st, Options{
		Root:   "exports/",
		Policy: PolicyPresence,
	}); err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	if st.has("exports/a/") {
		t.Fatalf("expected placeholder under root to be deleted")
	}
	if !st.has("other/b/") {
		t.Fatalf("expected placeholder outside root to be untouched")
	}
}

func TestMaxDepthAbortsPass(t *testing.T) {
	st := newFakeStore()
	st.put("a/b/c/d/deep.txt", 10, daysAgo(1))

	_, err := RunPass(context.Background(), st, Options{
		Policy:   PolicyPresence,
		MaxDepth: 2,
	})
	if !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("expected ErrMaxDepth, got %v", err)
	}
}

func TestFreshnessRequiresThreshold(t *testing.T) {
	st := newFakeStore()
	if _, err := RunPass(context.Background(), st, Options{Policy: PolicyFreshness}); err == nil {
		t.Fatalf("expected error for freshness policy without threshold")
	}
}

func TestRunPassRejectsUnterminatedRoot(t *testing.T) {
	st := newFakeStore()
	if _, err := RunPass(context.Background(), st, Options{Root: "exports", Policy: PolicyPresence}); err == nil {
		t.Fatalf("expected error for root without trailing delimiter")
	}
}
