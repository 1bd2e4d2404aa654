package storage

import (
	"context"

	"github.com/dev-tams/sweepkit/internal/storage/object"
)

// Delimiter is the separator used to derive folder hierarchy from flat keys.
const Delimiter = "/"

type Store interface {
	Name() string
	// ListHierarchical issues one listing call scoped to prefix, grouping keys
	// one level deep by delimiter. Paginated under the hood; finite per call.
	ListHierarchical(ctx context.Context, prefix, delimiter string) (object.Listing, error)
	GetProperties(ctx context.Context, key string) (object.Properties, error)
	// DeleteIfExists is idempotent; deleting an absent object is a no-op.
	DeleteIfExists(ctx context.Context, key string) error
}
