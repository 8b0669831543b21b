package store

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when no entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// DefaultTTL is how long cached content stays fresh.
const DefaultTTL = 24 * time.Hour

// Entry is one cached file content, keyed by owner, repo, path and ref.
type Entry struct {
	ID        string
	Owner     string
	Repo      string
	Path      string
	Ref       string
	Content   string
	FetchedAt time.Time
}

// Stats summarizes the cache.
type Stats struct {
	Entries int64
	Bytes   int64
	Oldest  time.Time
}

// Store defines the persistence interface for fetched file contents.
// Review results are never stored.
type Store interface {
	GetContent(ctx context.Context, owner, repo, path, ref string) (*Entry, error)
	PutContent(ctx context.Context, e *Entry) error
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Stats(ctx context.Context) (Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
