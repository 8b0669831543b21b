package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joescharf/revu/internal/git"
	"github.com/joescharf/revu/internal/models"
)

// CachedSource decorates a git.Source so file contents are read from the
// store first and written through on a miss. Reads without a ref are not
// cached since their content can change underneath the key.
type CachedSource struct {
	Source git.Source
	Store  Store
	TTL    time.Duration
	Logger *slog.Logger

	now func() time.Time
}

// NewCachedSource wraps src with st. A non-positive ttl uses DefaultTTL.
func NewCachedSource(src git.Source, st Store, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{Source: src, Store: st, TTL: ttl, Logger: logger, now: time.Now}
}

func (c *CachedSource) Submission(ctx context.Context, owner, repo string, number int) (models.Submission, error) {
	return c.Source.Submission(ctx, owner, repo, number)
}

func (c *CachedSource) ChangedFiles(ctx context.Context, owner, repo string, number int) ([]models.FileData, error) {
	return c.Source.ChangedFiles(ctx, owner, repo, number)
}

func (c *CachedSource) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	if ref == "" {
		return c.Source.FileContent(ctx, owner, repo, path, ref)
	}

	e, err := c.Store.GetContent(ctx, owner, repo, path, ref)
	switch {
	case err == nil && c.now().Sub(e.FetchedAt) < c.TTL:
		c.Logger.Debug("cache hit", "path", path, "ref", ref)
		return e.Content, nil
	case err != nil && !errors.Is(err, ErrCacheMiss):
		c.Logger.Warn("cache read failed", "path", path, "error", err)
	}

	content, err := c.Source.FileContent(ctx, owner, repo, path, ref)
	if err != nil {
		return "", err
	}
	put := &Entry{Owner: owner, Repo: repo, Path: path, Ref: ref, Content: content, FetchedAt: c.now().UTC()}
	if err := c.Store.PutContent(ctx, put); err != nil {
		c.Logger.Warn("cache write failed", "path", path, "error", err)
	}
	return content, nil
}
