package git

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joescharf/revu/internal/models"
)

// DefaultExtensions are reviewed when none are configured.
var DefaultExtensions = []string{".py", ".go"}

// Detector resolves a submission into its reviewable files: those with a
// matching extension that were not removed and whose content could be
// loaded. Files with unfetchable or empty content are dropped.
type Detector struct {
	Source     Source
	Extensions []string
	Logger     *slog.Logger
}

func (d Detector) Detect(ctx context.Context, owner, repo string, number int) (models.Submission, []models.FileData, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exts := d.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	sub, err := d.Source.Submission(ctx, owner, repo, number)
	if err != nil {
		return models.Submission{}, nil, fmt.Errorf("submission: %w", err)
	}
	changed, err := d.Source.ChangedFiles(ctx, owner, repo, number)
	if err != nil {
		return models.Submission{}, nil, fmt.Errorf("changed files: %w", err)
	}

	ref := sub.HeadSHA
	if ref == "" {
		ref = sub.HeadBranch
	}

	var files []models.FileData
	candidates := 0
	for _, f := range changed {
		if f.Status == models.FileStatusRemoved || !HasExtension(f.Filename, exts) {
			continue
		}
		candidates++
		content, err := d.Source.FileContent(ctx, owner, repo, f.Filename, ref)
		if err != nil {
			if ctx.Err() != nil {
				return models.Submission{}, nil, ctx.Err()
			}
			logger.Warn("could not fetch file content", "file", f.Filename, "error", err)
			continue
		}
		if content == "" {
			logger.Debug("skipping empty file", "file", f.Filename)
			continue
		}
		f.Content = content
		files = append(files, f)
	}
	logger.Debug("detected files", "changed", len(changed), "reviewable", len(files))
	if candidates > 0 && len(files) == 0 {
		return models.Submission{}, nil, fmt.Errorf("could not fetch content for any of %d files: %w", candidates, ErrNotFound)
	}
	return sub, files, nil
}
