package git

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/joescharf/revu/internal/models"
)

// LocalSource serves files from disk as a synthetic submission. Directories
// are walked recursively, skipping hidden directories.
type LocalSource struct {
	Paths []string
	now   func() time.Time
}

// NewLocalSource returns a source over paths.
func NewLocalSource(paths ...string) *LocalSource {
	return &LocalSource{Paths: paths, now: time.Now}
}

func (l *LocalSource) Submission(ctx context.Context, owner, repo string, number int) (models.Submission, error) {
	now := time.Now()
	if l.now != nil {
		now = l.now()
	}
	sub := models.Submission{
		Number:    0,
		Title:     "Local Files Review",
		Author:    localUser(),
		State:     "local",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(l.Paths) > 0 {
		if branch, err := gitCmd(ctx, dirOf(l.Paths[0]), "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
			sub.HeadBranch = branch
		}
	}
	return sub, nil
}

func localUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "local"
}

func dirOf(p string) string {
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return p
	}
	return filepath.Dir(p)
}

// ChangedFiles lists the files under Paths. Files with uncommitted changes
// take their changed lines from the diff against HEAD; every other file
// counts as entirely new.
func (l *LocalSource) ChangedFiles(ctx context.Context, owner, repo string, number int) ([]models.FileData, error) {
	var files []models.FileData
	seen := make(map[string]bool)
	for _, p := range l.Paths {
		fi, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
			}
			return nil, err
		}
		if !fi.IsDir() {
			if !seen[p] {
				seen[p] = true
				files = append(files, l.describe(ctx, p))
			}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, l.describe(ctx, path))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return files, nil
}

func (l *LocalSource) describe(ctx context.Context, path string) models.FileData {
	fd := models.FileData{Filename: filepath.ToSlash(path), Status: models.FileStatusAdded}
	if patch, err := gitCmd(ctx, filepath.Dir(path), "diff", "--no-color", "HEAD", "--", filepath.Base(path)); err == nil && patch != "" {
		if fdiff, err := diff.ParseFileDiff([]byte(patch + "\n")); err == nil {
			fd.Status = models.FileStatusModified
			fd.ChangedLines = addedLines(fdiff.Hunks)
			stat := fdiff.Stat()
			fd.Additions = int(stat.Added + stat.Changed)
			fd.Deletions = int(stat.Deleted + stat.Changed)
			fd.Changes = fd.Additions + fd.Deletions
			return fd
		}
	}
	if data, err := os.ReadFile(path); err == nil {
		fd.Additions = strings.Count(string(data), "\n")
		fd.Changes = fd.Additions
	}
	return fd
}

func (l *LocalSource) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", err
	}
	return string(data), nil
}
