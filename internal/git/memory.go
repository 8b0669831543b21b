package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/revu/internal/models"
)

// MemorySource serves caller-supplied file contents as a synthetic
// submission. It backs reviews requested over the API and MCP.
type MemorySource struct {
	Title  string
	Author string
	files  []models.FileData
	byName map[string]string
	now    func() time.Time
}

// NewMemorySource returns a source over files. Each file is treated as
// entirely new unless it already carries changed lines.
func NewMemorySource(title, author string, files []models.FileData) *MemorySource {
	m := &MemorySource{Title: title, Author: author, byName: make(map[string]string), now: time.Now}
	for _, f := range files {
		if f.Filename == "" {
			continue
		}
		if _, dup := m.byName[f.Filename]; dup {
			continue
		}
		if f.Status == "" {
			f.Status = models.FileStatusAdded
		}
		if f.Additions == 0 && len(f.ChangedLines) == 0 {
			f.Additions = strings.Count(f.Content, "\n")
			f.Changes = f.Additions
		}
		m.byName[f.Filename] = f.Content
		f.Content = ""
		m.files = append(m.files, f)
	}
	return m
}

func (m *MemorySource) Submission(ctx context.Context, owner, repo string, number int) (models.Submission, error) {
	now := m.now()
	title := m.Title
	if title == "" {
		title = "Submitted Files Review"
	}
	author := m.Author
	if author == "" {
		author = "api"
	}
	return models.Submission{Title: title, Author: author, State: "local", CreatedAt: now, UpdatedAt: now}, nil
}

func (m *MemorySource) ChangedFiles(ctx context.Context, owner, repo string, number int) ([]models.FileData, error) {
	out := make([]models.FileData, len(m.files))
	copy(out, m.files)
	return out, nil
}

func (m *MemorySource) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	c, ok := m.byName[path]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return c, nil
}
