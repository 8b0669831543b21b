package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/joescharf/revu/internal/models"
)

// ErrNotFound is returned when the submission, file or repository does not exist.
var ErrNotFound = errors.New("not found")

// Source resolves a submission and the files it changes.
type Source interface {
	Submission(ctx context.Context, owner, repo string, number int) (models.Submission, error)
	ChangedFiles(ctx context.Context, owner, repo string, number int) ([]models.FileData, error)
	FileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
}

func gitCmd(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	out, err := exec.CommandContext(ctx, "git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ParseRepoRef accepts "owner/repo", an HTTPS GitHub URL (optionally
// pointing at a pull request) or an SSH remote and returns owner and repo.
func ParseRepoRef(ref string) (owner, repo string, err error) {
	ref = strings.TrimSpace(ref)

	// Handle SSH: git@github.com:owner/repo.git
	if strings.HasPrefix(ref, "git@") {
		parts := strings.SplitN(ref, ":", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("cannot parse SSH remote: %s", ref)
		}
		ref = parts[1]
	} else if i := strings.Index(ref, "://"); i >= 0 {
		// Handle HTTPS: https://github.com/owner/repo[.git][/pull/N]
		rest := ref[i+3:]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return "", "", fmt.Errorf("cannot parse owner/repo from: %s", ref)
		}
		ref = rest[slash+1:]
	}

	segments := strings.Split(strings.Trim(ref, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", ref)
	}
	return segments[0], strings.TrimSuffix(segments[1], ".git"), nil
}

// ChangedLines returns the new-side line numbers added by a unified diff
// patch made of one or more hunks.
func ChangedLines(patch string) ([]int, error) {
	if strings.TrimSpace(patch) == "" {
		return nil, nil
	}
	hunks, err := diff.ParseHunks([]byte(patch))
	if err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	return addedLines(hunks), nil
}

func addedLines(hunks []*diff.Hunk) []int {
	var lines []int
	for _, h := range hunks {
		n := int(h.NewStartLine)
		for _, l := range strings.Split(string(h.Body), "\n") {
			if l == "" {
				continue
			}
			switch l[0] {
			case '+':
				lines = append(lines, n)
				n++
			case ' ':
				n++
			}
		}
	}
	return lines
}

// HasExtension reports whether filename ends in one of exts (case-insensitive).
func HasExtension(filename string, exts []string) bool {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
