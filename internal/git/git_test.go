package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/models"
)

// initTestRepo creates a git repo in dir with a user config so commits work on CI.
func initTestRepo(t *testing.T, dir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	cmds := [][]string{
		{"git", "-C", dir, "init"},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	}
}

func TestParseRepoRef(t *testing.T) {
	tests := []struct {
		name  string
		ref   string
		owner string
		repo  string
	}{
		{"short", "joescharf/revu", "joescharf", "revu"},
		{"ssh", "git@github.com:joescharf/revu.git", "joescharf", "revu"},
		{"https", "https://github.com/joescharf/revu.git", "joescharf", "revu"},
		{"https no .git", "https://github.com/joescharf/revu", "joescharf", "revu"},
		{"pull url", "https://github.com/joescharf/revu/pull/12", "joescharf", "revu"},
		{"enterprise", "https://ghe.example.com/team/service/", "team", "service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoRef(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}
}

func TestParseRepoRef_Invalid(t *testing.T) {
	for _, ref := range []string{"", "revu", "https://github.com/joescharf", "https://github.com", "git@github.com"} {
		_, _, err := ParseRepoRef(ref)
		assert.Error(t, err, ref)
	}
}

func TestChangedLines(t *testing.T) {
	patch := "@@ -1,3 +1,4 @@\n line1\n-line2\n+line2 changed\n+inserted\n line3\n@@ -10,2 +11,3 @@\n ctx\n+new\n ctx2"

	lines, err := ChangedLines(patch)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 12}, lines)
}

func TestChangedLines_Empty(t *testing.T) {
	lines, err := ChangedLines("")
	require.NoError(t, err)
	assert.Nil(t, lines)

	_, err = ChangedLines("not a patch")
	assert.Error(t, err)
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("a/b.GO", []string{".go", ".py"}))
	assert.False(t, HasExtension("a/b.rs", []string{".go", ".py"}))
	assert.False(t, HasExtension("Makefile", []string{".go"}))
}

func TestLocalSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\ny = 2\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "b.go"), []byte("package pkg\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden", "c.go"), []byte("package c\n"), 0644))

	src := NewLocalSource(dir, filepath.Join(dir, "a.py"))
	ctx := context.Background()

	sub, err := src.Submission(ctx, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "Local Files Review", sub.Title)
	assert.Zero(t, sub.Number)
	assert.NotEmpty(t, sub.Author)

	files, err := src.ChangedFiles(ctx, "", "", 0)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Filename))
		assert.Equal(t, models.FileStatusAdded, f.Status)
	}
	assert.ElementsMatch(t, []string{"a.py", "b.go"}, names)

	content, err := src.FileContent(ctx, "", "", filepath.Join(dir, "a.py"), "")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\ny = 2\n", content)

	_, err = src.FileContent(ctx, "", "", filepath.Join(dir, "missing.py"), "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewLocalSource(filepath.Join(dir, "missing")).ChangedFiles(ctx, "", "", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalSource_UncommittedChanges(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	file := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(file, []byte("a = 1\nb = 2\nc = 3\n"), 0644))
	require.NoError(t, exec.Command("git", "-C", dir, "add", ".").Run())
	require.NoError(t, exec.Command("git", "-C", dir, "commit", "-m", "initial").Run())

	require.NoError(t, os.WriteFile(file, []byte("a = 1\nb = 20\nc = 3\nd = 4\n"), 0644))

	files, err := NewLocalSource(file).ChangedFiles(context.Background(), "", "", 0)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, models.FileStatusModified, files[0].Status)
	assert.Equal(t, []int{2, 4}, files[0].ChangedLines)
	assert.Equal(t, 2, files[0].Additions)
	assert.Equal(t, 1, files[0].Deletions)
}
