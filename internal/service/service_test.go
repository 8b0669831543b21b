package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/config"
	"github.com/joescharf/revu/internal/git"
	"github.com/joescharf/revu/internal/llm"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

const sample = `"""Billing helpers."""


def total(items):
    """Sum item prices."""
    return sum(i.price for i in items)
`

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.EventType
}

func (r *recordingNotifier) Notify(_ context.Context, ev models.EventType, _ models.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

type prSource struct{}

func (prSource) Submission(ctx context.Context, owner, repo string, number int) (models.Submission, error) {
	return models.Submission{Number: number, Title: "Add billing", Author: "dev", HeadSHA: "abc"}, nil
}

func (prSource) ChangedFiles(ctx context.Context, owner, repo string, number int) ([]models.FileData, error) {
	return []models.FileData{
		{Filename: "billing.py", Status: models.FileStatusModified, ChangedLines: []int{6}},
		{Filename: "old.py", Status: models.FileStatusRemoved},
	}, nil
}

func (prSource) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	if path == "billing.py" && ref == "abc" {
		return sample, nil
	}
	return "", git.ErrNotFound
}

func newTestService(n *recordingNotifier) *Service {
	return New(Options{
		GitHub:     prSource{},
		Reviewer:   llm.Offline{},
		Summarizer: llm.Offline{},
		Notifier:   n,
	})
}

func TestReviewPR(t *testing.T) {
	n := &recordingNotifier{}
	res, err := newTestService(n).ReviewPR(context.Background(), "acme", "billing", 12)
	require.NoError(t, err)
	require.NoError(t, res.Err())

	rec := res.Record
	assert.Equal(t, "Add billing", rec.Submission.Title)
	require.Len(t, rec.Files, 1)
	assert.Equal(t, "billing.py", rec.Files[0].Filename)
	assert.NotEmpty(t, rec.Decision)
	require.NotNil(t, rec.Report)
	assert.Equal(t, []models.EventType{models.EventReviewStarted, models.EventFinalReport}, n.events)
	assert.Equal(t, review.StateTerminal, res.Trace[len(res.Trace)-1])
}

type countingSummarizer struct {
	mu    sync.Mutex
	calls []models.Results
}

func (c *countingSummarizer) Summarize(_ context.Context, _ models.Submission, res models.Results) (models.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, res)
	return models.Summary{Recommendation: "APPROVE", Source: "model"}, nil
}

func TestReviewPR_SummaryFromAIReviewTask(t *testing.T) {
	sum := &countingSummarizer{}
	svc := New(Options{GitHub: prSource{}, Reviewer: llm.Offline{}, Summarizer: sum, Notifier: &recordingNotifier{}})

	res, err := svc.ReviewPR(context.Background(), "acme", "billing", 12)
	require.NoError(t, err)
	require.NoError(t, res.Err())

	require.Len(t, sum.calls, 1, "the ai review task summarizes and the coordinator reuses it")
	assert.Len(t, sum.calls[0].AIReview, 1)
	assert.Empty(t, sum.calls[0].Security)
	require.NotNil(t, res.Record.Summary)
	assert.Equal(t, "model", res.Record.Summary.Source)
	assert.NotNil(t, res.Record.Summary.Security)
}

func TestReviewPR_NoGitHub(t *testing.T) {
	svc := New(Options{Reviewer: llm.Offline{}})
	_, err := svc.ReviewPR(context.Background(), "a", "b", 1)
	assert.ErrorIs(t, err, ErrNoGitHub)
	assert.Equal(t, models.DefaultThresholds(), svc.Thresholds())
}

func TestReviewContents(t *testing.T) {
	n := &recordingNotifier{}
	res, err := newTestService(n).ReviewContents(context.Background(), "", []models.FileData{
		{Filename: "billing.py", Content: sample},
	})
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, "Submitted Files Review", res.Record.Submission.Title)
	assert.Len(t, res.Record.Results.Security, 1)
}

func TestReviewContents_NoReviewableFiles(t *testing.T) {
	n := &recordingNotifier{}
	res, err := newTestService(n).ReviewContents(context.Background(), "", []models.FileData{
		{Filename: "README.md", Content: "# hi\n"},
	})
	require.NoError(t, err)
	require.Error(t, res.Err())
	assert.Contains(t, res.Err().Error(), "no reviewable files found")
	assert.Equal(t, []review.State{review.StateDetecting, review.StateErrorHandling, review.StateTerminal}, res.Trace)
	assert.Equal(t, []models.EventType{models.EventError}, n.events)
}

type unfetchableSource struct{ prSource }

func (unfetchableSource) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	return "", git.ErrNotFound
}

func TestReviewPR_ContentUnavailable(t *testing.T) {
	n := &recordingNotifier{}
	svc := New(Options{GitHub: unfetchableSource{}, Reviewer: llm.Offline{}, Notifier: n})

	res, err := svc.ReviewPR(context.Background(), "acme", "billing", 12)
	require.NoError(t, err)
	require.Error(t, res.Err())
	assert.Contains(t, res.Err().Error(), "could not fetch content")
	assert.Equal(t, []review.State{review.StateDetecting, review.StateErrorHandling, review.StateTerminal}, res.Trace)
	assert.Empty(t, res.Record.Completed)
	assert.Empty(t, res.Record.Decision)
	assert.Equal(t, []models.EventType{models.EventError}, n.events)
}

func TestReviewContents_EmptyContent(t *testing.T) {
	n := &recordingNotifier{}
	res, err := newTestService(n).ReviewContents(context.Background(), "", []models.FileData{
		{Filename: "blank.py", Content: ""},
	})
	require.NoError(t, err)
	require.Error(t, res.Err())
	assert.Equal(t, []review.State{review.StateDetecting, review.StateErrorHandling, review.StateTerminal}, res.Trace)
	assert.Empty(t, res.Record.Completed)
}

func TestReviewPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.py"), []byte(sample), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("notes\n"), 0644))

	res, err := newTestService(&recordingNotifier{}).ReviewPaths(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.Len(t, res.Record.Files, 1)
	assert.Equal(t, "Local Files Review", res.Record.Submission.Title)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Config{
		Thresholds:   models.DefaultThresholds(),
		GitHubToken:  "ghp_test",
		GitHubAPIURL: "https://api.github.com",
		CacheEnabled: true,
		CachePath:    filepath.Join(t.TempDir(), "cache", "cache.db"),
		Offline:      true,
		Extensions:   []string{".py"},
	}

	svc, closeFn, err := FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, svc.opts.GitHub)
	assert.NoError(t, closeFn())

	_, err = os.Stat(cfg.CachePath)
	assert.NoError(t, err, "cache database should be created")

	res, err := svc.ReviewContents(context.Background(), "", []models.FileData{{Filename: "billing.py", Content: sample}})
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.NotNil(t, res.Record.Summary)
	assert.Equal(t, "offline", res.Record.Summary.Source)
}

func TestFromConfig_NoToken(t *testing.T) {
	svc, closeFn, err := FromConfig(context.Background(), config.Config{Offline: true}, nil)
	require.NoError(t, err)
	defer closeFn()

	_, err = svc.ReviewPR(context.Background(), "a", "b", 1)
	assert.ErrorIs(t, err, ErrNoGitHub)
}
