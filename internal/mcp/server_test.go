package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/llm"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
	"github.com/joescharf/revu/internal/service"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockReviewer struct {
	owner, repo string
	number      int
	paths       []string
	files       []models.FileData
	result      *review.Result
	err         error
}

func (m *mockReviewer) ReviewPR(_ context.Context, owner, repo string, number int) (*review.Result, error) {
	m.owner, m.repo, m.number = owner, repo, number
	return m.result, m.err
}

func (m *mockReviewer) ReviewPaths(_ context.Context, paths ...string) (*review.Result, error) {
	m.paths = paths
	return m.result, m.err
}

func (m *mockReviewer) ReviewContents(_ context.Context, _ string, files []models.FileData) (*review.Result, error) {
	m.files = files
	return m.result, m.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func humanReviewResult() *review.Result {
	rec := review.NewRecord("rev-9", "acme", "api", 4, time.Now())
	rec.Files = []models.FileData{{Filename: "svc.go"}}
	rec.Decision = models.DecisionHumanReview
	return &review.Result{Record: rec, Trace: []review.State{review.StateDetecting, review.StateTerminal}}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv := NewServer(&mockReviewer{}, "test")
	require.NotNil(t, srv.MCPServer())
}

func TestHandleReviewPR(t *testing.T) {
	mr := &mockReviewer{result: humanReviewResult()}
	srv := NewServer(mr, "test")

	req := callToolReq("revu_review_pr", map[string]any{"repo": "https://github.com/acme/api.git", "number": float64(4)})
	result, err := srv.handleReviewPR(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))

	assert.Equal(t, "acme", mr.owner)
	assert.Equal(t, "api", mr.repo)
	assert.Equal(t, 4, mr.number)

	var out service.Outcome
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, models.DecisionHumanReview, out.Decision)
	assert.Equal(t, []string{"svc.go"}, out.Files)
}

func TestHandleReviewPR_InvalidArgs(t *testing.T) {
	srv := NewServer(&mockReviewer{result: humanReviewResult()}, "test")
	ctx := context.Background()

	for _, args := range []map[string]any{
		{"number": float64(1)},
		{"repo": "acme/api"},
		{"repo": "acme/api", "number": float64(0)},
		{"repo": "not a repo", "number": float64(1)},
	} {
		result, err := srv.handleReviewPR(ctx, callToolReq("revu_review_pr", args))
		require.NoError(t, err, "handler should not return Go error; should wrap in result")
		assert.True(t, result.IsError, "%v", args)
	}
}

func TestHandleReviewPR_FailedRun(t *testing.T) {
	res := humanReviewResult()
	res.Record.Error = "detect: no reviewable files found"
	res.Record.ErrorStage = review.StateDetecting
	srv := NewServer(&mockReviewer{result: res}, "test")

	result, err := srv.handleReviewPR(context.Background(), callToolReq("revu_review_pr", map[string]any{"repo": "acme/api", "number": float64(4)}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no reviewable files found")
}

func TestHandleReviewFiles_Paths(t *testing.T) {
	mr := &mockReviewer{result: humanReviewResult()}
	srv := NewServer(mr, "test")

	result, err := srv.handleReviewFiles(context.Background(), callToolReq("revu_review_files", map[string]any{
		"paths": []any{"internal/", "main.go"},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"internal/", "main.go"}, mr.paths)
}

func TestHandleReviewFiles_Inline(t *testing.T) {
	mr := &mockReviewer{result: humanReviewResult()}
	srv := NewServer(mr, "test")

	result, err := srv.handleReviewFiles(context.Background(), callToolReq("revu_review_files", map[string]any{
		"files": []any{map[string]any{"filename": "a.py", "content": "x = 1\n"}},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, mr.files, 1)
	assert.Equal(t, "a.py", mr.files[0].Filename)
}

func TestHandleReviewFiles_InvalidArgs(t *testing.T) {
	srv := NewServer(&mockReviewer{result: humanReviewResult()}, "test")
	ctx := context.Background()

	for _, args := range []map[string]any{
		nil,
		{"files": "nope"},
		{"files": []any{"nope"}},
		{"files": []any{map[string]any{"content": "x"}}},
		{"paths": []any{"a.py"}, "files": []any{map[string]any{"filename": "b.py", "content": ""}}},
	} {
		result, err := srv.handleReviewFiles(ctx, callToolReq("revu_review_files", args))
		require.NoError(t, err)
		assert.True(t, result.IsError, "%v", args)
	}
}

func TestHandleReviewFiles_Offline(t *testing.T) {
	dir := t.TempDir()
	src := "package calc\n\n// Add sums two ints.\nfunc Add(a, b int) int { return a + b }\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calc.go"), []byte(src), 0644))

	svc := service.New(service.Options{Reviewer: llm.Offline{}, Summarizer: llm.Offline{}})
	srv := NewServer(svc, "test")

	result, err := srv.handleReviewFiles(context.Background(), callToolReq("revu_review_files", map[string]any{
		"paths": []any{dir},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out service.Outcome
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Len(t, out.Files, 1)
	assert.NotNil(t, out.Report)
}
