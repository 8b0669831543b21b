package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/models"
)

func TestBuildReviewPrompt(t *testing.T) {
	t.Run("with hints", func(t *testing.T) {
		system, user := buildReviewPrompt("app.py", "print('x')", []string{"Submission: Fix login", "Lint score 9.0/10"})

		assert.Contains(t, system, "JSON object")
		assert.Contains(t, system, `"overall_score"`)
		assert.Contains(t, system, `"confidence"`)
		assert.Contains(t, system, `"strengths"`)
		assert.Contains(t, system, `"security_concerns"`)

		assert.Contains(t, user, "Context:")
		assert.Contains(t, user, "- Submission: Fix login")
		assert.Contains(t, user, "File: app.py")
		assert.Contains(t, user, "print('x')")
	})

	t.Run("without hints", func(t *testing.T) {
		_, user := buildReviewPrompt("main.go", "package main", nil)

		assert.NotContains(t, user, "Context:")
		assert.Contains(t, user, "package main")
	})
}

func TestBuildReviewPromptContent(t *testing.T) {
	content := strings.Repeat("x", 10000)
	_, user := buildReviewPrompt("big.go", content, nil)
	assert.Contains(t, user, content)
}

func TestBuildSummaryPrompt(t *testing.T) {
	sub := models.Submission{Number: 42, Title: "Add parser", Author: "dev"}
	res := models.Results{
		Security:     []models.SecurityResult{{Filename: "a.py", Score: 8, Findings: []models.Finding{{Severity: models.SeverityHigh}}}},
		AIReview:     []models.AIReviewResult{{Filename: "a.py", OverallScore: 0.7, Issues: []string{"missing error handling"}}},
		MissingTests: []models.MissingTest{{Filename: "a.py", UntestedFunctions: []string{"parse"}}},
	}

	system, user := buildSummaryPrompt(sub, res)

	assert.Contains(t, system, `"APPROVE"`)
	assert.Contains(t, system, `"NEEDS_WORK"`)
	assert.Contains(t, system, `"REJECT"`)
	assert.Contains(t, system, `"approval_criteria"`)

	assert.Contains(t, user, "Submission #42: Add parser")
	assert.Contains(t, user, "Author: dev")
	assert.Contains(t, user, "Security score: 8.00/10 (1 findings, 1 high severity)")
	assert.Contains(t, user, "a.py: missing error handling")
	assert.Contains(t, user, "Missing tests in a.py: parse")
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```\n", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  \n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestParseReview(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		res, err := parseReview("a.go", `{"overall_score":0.85,"confidence":0.9,"strengths":["clear"],"issues":[],"recommendations":["add tests"]}`)
		require.NoError(t, err)
		assert.Equal(t, "a.go", res.Filename)
		assert.InDelta(t, 0.85, res.OverallScore, 1e-9)
		assert.InDelta(t, 0.9, res.Confidence, 1e-9)
		assert.Equal(t, []string{"clear"}, res.Strengths)
		assert.Equal(t, []string{"add tests"}, res.Recommendations)
	})

	t.Run("scores are clamped", func(t *testing.T) {
		res, err := parseReview("a.go", `{"overall_score":8.5,"confidence":-1}`)
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.OverallScore)
		assert.Equal(t, 0.0, res.Confidence)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseReview("a.go", "not json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "raw response: not json")
	})
}

func TestFallbackReview(t *testing.T) {
	res := FallbackReview(errors.New("boom"))
	assert.Equal(t, 0.7, res.OverallScore)
	assert.Equal(t, 0.6, res.Confidence)
	assert.Contains(t, res.Recommendations, "Manual code review recommended")
	assert.Equal(t, "boom", res.Note)

	assert.Empty(t, FallbackReview(nil).Note)
}

func TestParseSummary(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s, err := parseSummary(`{"recommendation":"needs_work","priority":"high","key_findings":["low coverage"],"action_items":["add tests"],"approval_criteria":["coverage >= 80%"]}`)
		require.NoError(t, err)
		assert.Equal(t, "NEEDS_WORK", s.Recommendation)
		assert.Equal(t, "HIGH", s.Priority)
		assert.Equal(t, []string{"low coverage"}, s.KeyFindings)
		assert.Equal(t, "llm", s.Source)
	})

	t.Run("default priority", func(t *testing.T) {
		s, err := parseSummary(`{"recommendation":"APPROVE"}`)
		require.NoError(t, err)
		assert.Equal(t, "MEDIUM", s.Priority)
	})

	t.Run("unknown recommendation", func(t *testing.T) {
		_, err := parseSummary(`{"recommendation":"MAYBE"}`)
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseSummary("{")
		assert.Error(t, err)
	})
}

func TestOfflineReviewCode(t *testing.T) {
	ctx := context.Background()

	clean, err := Offline{}.ReviewCode(ctx, "a.go", "package a\n", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, clean.OverallScore, 1e-9)
	assert.Equal(t, "a.go", clean.Filename)
	assert.NotEmpty(t, clean.Strengths)

	marked, err := Offline{}.ReviewCode(ctx, "b.go", "// TODO one\n// FIXME two\n", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, marked.OverallScore, 1e-9)
	assert.NotEmpty(t, marked.Issues)

	floor, err := Offline{}.ReviewCode(ctx, "c.go", strings.Repeat("// TODO\n", 20), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, floor.OverallScore)
}

func TestOfflineHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Offline{}.ReviewCode(ctx, "a.go", "package a", nil)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Offline{}.Summarize(ctx, models.Submission{}, models.Results{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOfflineSummarize(t *testing.T) {
	s, err := Offline{}.Summarize(context.Background(), models.Submission{Title: "x"}, models.Results{})
	require.NoError(t, err)
	assert.Equal(t, "offline", s.Source)
	assert.NotEmpty(t, s.Recommendation)
}
