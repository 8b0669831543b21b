package report

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/models"
)

func TestBuild_Critical(t *testing.T) {
	in := Input{
		Decision:   models.DecisionCriticalEscalation,
		Critical:   true,
		Reason:     "Security issues detected",
		Metrics:    models.Metrics{SecurityScore: 6, QualityScore: 9, Coverage: 90, AIScore: 0.9, DocumentationCoverage: 80, HighSeverityIssues: 1},
		Thresholds: models.DefaultThresholds(),
	}

	rep, err := Builder{}.Build(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "CRITICAL ESCALATION", rep.Recommendation)
	assert.Equal(t, "HIGH", rep.Priority)
	assert.Equal(t, []string{"Security issues detected"}, rep.KeyFindings)
	assert.Equal(t, []string{
		"Address critical security vulnerabilities immediately",
		"Follow security best practices for affected code",
	}, rep.ActionItems)
	assert.Equal(t, []string{
		"Security score must be at least 8.0/10.0",
		"All high-severity security vulnerabilities must be addressed",
	}, rep.ApprovalCriteria)
}

func TestBuild_AutoApprove(t *testing.T) {
	in := Input{
		Decision:   models.DecisionAutoApprove,
		Metrics:    models.Metrics{SecurityScore: 10, QualityScore: 9, Coverage: 90, AIScore: 0.9, DocumentationCoverage: 80},
		Thresholds: models.DefaultThresholds(),
	}
	rep := Build(in)

	assert.Equal(t, "AUTO APPROVE", rep.Recommendation)
	assert.Equal(t, "MEDIUM", rep.Priority)
	assert.Equal(t, []string{"All quality thresholds met"}, rep.KeyFindings)
	assert.Empty(t, rep.ActionItems)
	assert.Equal(t, []string{"All quality thresholds are met"}, rep.ApprovalCriteria)
}

func TestActionItems_HumanReview(t *testing.T) {
	th := models.DefaultThresholds()
	items := ActionItems(models.DecisionHumanReview, models.Metrics{QualityScore: 9, Coverage: 40, AIScore: 0.5}, th)
	assert.Equal(t, []string{
		"Improve test coverage for affected code",
		"Review AI suggestions for code improvements",
	}, items)
}

func TestBuilder_NoDecision(t *testing.T) {
	_, err := Builder{}.Build(context.Background(), Input{})
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	in := Input{
		ReviewID:   "REV-20260101-ABCDEFGH",
		Owner:      "acme",
		Repo:       "widgets",
		Submission: models.Submission{Number: 7, Title: "Add parser", Author: "sam"},
		Decision:   models.DecisionHumanReview,
		Critical:   true,
		Reason:     "Test coverage too low: 40.0% < 80.0%",
		Thresholds: models.DefaultThresholds(),
		Results: models.Results{
			Security: []models.SecurityResult{{
				Filename: "app.py",
				Score:    8,
				Findings: []models.Finding{{Line: 3, Severity: models.SeverityHigh, Description: "Use of eval()", OnChangedLine: true}},
			}},
		},
	}
	md := Markdown(in, Build(in))

	assert.Contains(t, md, "# Review REV-20260101-ABCDEFGH: acme/widgets #7")
	assert.Contains(t, md, "**Add parser** by sam")
	assert.Contains(t, md, "## Decision: HUMAN REVIEW")
	assert.Contains(t, md, "- Test coverage too low: 40.0% < 80.0%")
	assert.Contains(t, md, "| app.py:3 (changed) | HIGH | Use of eval() |")
	assert.Contains(t, md, "**security**: app.py scored 8.0 with 1 finding(s)")
}

func TestJSON(t *testing.T) {
	in := Input{ReviewID: "REV-1", Decision: models.DecisionAutoApprove, Thresholds: models.DefaultThresholds()}
	data, err := JSON(in, Build(in))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "REV-1", decoded["review_id"])
	rep, ok := decoded["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AUTO APPROVE", rep["recommendation"])
}
