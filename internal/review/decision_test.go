package review

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/joescharf/revu/internal/models"
)

// resultsWith builds one file per slot with the given scores.
func resultsWith(security, quality, coverage, ai, docs float64, findings ...models.Severity) models.Results {
	sec := models.SecurityResult{Filename: "a.py", Score: security}
	for i, sev := range findings {
		sec.Findings = append(sec.Findings, models.Finding{Line: i + 1, Severity: sev, Description: "x"})
	}
	return models.Results{
		Security:      []models.SecurityResult{sec},
		Quality:       []models.QualityResult{{Filename: "a.py", Score: quality}},
		Coverage:      []models.CoverageResult{{Filename: "a.py", Percent: coverage}},
		AIReview:      []models.AIReviewResult{{Filename: "a.py", OverallScore: ai}},
		Documentation: []models.DocumentationResult{{Filename: "a.py", CoveragePercent: docs}},
	}
}

func TestDecide(t *testing.T) {
	th := models.DefaultThresholds()

	tests := []struct {
		name     string
		res      models.Results
		decision models.Decision
		critical bool
		reason   string
	}{
		{
			name:     "all slots empty",
			res:      models.Results{},
			decision: models.DecisionCriticalEscalation,
			critical: true,
			reason:   "Security issues detected: Score 0.0/8.0 or 0 high severity vulnerabilities",
		},
		{
			name:     "security and quality both violated",
			res:      resultsWith(5, 3, 90, 0.9, 90),
			decision: models.DecisionCriticalEscalation,
			critical: true,
			reason:   "Security issues detected: Score 5.0/8.0 or 0 high severity vulnerabilities",
		},
		{
			name:     "high finding at threshold score",
			res:      resultsWith(8, 9, 90, 0.9, 90, models.SeverityHigh),
			decision: models.DecisionCriticalEscalation,
			critical: true,
			reason:   "Security issues detected: Score 8.0/8.0 or 1 high severity vulnerabilities",
		},
		{
			name:     "medium findings alone do not escalate",
			res:      resultsWith(8, 9, 90, 0.9, 90, models.SeverityMedium, models.SeverityLow),
			decision: models.DecisionAutoApprove,
		},
		{
			name:     "quality reported before coverage",
			res:      resultsWith(10, 6.5, 50, 0.5, 90),
			decision: models.DecisionHumanReview,
			critical: true,
			reason:   "Quality score too low: 6.50 < 7.0",
		},
		{
			name:     "coverage reported before ai",
			res:      resultsWith(10, 9, 50, 0.5, 90),
			decision: models.DecisionHumanReview,
			critical: true,
			reason:   "Test coverage too low: 50.0% < 80.0%",
		},
		{
			name:     "ai score",
			res:      resultsWith(10, 9, 90, 0.5, 90),
			decision: models.DecisionHumanReview,
			critical: true,
			reason:   "AI review score too low: 0.50 < 0.80",
		},
		{
			name:     "documentation",
			res:      resultsWith(10, 9, 90, 0.9, 40),
			decision: models.DecisionDocumentationReview,
			critical: true,
			reason:   "Documentation coverage too low: 40.0% < 70.0%",
		},
		{
			name:     "all means equal to thresholds",
			res:      resultsWith(th.Security, th.Quality, th.Coverage, th.AIScore, th.Documentation),
			decision: models.DecisionAutoApprove,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Decide(tt.res, th)
			assert.Equal(t, tt.decision, out.Decision)
			assert.Equal(t, tt.critical, out.Critical)
			assert.Equal(t, tt.reason, out.Reason)
		})
	}
}

func TestDecide_Idempotent(t *testing.T) {
	res := resultsWith(9, 8, 85, 0.85, 75, models.SeverityLow)
	th := models.DefaultThresholds()

	first := Decide(res, th)
	second := Decide(res, th)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Decide not idempotent (-first +second):\n%s", diff)
	}
}

func TestDecide_MeansOverFiles(t *testing.T) {
	res := models.Results{
		Security: []models.SecurityResult{{Score: 10}, {Score: 7}},
		Quality:  []models.QualityResult{{Score: 8}, {Score: 6}},
	}
	out := Decide(res, models.DefaultThresholds())

	want := models.Metrics{SecurityScore: 8.5, QualityScore: 7}
	if diff := cmp.Diff(want, out.Metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, models.DecisionHumanReview, out.Decision)
	assert.Equal(t, "Test coverage too low: 0.0% < 80.0%", out.Reason)
}
