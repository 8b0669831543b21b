package review

import (
	"fmt"

	"github.com/joescharf/revu/internal/models"
)

// Outcome is the result of Decide.
type Outcome struct {
	Decision models.Decision `json:"decision"`
	Critical bool            `json:"critical"`
	Reason   string          `json:"reason"`
	Metrics  models.Metrics  `json:"metrics"`
}

// Decide maps merged results onto a decision. Thresholds are inclusive
// lower bounds; security is checked first, then quality, coverage and AI
// score, then documentation. Empty slots average to zero.
func Decide(res models.Results, th models.Thresholds) Outcome {
	m := res.Means()
	out := Outcome{Decision: models.DecisionAutoApprove, Metrics: m}

	switch {
	case m.SecurityScore < th.Security || m.HighSeverityIssues > 0:
		out.Decision = models.DecisionCriticalEscalation
		out.Critical = true
		out.Reason = fmt.Sprintf("Security issues detected: Score %.1f/%.1f or %d high severity vulnerabilities",
			m.SecurityScore, th.Security, m.HighSeverityIssues)

	case m.QualityScore < th.Quality:
		out.Decision = models.DecisionHumanReview
		out.Critical = true
		out.Reason = fmt.Sprintf("Quality score too low: %.2f < %.1f", m.QualityScore, th.Quality)

	case m.Coverage < th.Coverage:
		out.Decision = models.DecisionHumanReview
		out.Critical = true
		out.Reason = fmt.Sprintf("Test coverage too low: %.1f%% < %.1f%%", m.Coverage, th.Coverage)

	case m.AIScore < th.AIScore:
		out.Decision = models.DecisionHumanReview
		out.Critical = true
		out.Reason = fmt.Sprintf("AI review score too low: %.2f < %.2f", m.AIScore, th.AIScore)

	case m.DocumentationCoverage < th.Documentation:
		out.Decision = models.DecisionDocumentationReview
		out.Critical = true
		out.Reason = fmt.Sprintf("Documentation coverage too low: %.1f%% < %.1f%%", m.DocumentationCoverage, th.Documentation)
	}

	return out
}
