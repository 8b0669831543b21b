// Package report builds and renders the final outcome of a review.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/joescharf/revu/internal/models"
)

// Input is everything the report is derived from.
type Input struct {
	ReviewID   string            `json:"review_id"`
	Owner      string            `json:"owner"`
	Repo       string            `json:"repo"`
	Submission models.Submission `json:"submission"`
	Decision   models.Decision   `json:"decision"`
	Critical   bool              `json:"critical"`
	Reason     string            `json:"reason"`
	Metrics    models.Metrics    `json:"metrics"`
	Thresholds models.Thresholds `json:"thresholds"`
	Results    models.Results    `json:"results"`
	Summary    *models.Summary   `json:"summary,omitempty"`
}

// Builder is the default report builder.
type Builder struct{}

// Build derives the report for in. It fails only when no decision was made.
func (Builder) Build(_ context.Context, in Input) (models.Report, error) {
	if in.Decision == "" {
		return models.Report{}, errors.New("no decision to report on")
	}
	return Build(in), nil
}

// Build derives the report for in.
func Build(in Input) models.Report {
	priority := "MEDIUM"
	if in.Critical {
		priority = "HIGH"
	}
	findings := []string{"All quality thresholds met"}
	if in.Reason != "" {
		findings = []string{in.Reason}
	}
	return models.Report{
		Decision:         in.Decision,
		Recommendation:   in.Decision.Label(),
		Priority:         priority,
		Metrics:          in.Metrics,
		KeyFindings:      findings,
		ActionItems:      ActionItems(in.Decision, in.Metrics, in.Thresholds),
		ApprovalCriteria: ApprovalCriteria(in.Metrics, in.Thresholds),
		Highlights:       highlights(in.Results),
	}
}

// ActionItems lists the follow-ups for a decision.
func ActionItems(d models.Decision, m models.Metrics, th models.Thresholds) []string {
	var items []string
	switch d {
	case models.DecisionCriticalEscalation:
		items = append(items,
			"Address critical security vulnerabilities immediately",
			"Follow security best practices for affected code")
	case models.DecisionHumanReview:
		if m.QualityScore < th.Quality {
			items = append(items, "Address code quality issues flagged by the lint pass")
		}
		if m.Coverage < th.Coverage {
			items = append(items, "Improve test coverage for affected code")
		}
		if m.AIScore < th.AIScore {
			items = append(items, "Review AI suggestions for code improvements")
		}
	case models.DecisionDocumentationReview:
		items = append(items,
			"Add missing documentation to functions and types",
			"Ensure every package has a package comment")
	}
	return items
}

// ApprovalCriteria lists what must hold before the submission can be approved.
func ApprovalCriteria(m models.Metrics, th models.Thresholds) []string {
	var criteria []string
	if m.SecurityScore < th.Security {
		criteria = append(criteria, fmt.Sprintf("Security score must be at least %.1f/10.0", th.Security))
	}
	if m.HighSeverityIssues > 0 {
		criteria = append(criteria, "All high-severity security vulnerabilities must be addressed")
	}
	if m.QualityScore < th.Quality {
		criteria = append(criteria, fmt.Sprintf("Quality score must be at least %.1f/10.0", th.Quality))
	}
	if m.Coverage < th.Coverage {
		criteria = append(criteria, fmt.Sprintf("Test coverage must be at least %.1f%%", th.Coverage))
	}
	if m.AIScore < th.AIScore {
		criteria = append(criteria, "AI-identified code issues must be resolved")
	}
	if m.DocumentationCoverage < th.Documentation {
		criteria = append(criteria, fmt.Sprintf("Documentation coverage must be at least %.1f%%", th.Documentation))
	}
	if len(criteria) == 0 {
		criteria = append(criteria, "All quality thresholds are met")
	}
	return criteria
}

// highlights picks the worst file of each slot.
func highlights(res models.Results) map[string]string {
	h := make(map[string]string)
	if len(res.Security) > 0 {
		worst := res.Security[0]
		for _, s := range res.Security[1:] {
			if s.Score < worst.Score {
				worst = s
			}
		}
		h["security"] = fmt.Sprintf("%s scored %.1f with %d finding(s)", worst.Filename, worst.Score, len(worst.Findings))
	}
	if len(res.Quality) > 0 {
		worst := res.Quality[0]
		for _, q := range res.Quality[1:] {
			if q.Score < worst.Score {
				worst = q
			}
		}
		h["quality"] = fmt.Sprintf("%s scored %.2f with %d code smell(s)", worst.Filename, worst.Score, len(worst.CodeSmells))
	}
	if len(res.Coverage) > 0 {
		worst := res.Coverage[0]
		for _, c := range res.Coverage[1:] {
			if c.Percent < worst.Percent {
				worst = c
			}
		}
		h["coverage"] = fmt.Sprintf("%s at %.1f%%", worst.Filename, worst.Percent)
	}
	if len(res.Documentation) > 0 {
		var missing []string
		for _, d := range res.Documentation {
			missing = append(missing, d.MissingDocs...)
		}
		sort.Strings(missing)
		if len(missing) > 0 {
			h["documentation"] = fmt.Sprintf("%d undocumented item(s), first: %s", len(missing), missing[0])
		}
	}
	if len(h) == 0 {
		return nil
	}
	return h
}

// JSON renders the report with its input as indented JSON.
func JSON(in Input, rep models.Report) ([]byte, error) {
	return json.MarshalIndent(struct {
		Input
		Report models.Report `json:"report"`
	}{in, rep}, "", "  ")
}
