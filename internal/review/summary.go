package review

import (
	"fmt"

	"github.com/joescharf/revu/internal/models"
)

// LocalSummary builds a summary from the merged results without any
// external generator.
func LocalSummary(sub models.Submission, res models.Results) models.Summary {
	m := res.Means()
	files := len(res.Security)
	if n := len(res.Quality); n > files {
		files = n
	}

	findings := []string{
		fmt.Sprintf("%d file(s) analyzed", files),
		fmt.Sprintf("%d security finding(s), %d high severity", res.FindingCount(), m.HighSeverityIssues),
		fmt.Sprintf("Average quality score %.2f/10, coverage %.1f%%, AI score %.2f",
			m.QualityScore, m.Coverage, m.AIScore),
	}

	rec, priority := "NEEDS_WORK", "MEDIUM"
	actions := []string{"Manual review recommended"}
	criteria := []string{"Address identified issues"}
	if m.HighSeverityIssues > 0 {
		rec, priority = "REJECT", "HIGH"
		actions = append([]string{"Fix high severity security findings"}, actions...)
	}
	for _, mt := range res.MissingTests {
		if len(mt.UntestedFunctions)+len(mt.UntestedTypes) > 0 {
			actions = append(actions, fmt.Sprintf("Add tests for %s", mt.Filename))
		}
	}

	return models.Summary{
		Recommendation:   rec,
		Priority:         priority,
		KeyFindings:      findings,
		ActionItems:      actions,
		ApprovalCriteria: criteria,
		Source:           "local",
	}
}
