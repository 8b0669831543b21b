package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joescharf/revu/internal/models"
)

// Markdown renders the report as a markdown document.
func Markdown(in Input, rep models.Report) string {
	var b strings.Builder

	title := in.Submission.Title
	if title == "" {
		title = "Code review"
	}
	if in.Submission.Number > 0 {
		fmt.Fprintf(&b, "# Review %s: %s/%s #%d\n\n", in.ReviewID, in.Owner, in.Repo, in.Submission.Number)
	} else {
		fmt.Fprintf(&b, "# Review %s\n\n", in.ReviewID)
	}
	fmt.Fprintf(&b, "**%s**", title)
	if in.Submission.Author != "" {
		fmt.Fprintf(&b, " by %s", in.Submission.Author)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Decision: %s\n\n", rep.Recommendation)
	fmt.Fprintf(&b, "Priority: **%s**\n\n", rep.Priority)

	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value | Threshold |\n|---|---|---|\n")
	m, th := rep.Metrics, in.Thresholds
	fmt.Fprintf(&b, "| Security score | %.2f/10 | %.1f |\n", m.SecurityScore, th.Security)
	fmt.Fprintf(&b, "| High severity findings | %d | 0 |\n", m.HighSeverityIssues)
	fmt.Fprintf(&b, "| Quality score | %.2f/10 | %.1f |\n", m.QualityScore, th.Quality)
	fmt.Fprintf(&b, "| Test coverage | %.1f%% | %.1f%% |\n", m.Coverage, th.Coverage)
	fmt.Fprintf(&b, "| AI review score | %.2f/1 | %.2f |\n", m.AIScore, th.AIScore)
	fmt.Fprintf(&b, "| Documentation | %.1f%% | %.1f%% |\n\n", m.DocumentationCoverage, th.Documentation)

	writeList(&b, "Key findings", rep.KeyFindings)
	writeList(&b, "Action items", rep.ActionItems)
	writeList(&b, "Approval criteria", rep.ApprovalCriteria)

	if len(rep.Highlights) > 0 {
		keys := make([]string, 0, len(rep.Highlights))
		for k := range rep.Highlights {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("## Highlights\n\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s**: %s\n", k, rep.Highlights[k])
		}
		b.WriteString("\n")
	}

	if s := in.Summary; s != nil {
		b.WriteString("## Summary\n\n")
		fmt.Fprintf(&b, "Recommendation: %s (priority %s)\n\n", s.Recommendation, s.Priority)
		writeList(&b, "Summary findings", s.KeyFindings)
		if s.Security != nil {
			fmt.Fprintf(&b, "Security: %d finding(s), %d high severity, %s\n\n",
				s.Security.TotalFindings, s.Security.HighSeverity, s.Security.Recommendation)
		}
		if s.Documentation != nil {
			fmt.Fprintf(&b, "Documentation: %.1f%% average coverage, %s\n\n",
				s.Documentation.AverageCoverage, s.Documentation.Recommendation)
		}
	}

	writeFindings(&b, in.Results.Security)
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func writeFindings(b *strings.Builder, sec []models.SecurityResult) {
	var rows []string
	for _, s := range sec {
		for _, f := range s.Findings {
			marker := ""
			if f.OnChangedLine {
				marker = " (changed)"
			}
			rows = append(rows, fmt.Sprintf("| %s:%d%s | %s | %s |", s.Filename, f.Line, marker, f.Severity, f.Description))
		}
	}
	if len(rows) == 0 {
		return
	}
	b.WriteString("## Security findings\n\n| Location | Severity | Description |\n|---|---|---|\n")
	b.WriteString(strings.Join(rows, "\n"))
	b.WriteString("\n")
}
