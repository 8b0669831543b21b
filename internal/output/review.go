package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

// ReviewSummary prints the decision, the metrics against their thresholds
// and any task errors of a finished review.
func (u *UI) ReviewSummary(res *review.Result, th models.Thresholds) {
	rec := res.Record
	target := "local files"
	if rec.Owner != "" {
		target = fmt.Sprintf("%s/%s#%d", rec.Owner, rec.Repo, rec.Number)
	}

	if err := res.Err(); err != nil {
		u.Error("Review of %s failed at %s", target, rec.ErrorStage)
		u.Error("%s", rec.Error)
		return
	}

	fmt.Fprintf(u.Out, "%s  %s (%d files)\n", Cyan("Review"), target, len(rec.Files))
	fmt.Fprintf(u.Out, "%s  %s\n", Cyan("Decision"), DecisionColor(rec.Decision))
	if rec.Critical && rec.CriticalReason != "" {
		fmt.Fprintf(u.Out, "%s  %s\n", Cyan("Reason"), rec.CriticalReason)
	}
	fmt.Fprintln(u.Out)

	if rec.Metrics != nil {
		m := rec.Metrics
		table := u.Table([]string{"METRIC", "VALUE", "THRESHOLD"})
		_ = table.Append([]string{"Security", ThresholdColor("%.2f", m.SecurityScore, th.Security), fmt.Sprintf("%.1f", th.Security)})
		_ = table.Append([]string{"Quality", ThresholdColor("%.2f", m.QualityScore, th.Quality), fmt.Sprintf("%.1f", th.Quality)})
		_ = table.Append([]string{"Coverage", ThresholdColor("%.1f%%", m.Coverage, th.Coverage), fmt.Sprintf("%.1f%%", th.Coverage)})
		_ = table.Append([]string{"AI score", ThresholdColor("%.2f", m.AIScore, th.AIScore), fmt.Sprintf("%.2f", th.AIScore)})
		_ = table.Append([]string{"Documentation", ThresholdColor("%.1f%%", m.DocumentationCoverage, th.Documentation), fmt.Sprintf("%.1f%%", th.Documentation)})
		high := fmt.Sprintf("%d", m.HighSeverityIssues)
		if m.HighSeverityIssues > 0 {
			high = Red(high)
		}
		_ = table.Append([]string{"High severity", high, "0"})
		_ = table.Render()
		fmt.Fprintln(u.Out)
	}

	for _, te := range rec.TaskErrors {
		u.Warning("%s %s error: %s", te.Task, te.Kind, te.Message)
	}
	for _, n := range rec.Notifications {
		u.VerboseLog("notification %s delivered=%t", n.Type, n.Delivered)
	}
}

// Markdown writes md to Out, rendered with glamour when Out is a terminal.
func (u *UI) Markdown(md string) error {
	if !IsTerminal(u.Out) {
		_, err := fmt.Fprint(u.Out, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = fmt.Fprint(u.Out, strings.TrimLeft(out, "\n"))
	return err
}
