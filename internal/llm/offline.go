package llm

import (
	"context"
	"strings"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

// Offline is a deterministic stand-in for Client. It never touches the
// network and derives its review from simple properties of the file.
type Offline struct{}

// ReviewCode scores content from 0.9 down, 0.05 per TODO/FIXME marker and
// 0.1 for files over 300 lines, with a floor of 0.5.
func (Offline) ReviewCode(ctx context.Context, filename, content string, hints []string) (models.AIReviewResult, error) {
	if err := ctx.Err(); err != nil {
		return models.AIReviewResult{}, err
	}
	res := models.AIReviewResult{
		Filename:   filename,
		Confidence: 0.5,
		Note:       "offline review",
	}

	score := 0.9
	markers := strings.Count(content, "TODO") + strings.Count(content, "FIXME")
	if markers > 0 {
		score -= 0.05 * float64(markers)
		res.Issues = append(res.Issues, "Unresolved TODO/FIXME markers")
		res.Recommendations = append(res.Recommendations, "Resolve or track outstanding TODO/FIXME markers")
	}
	if strings.Count(content, "\n") > 300 {
		score -= 0.1
		res.Issues = append(res.Issues, "File is large")
		res.RefactoringSuggestions = append(res.RefactoringSuggestions, "Split the file into smaller units")
	}
	if score < 0.5 {
		score = 0.5
	}
	res.OverallScore = score
	if len(res.Issues) == 0 {
		res.Strengths = []string{"No obvious issues found"}
	}
	return res, nil
}

// Summarize returns the locally built summary.
func (Offline) Summarize(ctx context.Context, sub models.Submission, res models.Results) (models.Summary, error) {
	if err := ctx.Err(); err != nil {
		return models.Summary{}, err
	}
	s := review.LocalSummary(sub, res)
	s.Source = "offline"
	return s, nil
}
