package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joescharf/revu/internal/llm"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

// Reviewer asks a model to review one file.
type Reviewer interface {
	ReviewCode(ctx context.Context, filename, content string, hints []string) (models.AIReviewResult, error)
}

// AIReviewAnalyzer sends every file with content to a Reviewer. A file
// whose review fails gets the fallback review instead of failing the task.
// When Summarizer is set the task also produces the consolidated summary.
type AIReviewAnalyzer struct {
	Reviewer   Reviewer
	Summarizer review.Summarizer
	Logger     *slog.Logger
}

func (AIReviewAnalyzer) ID() review.TaskID { return review.TaskAIReview }

func (a AIReviewAnalyzer) Analyze(ctx context.Context, snap models.Snapshot) (review.SlotResult, error) {
	if a.Reviewer == nil {
		return nil, fmt.Errorf("no reviewer configured")
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var slot review.AIReviewSlot
	for _, f := range snap.Files {
		if f.Content == "" {
			continue
		}
		res, err := a.Reviewer.ReviewCode(ctx, f.Filename, f.Content, reviewHints(snap.Submission, f))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("ai review failed, using fallback", "file", f.Filename, "error", err)
			res = llm.FallbackReview(err)
		}
		res.Filename = f.Filename
		slot.Results = append(slot.Results, res)
	}

	if a.Summarizer != nil {
		sum, err := a.Summarizer.Summarize(ctx, snap.Submission, models.Results{AIReview: slot.Results})
		if err != nil {
			logger.Warn("inline summary failed", "error", err)
		} else {
			slot.Summary = &sum
		}
	}
	return slot, nil
}

// reviewHints gives the model the local static findings as context.
func reviewHints(sub models.Submission, f models.FileData) []string {
	var hints []string
	if sub.Title != "" {
		hints = append(hints, "Submission: "+sub.Title)
	}
	sec := ScanSecurity(f)
	hints = append(hints, fmt.Sprintf("Static security score %.1f/10 with %d finding(s)", sec.Score, len(sec.Findings)))
	o, err := ParseOutline(f.Filename, f.Content)
	hints = append(hints, fmt.Sprintf("Lint score %.1f/10", LintScore(Lint(f.Filename, f.Content, o, err))))
	return hints
}
