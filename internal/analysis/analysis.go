// Package analysis implements the five review tasks: pattern-based security
// scanning, lint and complexity scoring, simulated coverage, model-assisted
// review and documentation coverage.
package analysis

import (
	"log/slog"

	"github.com/joescharf/revu/internal/review"
)

// Tasks returns the full guarded task set. summarizer may be nil.
func Tasks(reviewer Reviewer, summarizer review.Summarizer, logger *slog.Logger) []review.Task {
	analyzers := []review.Analyzer{
		SecurityAnalyzer{},
		QualityAnalyzer{},
		CoverageAnalyzer{},
		AIReviewAnalyzer{Reviewer: reviewer, Summarizer: summarizer, Logger: logger},
		DocumentationAnalyzer{},
	}
	tasks := make([]review.Task, 0, len(analyzers))
	for _, a := range analyzers {
		tasks = append(tasks, review.Guard(a, logger))
	}
	return tasks
}
