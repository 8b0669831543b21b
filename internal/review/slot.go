package review

import "github.com/joescharf/revu/internal/models"

// SlotResult is a task's result for its own slot of the record. The set
// of implementations is closed: one type per task, all in this package.
type SlotResult interface {
	// Owner names the task allowed to write this slot.
	Owner() TaskID
	apply(res *models.Results)
}

type summaryCarrier interface {
	carriedSummary() *models.Summary
}

// SecuritySlot holds the per-file security scans.
type SecuritySlot struct {
	Results []models.SecurityResult
}

func (SecuritySlot) Owner() TaskID               { return TaskSecurity }
func (s SecuritySlot) apply(res *models.Results) { res.Security = s.Results }

// QualitySlot holds the per-file quality analyses.
type QualitySlot struct {
	Results []models.QualityResult
}

func (QualitySlot) Owner() TaskID               { return TaskQuality }
func (s QualitySlot) apply(res *models.Results) { res.Quality = s.Results }

// CoverageSlot holds the per-file coverage estimates and the missing tests list.
type CoverageSlot struct {
	Results      []models.CoverageResult
	MissingTests []models.MissingTest
}

func (CoverageSlot) Owner() TaskID { return TaskCoverage }
func (s CoverageSlot) apply(res *models.Results) {
	res.Coverage = s.Results
	res.MissingTests = s.MissingTests
}

// AIReviewSlot holds the per-file model reviews. Summary is set when the
// reviewer also produced a consolidated summary.
type AIReviewSlot struct {
	Results []models.AIReviewResult
	Summary *models.Summary
}

func (AIReviewSlot) Owner() TaskID                     { return TaskAIReview }
func (s AIReviewSlot) apply(res *models.Results)       { res.AIReview = s.Results }
func (s AIReviewSlot) carriedSummary() *models.Summary { return s.Summary }

// DocumentationSlot holds the per-file documentation analyses.
type DocumentationSlot struct {
	Results []models.DocumentationResult
}

func (DocumentationSlot) Owner() TaskID               { return TaskDocumentation }
func (s DocumentationSlot) apply(res *models.Results) { res.Documentation = s.Results }

// EmptySlot returns the valid, empty result for id. Unknown ids yield nil.
func EmptySlot(id TaskID) SlotResult {
	switch id {
	case TaskSecurity:
		return SecuritySlot{}
	case TaskQuality:
		return QualitySlot{}
	case TaskCoverage:
		return CoverageSlot{}
	case TaskAIReview:
		return AIReviewSlot{}
	case TaskDocumentation:
		return DocumentationSlot{}
	}
	return nil
}
