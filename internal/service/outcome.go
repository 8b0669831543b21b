package service

import (
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

// Outcome is the compact result returned by the API and MCP surfaces.
type Outcome struct {
	ReviewID       string             `json:"review_id"`
	Decision       models.Decision    `json:"decision,omitempty"`
	Critical       bool               `json:"critical"`
	CriticalReason string             `json:"critical_reason,omitempty"`
	Files          []string           `json:"files"`
	Metrics        *models.Metrics    `json:"metrics,omitempty"`
	Report         *models.Report     `json:"report,omitempty"`
	Summary        *models.Summary    `json:"summary,omitempty"`
	TaskErrors     []review.TaskError `json:"task_errors,omitempty"`
	Trace          []review.State     `json:"trace"`
	Error          string             `json:"error,omitempty"`
}

// NewOutcome condenses res.
func NewOutcome(res *review.Result) Outcome {
	rec := res.Record
	o := Outcome{
		ReviewID:       rec.ID,
		Decision:       rec.Decision,
		Critical:       rec.Critical,
		CriticalReason: rec.CriticalReason,
		Files:          make([]string, 0, len(rec.Files)),
		Metrics:        rec.Metrics,
		Report:         rec.Report,
		Summary:        rec.Summary,
		TaskErrors:     rec.TaskErrors,
		Trace:          res.Trace,
	}
	for _, f := range rec.Files {
		o.Files = append(o.Files, f.Filename)
	}
	if err := res.Err(); err != nil {
		o.Error = err.Error()
	}
	return o
}
