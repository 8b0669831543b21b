package review

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/joescharf/revu/internal/models"
)

// TaskID identifies one of the analysis tasks.
type TaskID string

const (
	TaskSecurity      TaskID = "security"
	TaskQuality       TaskID = "quality"
	TaskCoverage      TaskID = "coverage"
	TaskAIReview      TaskID = "ai_review"
	TaskDocumentation TaskID = "documentation"
)

// ExpectedTasks returns the task set every review waits for, in canonical order.
func ExpectedTasks() []TaskID {
	return []TaskID{TaskSecurity, TaskQuality, TaskCoverage, TaskAIReview, TaskDocumentation}
}

func knownTask(id TaskID) bool {
	for _, t := range ExpectedTasks() {
		if t == id {
			return true
		}
	}
	return false
}

// Task error kinds.
const (
	KindError   = "error"
	KindPanic   = "panic"
	KindSummary = "summary"
)

// TaskError is a diagnostic note recorded when a task (or the summary
// step) fails internally.
type TaskError struct {
	Task      TaskID            `json:"task"`
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Update is the partial result a task hands to the coordinator.
type Update struct {
	Task      TaskID
	Slot      SlotResult
	Errors    []TaskError
	Summary   *models.Summary
	Completed []TaskID
}

// Task is one unit of the fan-out. Run must not panic past its own
// boundary and must always return an Update naming itself as completed.
type Task interface {
	ID() TaskID
	Run(ctx context.Context, snap models.Snapshot) Update
}

// Analyzer is the analysis collaborator behind a Task.
type Analyzer interface {
	ID() TaskID
	Analyze(ctx context.Context, snap models.Snapshot) (SlotResult, error)
}

// Guard adapts an Analyzer into a Task that converts errors and panics
// into a TaskError and an empty slot.
func Guard(a Analyzer, logger *slog.Logger) Task {
	if logger == nil {
		logger = slog.Default()
	}
	return &guarded{analyzer: a, logger: logger.With("task", string(a.ID()))}
}

type guarded struct {
	analyzer Analyzer
	logger   *slog.Logger
}

func (g *guarded) ID() TaskID { return g.analyzer.ID() }

func (g *guarded) Run(ctx context.Context, snap models.Snapshot) (u Update) {
	id := g.analyzer.ID()
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("task panicked", "panic", r)
			u = failedUpdate(id, KindPanic, fmt.Sprint(r), map[string]string{"stack": string(debug.Stack())})
		}
	}()

	start := time.Now()
	slot, err := g.analyzer.Analyze(ctx, snap)
	if err != nil {
		g.logger.Warn("task failed", "error", err)
		return failedUpdate(id, KindError, err.Error(), map[string]string{"files": fmt.Sprint(len(snap.Files))})
	}
	if slot == nil {
		slot = EmptySlot(id)
	}
	g.logger.Debug("task finished", "elapsed", time.Since(start))

	u = Update{Task: id, Slot: slot, Completed: []TaskID{id}}
	if c, ok := slot.(summaryCarrier); ok {
		u.Summary = c.carriedSummary()
	}
	return u
}

// failedUpdate is the update of a task that could not produce a result.
func failedUpdate(id TaskID, kind, msg string, ctx map[string]string) Update {
	return Update{
		Task: id,
		Slot: EmptySlot(id),
		Errors: []TaskError{{
			Task:      id,
			Kind:      kind,
			Message:   msg,
			Context:   ctx,
			Timestamp: time.Now(),
		}},
		Completed: []TaskID{id},
	}
}
