package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/revu/internal/models"
)

// ErrInvalidUpdate marks an update the coordinator refuses to merge.
var ErrInvalidUpdate = errors.New("invalid update")

// Summarizer produces the consolidated summary once every task has reported.
type Summarizer interface {
	Summarize(ctx context.Context, sub models.Submission, res models.Results) (models.Summary, error)
}

// Progress is what a merge tells the workflow to do next.
type Progress int

const (
	// Waiting means more tasks are still expected.
	Waiting Progress = iota
	// Advance is returned exactly once, by the merge that completes the set.
	Advance
	// Ignored means the update arrived after the coordinator advanced.
	Ignored
)

func (p Progress) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case Advance:
		return "advance"
	case Ignored:
		return "ignored"
	}
	return fmt.Sprintf("progress(%d)", int(p))
}

// Coordinator folds task updates into a record and gates downstream
// progress on the completion set.
type Coordinator struct {
	mu         sync.Mutex
	rec        *Record
	expected   []TaskID
	summarizer Summarizer
	logger     *slog.Logger
	// Thresholds judge the summary overviews. Defaults to DefaultThresholds.
	Thresholds models.Thresholds
	now        func() time.Time
	advanced   bool
}

// NewCoordinator returns a coordinator for rec. summarizer may be nil, in
// which case the summary is built locally.
func NewCoordinator(rec *Record, summarizer Summarizer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		rec:        rec,
		expected:   ExpectedTasks(),
		summarizer: summarizer,
		logger:     logger,
		Thresholds: models.DefaultThresholds(),
		now:        time.Now,
	}
}

// Merge applies u and reports whether the workflow may advance. Merge and
// gate check happen under one lock, so of any number of concurrent calls
// exactly one returns Advance, and only once every expected task has
// reported. A returned error is fatal for the review.
func (c *Coordinator) Merge(ctx context.Context, u Update) (Progress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.advanced {
		c.logger.Warn("update after coordination complete ignored", "task", string(u.Task))
		return Ignored, nil
	}

	if err := validate(u); err != nil {
		return Waiting, err
	}

	if err := c.rec.setSlot(u.Slot); err != nil {
		return Waiting, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	c.rec.appendTaskErrors(u.Errors...)
	c.rec.setSummary(u.Summary)
	c.rec.markCompleted(u.Completed...)

	if missing := c.rec.Missing(c.expected); len(missing) > 0 {
		c.logger.Info("waiting for tasks", "task", string(u.Task), "missing", missing)
		c.rec.touch(StageCoordinationInProgress, StateCoordinating, c.now())
		return Waiting, nil
	}

	c.advanced = true
	c.consolidate(ctx)
	c.rec.touch(StageCoordinationComplete, StateDeciding, c.now())
	c.logger.Info("all tasks completed", "completed", c.rec.Completed)
	return Advance, nil
}

// Advanced reports whether the completion gate has opened.
func (c *Coordinator) Advanced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advanced
}

func validate(u Update) error {
	if !knownTask(u.Task) {
		return fmt.Errorf("%w: unknown task %q", ErrInvalidUpdate, u.Task)
	}
	if u.Slot == nil {
		return fmt.Errorf("%w: task %s delivered no slot", ErrInvalidUpdate, u.Task)
	}
	if owner := u.Slot.Owner(); owner != u.Task {
		return fmt.Errorf("%w: task %s wrote slot owned by %s", ErrInvalidUpdate, u.Task, owner)
	}
	for _, id := range u.Completed {
		if !knownTask(id) {
			return fmt.Errorf("%w: task %s marked unknown task %q complete", ErrInvalidUpdate, u.Task, id)
		}
	}
	return nil
}

// consolidate produces the summary once all results are in. A failing
// summarizer falls back to the local summary and leaves a diagnostic note.
func (c *Coordinator) consolidate(ctx context.Context) {
	if c.rec.Summary == nil {
		var sum models.Summary
		var err error
		if c.summarizer != nil {
			sum, err = c.summarizer.Summarize(ctx, c.rec.Submission, c.rec.Results)
		}
		if c.summarizer == nil || err != nil {
			if err != nil {
				c.logger.Warn("summary generation failed, using local summary", "error", err)
				c.rec.appendTaskErrors(TaskError{
					Task:      TaskID("coordinator"),
					Kind:      KindSummary,
					Message:   err.Error(),
					Timestamp: c.now(),
				})
			}
			sum = LocalSummary(c.rec.Submission, c.rec.Results)
		}
		c.rec.setSummary(&sum)
	}
	c.rec.Summary.Enrich(c.rec.Results, c.Thresholds)
}
