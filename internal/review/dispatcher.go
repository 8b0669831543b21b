package review

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joescharf/revu/internal/models"
)

// Dispatcher fans a snapshot out to the fixed set of analysis tasks.
type Dispatcher struct {
	tasks  []Task
	logger *slog.Logger
}

// NewDispatcher checks that tasks covers every expected task exactly once.
func NewDispatcher(tasks []Task, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[TaskID]bool, len(tasks))
	for _, t := range tasks {
		id := t.ID()
		if !knownTask(id) {
			return nil, fmt.Errorf("unknown task %q", id)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate task %q", id)
		}
		seen[id] = true
	}
	for _, id := range ExpectedTasks() {
		if !seen[id] {
			return nil, fmt.Errorf("missing task %q", id)
		}
	}
	return &Dispatcher{tasks: tasks, logger: logger}, nil
}

// Dispatch starts every task concurrently on snap and returns the inbox
// their updates arrive on. The inbox is buffered to the task count, so no
// task blocks on delivery, and it is closed once every task has reported.
// Dispatch does not wait for the tasks.
func (d *Dispatcher) Dispatch(ctx context.Context, snap models.Snapshot) <-chan Update {
	inbox := make(chan Update, len(d.tasks))

	var wg sync.WaitGroup
	for _, t := range d.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			inbox <- d.run(ctx, t, snap)
		}(t)
	}

	go func() {
		wg.Wait()
		close(inbox)
	}()

	d.logger.Debug("tasks dispatched", "review_id", snap.ReviewID, "tasks", len(d.tasks), "files", len(snap.Files))
	return inbox
}

// run executes t, covering tasks that were not built with Guard.
func (d *Dispatcher) run(ctx context.Context, t Task, snap models.Snapshot) (u Update) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("unguarded task panicked", "task", string(t.ID()), "panic", r)
			u = failedUpdate(t.ID(), KindPanic, fmt.Sprint(r), nil)
		}
	}()
	return t.Run(ctx, snap)
}
