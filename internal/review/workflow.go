package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/report"
)

// ErrNoFiles is raised by detection when the submission has nothing to review.
var ErrNoFiles = errors.New("no reviewable files found")

// State is a node of the review state machine.
type State string

const (
	StateDetecting     State = "detecting"
	StateDispatching   State = "dispatching"
	StateCoordinating  State = "coordinating"
	StateDeciding      State = "deciding"
	StateReporting     State = "reporting"
	StateErrorHandling State = "error_handling"
	StateTerminal      State = "terminal"
)

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	StateDetecting:     {StateDispatching, StateErrorHandling},
	StateDispatching:   {StateCoordinating, StateErrorHandling},
	StateCoordinating:  {StateCoordinating, StateDeciding, StateErrorHandling},
	StateDeciding:      {StateReporting, StateErrorHandling},
	StateReporting:     {StateTerminal, StateErrorHandling},
	StateErrorHandling: {StateTerminal},
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Detector resolves the submission and its reviewable files.
type Detector interface {
	Detect(ctx context.Context, owner, repo string, number int) (models.Submission, []models.FileData, error)
}

// Reporter turns a decided review into its final report.
type Reporter interface {
	Build(ctx context.Context, in report.Input) (models.Report, error)
}

// Notifier delivers review events. Notify reports delivery and never fails
// the review.
type Notifier interface {
	Notify(ctx context.Context, event models.EventType, n models.Notification) bool
}

// Config wires the collaborators of a Workflow.
type Config struct {
	Detector   Detector
	Tasks      []Task
	Summarizer Summarizer
	Reporter   Reporter
	Notifier   Notifier
	Thresholds models.Thresholds
	Logger     *slog.Logger
}

// Workflow runs reviews through the state machine.
type Workflow struct {
	detector   Detector
	dispatcher *Dispatcher
	summarizer Summarizer
	reporter   Reporter
	notifier   Notifier
	thresholds models.Thresholds
	logger     *slog.Logger
	now        func() time.Time
}

// New validates cfg and builds a Workflow. Reporter defaults to the
// standard report builder and Notifier to a no-op.
func New(cfg Config) (*Workflow, error) {
	if cfg.Detector == nil {
		return nil, errors.New("workflow requires a detector")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d, err := NewDispatcher(cfg.Tasks, logger)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	w := &Workflow{
		detector:   cfg.Detector,
		dispatcher: d,
		summarizer: cfg.Summarizer,
		reporter:   cfg.Reporter,
		notifier:   cfg.Notifier,
		thresholds: cfg.Thresholds,
		logger:     logger,
		now:        time.Now,
	}
	if w.reporter == nil {
		w.reporter = report.Builder{}
	}
	if w.notifier == nil {
		w.notifier = nopNotifier{}
	}
	return w, nil
}

// Request names the submission to review.
type Request struct {
	Owner  string
	Repo   string
	Number int
}

// Result is the outcome of one run.
type Result struct {
	Record *Record `json:"record"`
	Trace  []State `json:"trace"`
}

// Err returns the error that routed the run to error handling, if any.
func (r *Result) Err() error {
	if r.Record.Error == "" {
		return nil
	}
	return fmt.Errorf("%s: %s", r.Record.ErrorStage, r.Record.Error)
}

// run carries the per-review state of the machine.
type run struct {
	w      *Workflow
	rec    *Record
	state  State
	trace  []State
	logger *slog.Logger

	inbox <-chan Update
	coord *Coordinator
}

// Run executes one review to completion. It never panics and never
// returns early; failures are routed through error handling and recorded
// on the result.
func (w *Workflow) Run(ctx context.Context, req Request) *Result {
	now := w.now()
	rec := NewRecord(NewReviewID(now), req.Owner, req.Repo, req.Number, now)
	r := &run{
		w:      w,
		rec:    rec,
		state:  StateDetecting,
		trace:  []State{StateDetecting},
		logger: w.logger.With("review_id", rec.ID),
	}
	r.logger.Info("review started", "owner", req.Owner, "repo", req.Repo, "number", req.Number)

	for r.state != StateTerminal {
		r.transition(r.step(ctx))
	}

	r.logger.Info("review finished", "stage", rec.Stage, "decision", string(rec.Decision))
	return &Result{Record: rec, Trace: r.trace}
}

// transition moves to next, rerouting illegal moves to error handling.
func (r *run) transition(next State) {
	if !CanTransition(r.state, next) {
		err := fmt.Errorf("illegal transition %s -> %s", r.state, next)
		r.logger.Error("workflow bug", "error", err)
		if r.state == StateErrorHandling {
			next = StateTerminal
		} else {
			r.rec.fail(r.state, err)
			next = StateErrorHandling
		}
	}
	r.logger.Debug("transition", "state", string(r.state), "next", string(next))
	r.state = next
	r.trace = append(r.trace, next)
}

func (r *run) step(ctx context.Context) State {
	switch r.state {
	case StateDetecting:
		return r.detect(ctx)
	case StateDispatching:
		return r.dispatch(ctx)
	case StateCoordinating:
		return r.coordinate(ctx)
	case StateDeciding:
		return r.guarded(r.decide)
	case StateReporting:
		return r.guarded(func() State { return r.report(ctx) })
	case StateErrorHandling:
		return r.handleError(ctx)
	}
	r.rec.fail(r.state, fmt.Errorf("no handler for state %s", r.state))
	return StateErrorHandling
}

// guarded converts a panic in a stage into an error route.
func (r *run) guarded(stage func() State) (next State) {
	from := r.state
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("stage panicked", "state", string(from), "panic", p)
			r.rec.fail(from, fmt.Errorf("panic in %s: %v", from, p))
			next = StateErrorHandling
		}
	}()
	return stage()
}

func (r *run) detect(ctx context.Context) State {
	sub, files, err := r.w.detector.Detect(ctx, r.rec.Owner, r.rec.Repo, r.rec.Number)
	if err == nil && len(files) == 0 {
		err = ErrNoFiles
	}
	if err != nil {
		r.logger.Error("detection failed", "error", err)
		r.rec.fail(StateDetecting, fmt.Errorf("detect: %w", err))
		r.rec.touch(StageDetectionFailed, StateErrorHandling, r.w.now())
		return StateErrorHandling
	}
	if err := r.rec.setSnapshot(sub, files); err != nil {
		r.rec.fail(StateDetecting, err)
		return StateErrorHandling
	}
	r.rec.touch(StageDetected, StateDispatching, r.w.now())
	r.logger.Info("files detected", "files", len(files))

	r.notify(ctx, models.EventReviewStarted, r.notification())
	return StateDispatching
}

func (r *run) dispatch(ctx context.Context) State {
	r.coord = NewCoordinator(r.rec, r.w.summarizer, r.logger)
	if r.w.thresholds != (models.Thresholds{}) {
		r.coord.Thresholds = r.w.thresholds
	}
	r.inbox = r.w.dispatcher.Dispatch(ctx, r.rec.Snapshot())
	r.rec.touch(StageDispatched, StateCoordinating, r.w.now())
	return StateCoordinating
}

// coordinate consumes one update per step.
func (r *run) coordinate(ctx context.Context) State {
	select {
	case u, ok := <-r.inbox:
		if !ok {
			r.rec.fail(StateCoordinating, fmt.Errorf("inbox closed before completion, missing %v", r.rec.Missing(ExpectedTasks())))
			return StateErrorHandling
		}
		return r.guarded(func() State {
			progress, err := r.coord.Merge(ctx, u)
			if err != nil {
				r.logger.Error("merge failed", "task", string(u.Task), "error", err)
				r.rec.fail(StateCoordinating, err)
				return StateErrorHandling
			}
			if progress == Advance {
				return StateDeciding
			}
			return StateCoordinating
		})
	case <-ctx.Done():
		r.rec.fail(StateCoordinating, fmt.Errorf("coordination interrupted: %w", ctx.Err()))
		return StateErrorHandling
	}
}

func (r *run) decide() State {
	out := Decide(r.rec.Results, r.w.thresholds)
	if err := r.rec.setDecision(out); err != nil {
		r.rec.fail(StateDeciding, err)
		return StateErrorHandling
	}
	r.rec.touch(StageDecisionComplete, StateReporting, r.w.now())
	r.logger.Info("decision made", "decision", string(out.Decision), "critical", out.Critical, "reason", out.Reason)
	return StateReporting
}

func (r *run) report(ctx context.Context) State {
	rep, err := r.w.reporter.Build(ctx, r.reportInput())
	if err == nil {
		err = r.rec.setReport(rep)
	}
	if err != nil {
		r.logger.Error("report failed", "error", err)
		r.rec.fail(StateReporting, fmt.Errorf("report: %w", err))
		return StateErrorHandling
	}

	n := r.notification()
	n.Report = r.rec.Report
	n.Critical = r.rec.Critical
	r.notify(ctx, models.EventFinalReport, n)

	r.rec.WorkflowComplete = true
	r.rec.touch(StageReportComplete, StateTerminal, r.w.now())
	return StateTerminal
}

// handleError emits the single error notification and closes the record.
func (r *run) handleError(ctx context.Context) State {
	msg := r.rec.Error
	if msg == "" {
		msg = "unknown error"
	}
	r.logger.Error("review failed", "error", msg, "stage", string(r.rec.ErrorStage))

	n := r.notification()
	n.Error = msg
	r.notify(ctx, models.EventError, n)

	r.rec.WorkflowComplete = true
	r.rec.touch(StageErrorHandled, StateTerminal, r.w.now())
	return StateTerminal
}

func (r *run) notify(ctx context.Context, ev models.EventType, n models.Notification) {
	delivered := false
	func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Warn("notifier panicked", "event", string(ev), "panic", p)
			}
		}()
		delivered = r.w.notifier.Notify(ctx, ev, n)
	}()
	if !delivered {
		r.logger.Warn("notification not delivered", "event", string(ev))
	}
	r.rec.appendNotification(NotificationEvent{Type: ev, Delivered: delivered, Timestamp: r.w.now()})
}

func (r *run) notification() models.Notification {
	return models.Notification{
		ReviewID:   r.rec.ID,
		Owner:      r.rec.Owner,
		Repo:       r.rec.Repo,
		Submission: r.rec.Submission,
		FilesCount: len(r.rec.Files),
	}
}

func (r *run) reportInput() report.Input {
	return r.rec.ReportInput(r.w.thresholds)
}

// ReportInput assembles the report builder input from a decided record.
func (rec *Record) ReportInput(th models.Thresholds) report.Input {
	in := report.Input{
		ReviewID:   rec.ID,
		Owner:      rec.Owner,
		Repo:       rec.Repo,
		Submission: rec.Submission,
		Decision:   rec.Decision,
		Critical:   rec.Critical,
		Reason:     rec.CriticalReason,
		Thresholds: th,
		Results:    rec.Results,
		Summary:    rec.Summary,
	}
	if rec.Metrics != nil {
		in.Metrics = *rec.Metrics
	}
	return in
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.EventType, models.Notification) bool { return true }
