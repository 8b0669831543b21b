package review

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/revu/internal/models"
)

// ErrAlreadySet is returned when an overwrite-once field is written twice.
var ErrAlreadySet = errors.New("field already set")

// Stage labels recorded on the record as it moves through the workflow.
const (
	StageCreated                = "created"
	StageDetected               = "files_detected"
	StageDetectionFailed        = "detection_error"
	StageDispatched             = "agents_dispatched"
	StageCoordinationInProgress = "coordination_in_progress"
	StageCoordinationComplete   = "coordination_complete"
	StageDecisionComplete       = "decision_complete"
	StageReportComplete         = "report_complete"
	StageErrorHandled           = "error_handled"
)

// NotificationEvent records one notification attempt.
type NotificationEvent struct {
	Type      models.EventType `json:"type"`
	Delivered bool             `json:"delivered"`
	Timestamp time.Time        `json:"timestamp"`
}

// Record is the shared state of a single review. Fields are either
// overwrite-once (snapshot, slots, summary, decision, report) or
// append-union (completed tasks, task errors, notifications).
type Record struct {
	ID        string    `json:"review_id"`
	Owner     string    `json:"owner"`
	Repo      string    `json:"repo"`
	Number    int       `json:"number"`
	CreatedAt time.Time `json:"created_at"`
	Stage     string    `json:"stage"`
	Next      State     `json:"next,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	Submission models.Submission `json:"submission"`
	Files      []models.FileData `json:"files"`

	Results    models.Results `json:"results"`
	Completed  []TaskID       `json:"agents_completed"`
	TaskErrors []TaskError    `json:"task_errors,omitempty"`

	Summary        *models.Summary `json:"summary,omitempty"`
	Critical       bool            `json:"has_critical_issues"`
	CriticalReason string          `json:"critical_reason,omitempty"`
	Decision       models.Decision `json:"decision,omitempty"`
	Metrics        *models.Metrics `json:"decision_metrics,omitempty"`
	Report         *models.Report  `json:"report,omitempty"`

	Notifications []NotificationEvent `json:"notifications_sent,omitempty"`

	Error      string `json:"error,omitempty"`
	ErrorStage State  `json:"error_stage,omitempty"`
	ErrorNext  State  `json:"error_next,omitempty"`

	WorkflowComplete bool `json:"workflow_complete"`

	snapshotSet bool
	slotsSet    map[TaskID]bool
	decided     bool
}

// NewRecord creates an empty record for the given target.
func NewRecord(id, owner, repo string, number int, now time.Time) *Record {
	return &Record{
		ID:        id,
		Owner:     owner,
		Repo:      repo,
		Number:    number,
		CreatedAt: now,
		UpdatedAt: now,
		Stage:     StageCreated,
		slotsSet:  make(map[TaskID]bool),
	}
}

// Snapshot returns the read-only input handed to the analysis tasks.
func (r *Record) Snapshot() models.Snapshot {
	return models.Snapshot{
		ReviewID:   r.ID,
		Owner:      r.Owner,
		Repo:       r.Repo,
		Submission: r.Submission,
		Files:      r.Files,
	}
}

func (r *Record) setSnapshot(sub models.Submission, files []models.FileData) error {
	if r.snapshotSet {
		return fmt.Errorf("snapshot: %w", ErrAlreadySet)
	}
	r.Submission = sub
	r.Files = files
	r.snapshotSet = true
	return nil
}

func (r *Record) setSlot(s SlotResult) error {
	owner := s.Owner()
	if r.slotsSet == nil {
		r.slotsSet = make(map[TaskID]bool)
	}
	if r.slotsSet[owner] {
		return fmt.Errorf("slot %s: %w", owner, ErrAlreadySet)
	}
	s.apply(&r.Results)
	r.slotsSet[owner] = true
	return nil
}

// setSummary keeps the first summary written.
func (r *Record) setSummary(s *models.Summary) bool {
	if r.Summary != nil || s == nil {
		return false
	}
	r.Summary = s
	return true
}

func (r *Record) setDecision(o Outcome) error {
	if r.decided {
		return fmt.Errorf("decision: %w", ErrAlreadySet)
	}
	r.Decision = o.Decision
	r.Critical = o.Critical
	r.CriticalReason = o.Reason
	m := o.Metrics
	r.Metrics = &m
	r.decided = true
	return nil
}

func (r *Record) setReport(rep models.Report) error {
	if r.Report != nil {
		return fmt.Errorf("report: %w", ErrAlreadySet)
	}
	r.Report = &rep
	return nil
}

// markCompleted unions ids into the completion set.
func (r *Record) markCompleted(ids ...TaskID) {
	for _, id := range ids {
		if !r.HasCompleted(id) {
			r.Completed = append(r.Completed, id)
		}
	}
}

// HasCompleted reports whether id is in the completion set.
func (r *Record) HasCompleted(id TaskID) bool {
	for _, c := range r.Completed {
		if c == id {
			return true
		}
	}
	return false
}

// Missing lists the expected tasks not yet completed.
func (r *Record) Missing(expected []TaskID) []TaskID {
	var missing []TaskID
	for _, id := range expected {
		if !r.HasCompleted(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

func (r *Record) appendTaskErrors(errs ...TaskError) {
	r.TaskErrors = append(r.TaskErrors, errs...)
}

func (r *Record) appendNotification(ev NotificationEvent) {
	r.Notifications = append(r.Notifications, ev)
}

func (r *Record) fail(state State, err error) {
	r.Error = err.Error()
	r.ErrorStage = state
	r.ErrorNext = StateErrorHandling
}

func (r *Record) touch(stage string, next State, now time.Time) {
	r.Stage = stage
	r.Next = next
	r.UpdatedAt = now
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewReviewID returns an id of the form REV-YYYYMMDD-XXXXXXXX where the
// suffix is taken from the random part of a ULID.
func NewReviewID(t time.Time) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(t), entropy).String()
	entropyMu.Unlock()
	return fmt.Sprintf("REV-%s-%s", t.Format("20060102"), id[len(id)-8:])
}
