package models

import "strings"

// Decision is the routing outcome of a review.
type Decision string

const (
	DecisionCriticalEscalation  Decision = "critical_escalation"
	DecisionHumanReview         Decision = "human_review"
	DecisionDocumentationReview Decision = "documentation_review"
	DecisionAutoApprove         Decision = "auto_approve"
)

// Label renders the decision for humans, e.g. "HUMAN REVIEW".
func (d Decision) Label() string {
	return strings.ToUpper(strings.ReplaceAll(string(d), "_", " "))
}

// Thresholds are inclusive lower bounds for each averaged metric.
type Thresholds struct {
	Quality       float64 `json:"quality" yaml:"quality"`
	Coverage      float64 `json:"coverage" yaml:"coverage"`
	AIScore       float64 `json:"ai_score" yaml:"ai_score"`
	Security      float64 `json:"security" yaml:"security"`
	Documentation float64 `json:"documentation" yaml:"documentation"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Quality:       7.0,
		Coverage:      80.0,
		AIScore:       0.8,
		Security:      8.0,
		Documentation: 70.0,
	}
}

// Metrics is the snapshot of averaged scores a decision was made on.
type Metrics struct {
	SecurityScore         float64 `json:"security_score"`
	QualityScore          float64 `json:"quality_score"`
	Coverage              float64 `json:"coverage"`
	AIScore               float64 `json:"ai_score"`
	DocumentationCoverage float64 `json:"documentation_coverage"`
	HighSeverityIssues    int     `json:"high_severity_issues"`
}

// Summary is the consolidated narrative over all task results.
type Summary struct {
	Recommendation   string                 `json:"recommendation"`
	Priority         string                 `json:"priority"`
	KeyFindings      []string               `json:"key_findings"`
	ActionItems      []string               `json:"action_items"`
	ApprovalCriteria []string               `json:"approval_criteria"`
	Security         *SecurityOverview      `json:"security_analysis,omitempty"`
	Documentation    *DocumentationOverview `json:"documentation_analysis,omitempty"`
	Source           string                 `json:"source"`
}

// SecurityOverview condenses the security slot for the summary.
type SecurityOverview struct {
	TotalFindings  int    `json:"total_vulnerabilities"`
	HighSeverity   int    `json:"high_severity_count"`
	Recommendation string `json:"security_recommendation"`
}

// DocumentationOverview condenses the documentation slot for the summary.
type DocumentationOverview struct {
	AverageCoverage float64 `json:"average_coverage"`
	Recommendation  string  `json:"documentation_recommendation"`
}

// Enrich attaches the security and documentation overviews derived from
// res, when those slots are non-empty. Documentation is judged against
// th.Documentation.
func (s *Summary) Enrich(res Results, th Thresholds) {
	if len(res.Security) > 0 {
		total, high := res.FindingCount(), res.HighSeverityCount()
		rec := "APPROVED"
		switch {
		case high > 0:
			rec = "CRITICAL"
		case total > 0:
			rec = "REVIEW"
		}
		s.Security = &SecurityOverview{TotalFindings: total, HighSeverity: high, Recommendation: rec}
	}
	if len(res.Documentation) > 0 {
		avg := res.Means().DocumentationCoverage
		rec := "GOOD"
		if avg < th.Documentation {
			rec = "NEEDS_IMPROVEMENT"
		}
		s.Documentation = &DocumentationOverview{AverageCoverage: avg, Recommendation: rec}
	}
}

// Report is the final, human-facing outcome of a review.
type Report struct {
	Decision         Decision          `json:"decision"`
	Recommendation   string            `json:"recommendation"`
	Priority         string            `json:"priority"`
	Metrics          Metrics           `json:"metrics"`
	KeyFindings      []string          `json:"key_findings"`
	ActionItems      []string          `json:"action_items"`
	ApprovalCriteria []string          `json:"approval_criteria"`
	Highlights       map[string]string `json:"highlights,omitempty"`
}

// EventType names a notification sent during a review.
type EventType string

const (
	EventReviewStarted EventType = "review_started"
	EventFinalReport   EventType = "final_report"
	EventError         EventType = "error_notification"
)

// Notification is the payload handed to notifiers.
type Notification struct {
	ReviewID   string     `json:"review_id"`
	Owner      string     `json:"owner"`
	Repo       string     `json:"repo"`
	Submission Submission `json:"submission"`
	FilesCount int        `json:"files_count"`
	Report     *Report    `json:"report,omitempty"`
	Critical   bool       `json:"critical"`
	Error      string     `json:"error,omitempty"`
}
