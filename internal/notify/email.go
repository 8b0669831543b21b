package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/joescharf/revu/internal/models"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	From     string
	Password string
	To       string // comma separated
	Host     string
	Port     int
}

// Complete reports whether every credential needed to send is present.
func (c EmailConfig) Complete() bool {
	return c.From != "" && c.Password != "" && c.To != ""
}

func (c EmailConfig) recipients() []string {
	var out []string
	for _, r := range strings.Split(c.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends HTML mail over SMTP with STARTTLS.
type EmailNotifier struct {
	cfg    EmailConfig
	logger *slog.Logger
	send   sendFunc
}

// NewEmailNotifier returns a notifier for cfg. Host and port default to
// smtp.gmail.com:587.
func NewEmailNotifier(cfg EmailConfig, logger *slog.Logger) *EmailNotifier {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailNotifier{cfg: cfg, logger: logger, send: smtp.SendMail}
}

func (e *EmailNotifier) Notify(ctx context.Context, event models.EventType, n models.Notification) bool {
	if !e.cfg.Complete() {
		e.logger.Warn("email configuration incomplete, skipping notification", "event", string(event))
		return false
	}
	if err := ctx.Err(); err != nil {
		e.logger.Warn("email skipped", "event", string(event), "error", err)
		return false
	}

	subject, body, err := renderEmail(event, n)
	if err != nil {
		e.logger.Error("render email", "event", string(event), "error", err)
		return false
	}
	msg := buildMessage(e.cfg.From, e.cfg.recipients(), subject, body)

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	auth := smtp.PlainAuth("", e.cfg.From, e.cfg.Password, e.cfg.Host)
	if err := e.send(addr, auth, e.cfg.From, e.cfg.recipients(), msg); err != nil {
		e.logger.Error("send email", "event", string(event), "error", err)
		return false
	}
	e.logger.Info("email sent", "event", string(event), "subject", subject)
	return true
}

func buildMessage(from string, to []string, subject, html string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(html)
	return b.Bytes()
}

func subjectFor(event models.EventType, n models.Notification) string {
	ref := fmt.Sprintf("PR #%d - %s", n.Submission.Number, n.Submission.Title)
	switch event {
	case models.EventReviewStarted:
		return "Code Review Started: " + ref
	case models.EventFinalReport:
		if n.Critical {
			return "CRITICAL ISSUES: " + ref
		}
		return "REVIEW COMPLETE: " + ref
	case models.EventError:
		return "Review Error: " + ref
	}
	return fmt.Sprintf("Review %s: %s", event, ref)
}

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "header"}}<h2>{{.Heading}}</h2>
<p><strong>Title:</strong> {{.N.Submission.Title}}<br>
<strong>Author:</strong> {{.N.Submission.Author}}<br>
<strong>Target:</strong> {{.Target}}</p>{{end}}

{{define "footer"}}<p style="color:#888">This is an automated notification from revu.</p>{{end}}

{{define "review_started"}}{{template "header" .}}
<p>Files to review: {{.N.FilesCount}}</p>
<p>The review pipeline has started analyzing this submission.</p>
{{template "footer" .}}{{end}}

{{define "final_report"}}{{template "header" .}}
{{with .N.Report}}<p><strong>Final status:</strong> {{.Recommendation}} (priority {{.Priority}})</p>
<table>
<tr><td>Security</td><td>{{printf "%.2f" .Metrics.SecurityScore}}/10</td></tr>
<tr><td>Quality</td><td>{{printf "%.2f" .Metrics.QualityScore}}/10</td></tr>
<tr><td>Coverage</td><td>{{printf "%.1f" .Metrics.Coverage}}%</td></tr>
<tr><td>AI score</td><td>{{printf "%.2f" .Metrics.AIScore}}</td></tr>
<tr><td>Documentation</td><td>{{printf "%.1f" .Metrics.DocumentationCoverage}}%</td></tr>
<tr><td>High severity issues</td><td>{{.Metrics.HighSeverityIssues}}</td></tr>
</table>
{{if .KeyFindings}}<h3>Key findings</h3><ul>{{range .KeyFindings}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .ActionItems}}<h3>Action items</h3><ul>{{range .ActionItems}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{end}}{{template "footer" .}}{{end}}

{{define "error_notification"}}{{template "header" .}}
<p>An error occurred during the review process:</p>
<pre>{{.N.Error}}</pre>
<p>Check the logs for details and restart the review.</p>
{{template "footer" .}}{{end}}
`))

type emailData struct {
	Heading string
	Target  string
	N       models.Notification
}

func renderEmail(event models.EventType, n models.Notification) (string, string, error) {
	subject := subjectFor(event, n)
	if emailTemplates.Lookup(string(event)) == nil {
		return "", "", fmt.Errorf("no template for event %q", event)
	}
	var b bytes.Buffer
	data := emailData{Heading: subject, Target: target(n), N: n}
	if err := emailTemplates.ExecuteTemplate(&b, string(event), data); err != nil {
		return "", "", fmt.Errorf("execute %s: %w", event, err)
	}
	return subject, b.String(), nil
}
