// Package notify delivers review events. Delivery is best effort: a
// notifier reports whether it delivered and never fails the review.
package notify

import (
	"context"
	"log/slog"

	"github.com/joescharf/revu/internal/models"
)

// Notifier delivers one review event.
type Notifier interface {
	Notify(ctx context.Context, event models.EventType, n models.Notification) bool
}

// LogNotifier writes events to a structured logger. It is used when email
// is not configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, event models.EventType, n models.Notification) bool {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"event", string(event),
		"review_id", n.ReviewID,
		"target", target(n),
		"files", n.FilesCount,
	}
	switch event {
	case models.EventFinalReport:
		if n.Report != nil {
			attrs = append(attrs, "decision", string(n.Report.Decision), "critical", n.Critical)
		}
	case models.EventError:
		logger.Warn("review notification", append(attrs, "error", n.Error)...)
		return true
	}
	logger.Info("review notification", attrs...)
	return true
}

// Multi fans an event out to every notifier. It reports true if at least
// one delivered.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event models.EventType, n models.Notification) bool {
	delivered := false
	for _, nt := range m {
		if nt == nil {
			continue
		}
		if nt.Notify(ctx, event, n) {
			delivered = true
		}
	}
	return delivered
}

func target(n models.Notification) string {
	if n.Owner == "" && n.Repo == "" {
		return "local"
	}
	return n.Owner + "/" + n.Repo
}
