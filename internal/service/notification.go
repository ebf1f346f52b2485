// Package service contains the webhook application services.
package service

import (
	"context"
	"log/slog"
	"time"

	cfotel "github.com/Strob0t/bbwebhook/internal/adapter/otel"
	"github.com/Strob0t/bbwebhook/internal/port/notifier"
)

// NotificationService fans a notification out to every configured sink.
type NotificationService struct {
	notifiers []notifier.Notifier
	timeout   time.Duration
	metrics   *cfotel.Metrics
}

// NewNotificationService creates a NotificationService. Each sink gets at
// most timeout to deliver; zero means no per-sink deadline.
func NewNotificationService(notifiers []notifier.Notifier, timeout time.Duration) *NotificationService {
	return &NotificationService{
		notifiers: notifiers,
		timeout:   timeout,
	}
}

// SetMetrics attaches metric instruments. Nil disables recording.
func (s *NotificationService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Notify sends n to all sinks in order. A failing sink is logged and does
// not stop delivery to the others. It returns the number of sinks that
// accepted the notification.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) int {
	delivered := 0
	for _, sink := range s.notifiers {
		if err := s.send(ctx, sink, n); err != nil {
			slog.WarnContext(ctx, "notification send failed",
				"sink", sink.Name(),
				"title", n.Title,
				"error", err,
			)
			s.metrics.RecordNotification(ctx, sink.Name(), cfotel.ResultFailed)
			continue
		}
		delivered++
		s.metrics.RecordNotification(ctx, sink.Name(), cfotel.ResultOK)
		slog.DebugContext(ctx, "notification sent", "sink", sink.Name(), "title", n.Title)
	}
	return delivered
}

func (s *NotificationService) send(ctx context.Context, sink notifier.Notifier, n notifier.Notification) error {
	ctx, span := cfotel.StartNotifySpan(ctx, sink.Name())
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := sink.Send(ctx, n)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Sinks returns the names of the configured sinks in delivery order.
func (s *NotificationService) Sinks() []string {
	names := make([]string, 0, len(s.notifiers))
	for _, n := range s.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// HasLocalSink reports whether any sink delivers on the host itself.
func (s *NotificationService) HasLocalSink() bool {
	for _, n := range s.notifiers {
		if n.Capabilities().Local {
			return true
		}
	}
	return false
}
