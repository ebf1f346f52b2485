// Package notifier defines the notification sink port (interface) and capabilities.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is missing required configuration.
var ErrNotConfigured = errors.New("notifier: not configured")

// Notification is the payload delivered to every sink.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`    // action link, e.g. the commit page
	Source  string `json:"source,omitempty"` // e.g. "webhook.push"
}

// Capabilities declares which features a notifier supports.
type Capabilities struct {
	RichFormatting bool `json:"rich_formatting"`
	ActionLinks    bool `json:"action_links"` // URL is rendered as a clickable action
	Local          bool `json:"local"`        // delivered on the host running the service
}

// Notifier is the port interface for delivering notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "slack", "desktop").
	Name() string

	Capabilities() Capabilities

	// Send delivers a notification.
	Send(ctx context.Context, n Notification) error
}

// Noop discards every notification. It stands in for sinks the host cannot serve.
type Noop struct {
	Sink string
}

func (n Noop) Name() string {
	if n.Sink == "" {
		return "noop"
	}
	return n.Sink
}

func (Noop) Capabilities() Capabilities { return Capabilities{} }

func (Noop) Send(context.Context, Notification) error { return nil }
