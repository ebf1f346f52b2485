// Package nats implements a notifier.Notifier that publishes notifications
// to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Strob0t/bbwebhook/internal/logger"
	"github.com/Strob0t/bbwebhook/internal/port/notifier"
)

const providerName = "nats"

// HeaderRequestID carries the originating webhook request ID.
const HeaderRequestID = "X-Request-ID"

// Publisher publishes notifications as JSON messages.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// Connect dials url and returns a Publisher for subject.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("bbwebhook"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	slog.Info("nats connected", "url", url, "subject", subject)
	return &Publisher{nc: nc, subject: subject}, nil
}

func (p *Publisher) Name() string { return providerName }

func (p *Publisher) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{ActionLinks: true}
}

// message is the JSON body published for every notification.
type message struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	URL       string    `json:"url,omitempty"`
	Source    string    `json:"source,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

func encodeMessage(ctx context.Context, n notifier.Notification, now time.Time) (*nats.Msg, error) {
	body, err := json.Marshal(message{
		Title:     n.Title,
		Message:   n.Message,
		URL:       n.URL,
		Source:    n.Source,
		RequestID: logger.RequestID(ctx),
		SentAt:    now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("nats marshal: %w", err)
	}

	msg := &nats.Msg{Data: body, Header: nats.Header{}}
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(HeaderRequestID, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))
	return msg, nil
}

// Send publishes n and flushes so that a dead connection surfaces as an error.
func (p *Publisher) Send(ctx context.Context, n notifier.Notification) error {
	msg, err := encodeMessage(ctx, n, time.Now())
	if err != nil {
		return err
	}
	msg.Subject = p.subject

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", p.subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
