// Package slack implements a notifier.Notifier for Slack incoming webhooks.
package slack

import (
	"context"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"

	cfotel "github.com/Strob0t/bbwebhook/internal/adapter/otel"
	"github.com/Strob0t/bbwebhook/internal/port/notifier"
)

const providerName = "slack"

// Notifier posts Block Kit messages to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a Slack notifier with the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Transport: cfotel.Transport(nil)},
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		RichFormatting: true,
		ActionLinks:    true,
	}
}

func (n *Notifier) Send(ctx context.Context, msg notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, buildMessage(msg)); err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}

func buildMessage(msg notifier.Notification) *slack.WebhookMessage {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, msg.Title, false, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, msg.Message, false, false), nil, nil),
	}

	if msg.URL != "" {
		button := slack.NewButtonBlockElement("open_link", msg.URL,
			slack.NewTextBlockObject(slack.PlainTextType, "View in Bitbucket", false, false))
		button.URL = msg.URL
		blocks = append(blocks, slack.NewActionBlock("links", button))
	}

	if msg.Source != "" {
		blocks = append(blocks, slack.NewContextBlock("source",
			slack.NewTextBlockObject(slack.MarkdownType, "_Source: "+msg.Source+"_", false, false)))
	}

	return &slack.WebhookMessage{
		Text:   msg.Title + ": " + msg.Message,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}
