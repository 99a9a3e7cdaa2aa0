package alerts

import (
	"context"
	"fmt"

	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/slack-go/slack"
)

// SlackNotifier forwards alerts to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		post:       slack.PostWebhookContext,
	}
}

func (n *SlackNotifier) Notify(ctx context.Context, alert models.Alert) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(":warning: %s", alert.Message),
		Attachments: []slack.Attachment{{
			Footer: alert.Timestamp,
		}},
	}
	if err := n.post(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}
