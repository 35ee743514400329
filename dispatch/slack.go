package dispatch

import (
	"context"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

const TypeSlack = "slack"

// SlackConnector posts a message to a Slack incoming-webhook URL.
// Configuration fields: webhook_url and text (both required); channel,
// username, and icon_emoji are forwarded when present.
type SlackConnector struct {
	Transport core.TransportAdapter
	Timeout   time.Duration
}

func NewSlackConnector(transport core.TransportAdapter) *SlackConnector {
	return &SlackConnector{Transport: transport}
}

func (*SlackConnector) Type() string {
	return TypeSlack
}

type slackPayload struct {
	Text      string `json:"text"`
	Channel   string `json:"channel,omitempty"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

func (c *SlackConnector) Deliver(
	ctx context.Context,
	webhook core.WebhookConfig,
	rendered map[string]string,
	_ core.DispatchEvent,
	limits DeliveryLimits,
) error {
	if c.Timeout > 0 {
		limits.Timeout = c.Timeout
	}
	if err := webhook.RequireFields("webhook_url", "text"); err != nil {
		return err
	}
	destination, _ := webhook.Field("webhook_url")

	return postJSON(ctx, c.Transport, webhook, destination, slackPayload{
		Text:      rendered["text"],
		Channel:   rendered["channel"],
		Username:  rendered["username"],
		IconEmoji: rendered["icon_emoji"],
	}, limits)
}

var _ Connector = (*SlackConnector)(nil)
