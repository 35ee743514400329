package dispatch

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

const TypeGotify = "gotify"

// GotifyConnector pushes a message to a Gotify server. Configuration fields:
// api_url and token (both required), title, message, priority.
type GotifyConnector struct {
	Transport core.TransportAdapter
	Timeout   time.Duration
}

func NewGotifyConnector(transport core.TransportAdapter) *GotifyConnector {
	return &GotifyConnector{Transport: transport}
}

func (*GotifyConnector) Type() string {
	return TypeGotify
}

type gotifyPayload struct {
	Title    string `json:"title,omitempty"`
	Message  string `json:"message"`
	Priority int    `json:"priority,omitempty"`
}

func (c *GotifyConnector) Deliver(
	ctx context.Context,
	webhook core.WebhookConfig,
	rendered map[string]string,
	_ core.DispatchEvent,
	limits DeliveryLimits,
) error {
	if c.Timeout > 0 {
		limits.Timeout = c.Timeout
	}
	if err := webhook.RequireFields("api_url", "token"); err != nil {
		return err
	}
	apiURL, _ := webhook.Field("api_url")
	token, _ := webhook.Field("token")

	priority := 0
	if raw := strings.TrimSpace(rendered["priority"]); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			priority = parsed
		}
	}

	destination := strings.TrimRight(apiURL, "/") + "/message?token=" + url.QueryEscape(token)
	return postJSON(ctx, c.Transport, webhook, destination, gotifyPayload{
		Title:    rendered["title"],
		Message:  rendered["message"],
		Priority: priority,
	}, limits)
}

var _ Connector = (*GotifyConnector)(nil)
