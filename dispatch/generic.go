package dispatch

import (
	"context"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

const TypeGeneric = "generic"

// GenericConnector posts the rendered fields plus the event snapshot as a
// JSON document to a user-configured URL. Configuration fields:
// webhook_url (required); every other field is rendered and forwarded.
type GenericConnector struct {
	Transport core.TransportAdapter
	Timeout   time.Duration
}

func NewGenericConnector(transport core.TransportAdapter) *GenericConnector {
	return &GenericConnector{Transport: transport}
}

func (*GenericConnector) Type() string {
	return TypeGeneric
}

type genericPayload struct {
	Webhook  string            `json:"webhook"`
	Triggers []string          `json:"triggers"`
	Fields   map[string]string `json:"fields"`
	Data     map[string]any    `json:"data,omitempty"`
	FiredAt  time.Time         `json:"fired_at"`
}

func (c *GenericConnector) Deliver(
	ctx context.Context,
	webhook core.WebhookConfig,
	rendered map[string]string,
	event core.DispatchEvent,
	limits DeliveryLimits,
) error {
	if c.Timeout > 0 {
		limits.Timeout = c.Timeout
	}
	if err := webhook.RequireFields("webhook_url"); err != nil {
		return err
	}
	destination, _ := webhook.Field("webhook_url")

	fields := make(map[string]string, len(rendered))
	for key, value := range rendered {
		if key == "webhook_url" {
			continue
		}
		fields[key] = value
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return postJSON(ctx, c.Transport, webhook, destination, genericPayload{
		Webhook:  webhook.Name,
		Triggers: append([]string(nil), event.Triggers...),
		Fields:   fields,
		Data:     event.Data,
		FiredAt:  occurredAt.UTC(),
	}, limits)
}

var _ Connector = (*GenericConnector)(nil)
