// Package command exposes webhook mutations as go-command messages so hosts
// can route them through their existing dispatcher or message bus.
package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeDispatchEvent = "webhooks.command.dispatch"
	TypeUpsertWebhook = "webhooks.command.webhook.upsert"
	TypeRemoveWebhook = "webhooks.command.webhook.remove"
	TypeValidateURL   = "webhooks.command.url.validate"
)

type DispatchEventMessage struct {
	Event core.DispatchEvent
}

func (DispatchEventMessage) Type() string { return TypeDispatchEvent }

func (m DispatchEventMessage) Validate() error {
	if len(m.Event.Triggers) == 0 {
		return fmt.Errorf("command: event requires at least one trigger")
	}
	for _, trigger := range m.Event.Triggers {
		if strings.TrimSpace(trigger) == "" {
			return fmt.Errorf("command: event triggers must not be blank")
		}
	}
	return nil
}

type UpsertWebhookMessage struct {
	Webhook core.WebhookConfig
}

func (UpsertWebhookMessage) Type() string { return TypeUpsertWebhook }

func (m UpsertWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Webhook.Name) == "" {
		return fmt.Errorf("command: webhook name is required")
	}
	if strings.TrimSpace(m.Webhook.Type) == "" {
		return fmt.Errorf("command: webhook type is required")
	}
	return nil
}

type RemoveWebhookMessage struct {
	WebhookID string
}

func (RemoveWebhookMessage) Type() string { return TypeRemoveWebhook }

func (m RemoveWebhookMessage) Validate() error {
	if strings.TrimSpace(m.WebhookID) == "" {
		return fmt.Errorf("command: webhook id is required")
	}
	return nil
}

type ValidateURLMessage struct {
	URL string
}

func (ValidateURLMessage) Type() string { return TypeValidateURL }

func (m ValidateURLMessage) Validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("command: url is required")
	}
	return nil
}
