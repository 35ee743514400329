package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
	"github.com/goliatone/go-webhooks/dispatch"
	"github.com/goliatone/go-webhooks/urlcheck"
)

type DispatchService interface {
	DispatchEvent(ctx context.Context, event core.DispatchEvent) (dispatch.DispatchStats, error)
}

type DispatchEventCommand struct {
	service DispatchService
}

func NewDispatchEventCommand(service DispatchService) *DispatchEventCommand {
	return &DispatchEventCommand{service: service}
}

func (c *DispatchEventCommand) Execute(ctx context.Context, msg DispatchEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: dispatch service is required")
	}
	stats, err := c.service.DispatchEvent(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, stats)
	return nil
}

type UpsertWebhookCommand struct {
	store core.WebhookStore
}

func NewUpsertWebhookCommand(store core.WebhookStore) *UpsertWebhookCommand {
	return &UpsertWebhookCommand{store: store}
}

func (c *UpsertWebhookCommand) Execute(ctx context.Context, msg UpsertWebhookMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: webhook store is required")
	}
	saved, err := c.store.Save(ctx, msg.Webhook)
	if err != nil {
		return err
	}
	storeResult(ctx, saved)
	return nil
}

type RemoveWebhookCommand struct {
	store core.WebhookStore
}

func NewRemoveWebhookCommand(store core.WebhookStore) *RemoveWebhookCommand {
	return &RemoveWebhookCommand{store: store}
}

func (c *RemoveWebhookCommand) Execute(ctx context.Context, msg RemoveWebhookMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: webhook store is required")
	}
	return c.store.Remove(ctx, msg.WebhookID)
}

// ValidateURLCommand checks a destination URL without persisting anything.
// The normalized URL is stored in the result collector on success.
type ValidateURLCommand struct{}

func NewValidateURLCommand() *ValidateURLCommand {
	return &ValidateURLCommand{}
}

func (c *ValidateURLCommand) Execute(ctx context.Context, msg ValidateURLMessage) error {
	if c == nil {
		return commandDependencyError("command: validate url command is required")
	}
	normalized, err := urlcheck.Validate(msg.URL)
	if err != nil {
		return err
	}
	storeResult(ctx, normalized)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
