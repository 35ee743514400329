// Package webhooks dispatches configurable outbound webhooks: enabled
// configurations are matched against fired triggers, rate limited, rendered
// against event data, and delivered through per-type connectors.
package webhooks

import (
	"fmt"

	webhookscommand "github.com/goliatone/go-webhooks/command"
	"github.com/goliatone/go-webhooks/core"
	"github.com/goliatone/go-webhooks/dispatch"
)

// Aliases for the core types most hosts touch, so embedding applications can
// depend on the root package alone.
type (
	Config          = core.Config
	DispatchConfig  = core.DispatchConfig
	WebhookConfig   = core.WebhookConfig
	DispatchEvent   = core.DispatchEvent
	RateLimitPolicy = core.RateLimitPolicy
	WebhookStore    = core.WebhookStore
	Logger          = core.Logger
	MetricsRecorder = core.MetricsRecorder
	FireSink        = core.FireSink
	FireRecord      = core.FireRecord

	Dispatcher     = dispatch.Dispatcher
	DispatchStats  = dispatch.DispatchStats
	Connector      = dispatch.Connector
	DeliveryLimits = dispatch.DeliveryLimits
	Registry       = dispatch.Registry
	Option         = dispatch.Option
)

var (
	DefaultConfig          = core.DefaultConfig
	DefaultRateLimitPolicy = core.DefaultRateLimitPolicy
	NoRateLimit            = core.NoRateLimit

	NewDispatcher         = dispatch.NewDispatcher
	NewConnectorRegistry  = dispatch.NewRegistry
	NewMemoryWebhookStore = dispatch.NewMemoryWebhookStore
	NewGate               = dispatch.NewGate

	WithLogger            = dispatch.WithLogger
	WithLoggerProvider    = dispatch.WithLoggerProvider
	WithMetricsRecorder   = dispatch.WithMetricsRecorder
	WithErrorMapper       = dispatch.WithErrorMapper
	WithConfigProvider    = dispatch.WithConfigProvider
	WithOptionsResolver   = dispatch.WithOptionsResolver
	WithWebhookStore      = dispatch.WithWebhookStore
	WithFireSink          = dispatch.WithFireSink
	WithConnectorRegistry = dispatch.WithConnectorRegistry
	WithGate              = dispatch.WithGate
	WithNow               = dispatch.WithNow
)

// Commands bundles the go-command handlers for hosts that route mutations
// through a message dispatcher.
type Commands struct {
	DispatchEvent *webhookscommand.DispatchEventCommand
	UpsertWebhook *webhookscommand.UpsertWebhookCommand
	RemoveWebhook *webhookscommand.RemoveWebhookCommand
	ValidateURL   *webhookscommand.ValidateURLCommand
}

type Facade struct {
	dispatcher *dispatch.Dispatcher
	store      core.WebhookStore
	commands   Commands
}

func NewFacade(dispatcher *dispatch.Dispatcher, store core.WebhookStore) (*Facade, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("webhooks: dispatcher is required")
	}
	if store == nil {
		return nil, fmt.Errorf("webhooks: webhook store is required")
	}

	facade := &Facade{dispatcher: dispatcher, store: store}
	facade.commands = Commands{
		DispatchEvent: webhookscommand.NewDispatchEventCommand(dispatcher),
		UpsertWebhook: webhookscommand.NewUpsertWebhookCommand(store),
		RemoveWebhook: webhookscommand.NewRemoveWebhookCommand(store),
		ValidateURL:   webhookscommand.NewValidateURLCommand(),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Dispatcher() *dispatch.Dispatcher {
	if f == nil {
		return nil
	}
	return f.dispatcher
}

func (f *Facade) Store() core.WebhookStore {
	if f == nil {
		return nil
	}
	return f.store
}
