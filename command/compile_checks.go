package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[DispatchEventMessage] = (*DispatchEventCommand)(nil)
	_ gocmd.Commander[UpsertWebhookMessage] = (*UpsertWebhookCommand)(nil)
	_ gocmd.Commander[RemoveWebhookMessage] = (*RemoveWebhookCommand)(nil)
	_ gocmd.Commander[ValidateURLMessage]   = (*ValidateURLCommand)(nil)
)
