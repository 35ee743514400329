package sqlstore

import "github.com/goliatone/go-webhooks/core"

var (
	_ core.WebhookStore = (*WebhookStore)(nil)
	_ core.WebhookStore = (*CachedWebhookStore)(nil)
	_ core.FireSink     = (*FireLedger)(nil)
)
