package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type webhookConfigRecord struct {
	bun.BaseModel `bun:"table:webhook_configs,alias:wc"`

	ID          string            `bun:"id,pk"`
	Name        string            `bun:"name,notnull"`
	Type        string            `bun:"type,notnull"`
	Triggers    []string          `bun:"triggers,type:jsonb,notnull"`
	Config      map[string]string `bun:"config,type:jsonb,notnull"`
	Enabled     bool              `bun:"enabled,notnull"`
	LastFiredAt *time.Time        `bun:"last_fired_at,nullzero"`
	Metadata    map[string]any    `bun:"metadata,type:jsonb,notnull"`
	CreatedAt   time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookFireRecord struct {
	bun.BaseModel `bun:"table:webhook_fires,alias:wf"`

	ID        string         `bun:"id,pk"`
	WebhookID string         `bun:"webhook_id,notnull"`
	EventID   string         `bun:"event_id"`
	Trigger   string         `bun:"trigger_name,notnull"`
	Status    string         `bun:"status,notnull"`
	Error     string         `bun:"error"`
	Metadata  map[string]any `bun:"metadata,type:jsonb,notnull"`
	FiredAt   time.Time      `bun:"fired_at,nullzero,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
