package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	FireStatusDelivered = core.FireStatusDelivered
	FireStatusFailed    = core.FireStatusFailed
)

// Fire is one entry in the delivery history of a webhook.
type Fire struct {
	ID        string
	WebhookID string
	EventID   string
	Trigger   string
	Status    string
	Error     string
	Metadata  map[string]any
	FiredAt   time.Time
	CreatedAt time.Time
}

// FireLedger is the append-only delivery history. The authoritative
// rate-limit timestamp lives on the webhook row; the ledger exists for
// auditing and debugging.
type FireLedger struct {
	db   *bun.DB
	repo repository.Repository[*webhookFireRecord]
}

func NewFireLedger(db *bun.DB) (*FireLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookFireRecord](db, webhookFireHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid fire ledger repository wiring: %w", err)
		}
	}
	return &FireLedger{db: db, repo: repo}, nil
}

func (l *FireLedger) Record(ctx context.Context, fire Fire) (Fire, error) {
	if l == nil || l.db == nil {
		return Fire{}, fmt.Errorf("sqlstore: fire ledger is not configured")
	}
	fire.WebhookID = strings.TrimSpace(fire.WebhookID)
	if fire.WebhookID == "" {
		return Fire{}, fmt.Errorf("sqlstore: fire webhook id is required")
	}
	if strings.TrimSpace(fire.Status) == "" {
		fire.Status = FireStatusDelivered
	}
	if fire.FiredAt.IsZero() {
		fire.FiredAt = time.Now().UTC()
	}

	record := &webhookFireRecord{
		ID:        uuid.NewString(),
		WebhookID: fire.WebhookID,
		EventID:   strings.TrimSpace(fire.EventID),
		Trigger:   strings.TrimSpace(fire.Trigger),
		Status:    strings.TrimSpace(fire.Status),
		Error:     fire.Error,
		Metadata:  fire.Metadata,
		FiredAt:   fire.FiredAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	if _, err := l.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return Fire{}, err
	}
	return fireToDomain(record), nil
}

// RecordFire implements core.FireSink so the ledger can be attached to a
// dispatcher as its delivery-history hook.
func (l *FireLedger) RecordFire(ctx context.Context, record core.FireRecord) error {
	_, err := l.Record(ctx, Fire{
		WebhookID: record.WebhookID,
		EventID:   record.EventID,
		Trigger:   record.Trigger,
		Status:    record.Status,
		Error:     record.Error,
		FiredAt:   record.FiredAt,
	})
	return err
}

func (l *FireLedger) ListRecent(ctx context.Context, webhookID string, limit int) ([]Fire, error) {
	if l == nil || l.db == nil {
		return nil, fmt.Errorf("sqlstore: fire ledger is not configured")
	}
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return nil, fmt.Errorf("sqlstore: fire webhook id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	records := []*webhookFireRecord{}
	err := l.db.NewSelect().
		Model(&records).
		Where("?TableAlias.webhook_id = ?", webhookID).
		Order("fired_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Fire, 0, len(records))
	for _, record := range records {
		out = append(out, fireToDomain(record))
	}
	return out, nil
}

// Prune deletes ledger entries older than the cutoff and reports how many
// rows were removed.
func (l *FireLedger) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	if l == nil || l.db == nil {
		return 0, fmt.Errorf("sqlstore: fire ledger is not configured")
	}
	res, err := l.db.NewDelete().
		Model((*webhookFireRecord)(nil)).
		Where("fired_at < ?", olderThan.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func fireToDomain(record *webhookFireRecord) Fire {
	if record == nil {
		return Fire{}
	}
	fire := Fire{
		ID:        record.ID,
		WebhookID: record.WebhookID,
		EventID:   record.EventID,
		Trigger:   record.Trigger,
		Status:    record.Status,
		Error:     record.Error,
		Metadata:  record.Metadata,
		FiredAt:   record.FiredAt,
		CreatedAt: record.CreatedAt,
	}
	if fire.Metadata == nil {
		fire.Metadata = map[string]any{}
	}
	return fire
}
