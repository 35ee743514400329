// Package sqlstore persists webhook configuration and fire history through
// bun. The stores satisfy the interfaces in core, so hosts can swap the
// in-memory store for a database-backed one without touching dispatch code.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type WebhookStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookConfigRecord]
	now  func() time.Time
}

func NewWebhookStore(db *bun.DB) (*WebhookStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookConfigRecord](db, webhookConfigHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook repository wiring: %w", err)
		}
	}
	return &WebhookStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *WebhookStore) Get(ctx context.Context, id string) (core.WebhookConfig, error) {
	if s == nil || s.db == nil {
		return core.WebhookConfig{}, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.WebhookConfig{}, core.ErrWebhookNotFound
	}

	record := &webhookConfigRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.WebhookConfig{}, core.ErrWebhookNotFound
		}
		return core.WebhookConfig{}, err
	}
	return webhookConfigToDomain(record), nil
}

func (s *WebhookStore) ListEnabled(ctx context.Context) ([]core.WebhookConfig, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	records := []*webhookConfigRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.enabled = ?", true).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.WebhookConfig, 0, len(records))
	for _, record := range records {
		out = append(out, webhookConfigToDomain(record))
	}
	return out, nil
}

func (s *WebhookStore) Save(ctx context.Context, webhook core.WebhookConfig) (core.WebhookConfig, error) {
	if s == nil || s.db == nil {
		return core.WebhookConfig{}, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	webhook = webhook.Normalized()
	if err := webhook.Validate(); err != nil {
		return core.WebhookConfig{}, err
	}

	now := s.now()
	record := webhookConfigToRecord(webhook)
	record.UpdatedAt = now

	if record.ID == "" {
		record.ID = uuid.NewString()
		record.CreatedAt = now
		if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return core.WebhookConfig{}, duplicateWebhookError(webhook.Name)
			}
			return core.WebhookConfig{}, err
		}
		return webhookConfigToDomain(record), nil
	}

	res, err := s.db.NewUpdate().
		Model(record).
		Column("name", "type", "triggers", "config", "enabled", "metadata", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return core.WebhookConfig{}, duplicateWebhookError(webhook.Name)
		}
		return core.WebhookConfig{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.WebhookConfig{}, err
	}
	if affected == 0 {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return core.WebhookConfig{}, duplicateWebhookError(webhook.Name)
			}
			return core.WebhookConfig{}, err
		}
		return webhookConfigToDomain(record), nil
	}
	return s.Get(ctx, record.ID)
}

func (s *WebhookStore) Remove(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ErrWebhookNotFound
	}
	res, err := s.db.NewDelete().
		Model((*webhookConfigRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrWebhookNotFound
	}
	return nil
}

// MarkFired is a conditional update: the fire timestamp is recorded only when
// the previous one is NULL or at least minInterval old, so concurrent cycles
// race on the database row instead of in process memory.
func (s *WebhookStore) MarkFired(
	ctx context.Context,
	id string,
	firedAt time.Time,
	minInterval time.Duration,
) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, core.ErrWebhookNotFound
	}

	firedAt = firedAt.UTC()
	update := s.db.NewUpdate().
		Model((*webhookConfigRecord)(nil)).
		Set("last_fired_at = ?", firedAt).
		Set("updated_at = ?", s.now()).
		Where("id = ?", id)
	if minInterval > 0 {
		cutoff := firedAt.Add(-minInterval)
		update = update.Where("(last_fired_at IS NULL OR last_fired_at <= ?)", cutoff)
	}

	res, err := update.Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func webhookConfigToRecord(webhook core.WebhookConfig) *webhookConfigRecord {
	record := &webhookConfigRecord{
		ID:        webhook.ID,
		Name:      webhook.Name,
		Type:      webhook.Type,
		Triggers:  append([]string(nil), webhook.Triggers...),
		Config:    webhook.Config,
		Enabled:   webhook.Enabled,
		Metadata:  webhook.Metadata,
		CreatedAt: webhook.CreatedAt,
		UpdatedAt: webhook.UpdatedAt,
	}
	if record.Triggers == nil {
		record.Triggers = []string{}
	}
	if record.Config == nil {
		record.Config = map[string]string{}
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	if webhook.LastFiredAt != nil {
		firedAt := webhook.LastFiredAt.UTC()
		record.LastFiredAt = &firedAt
	}
	return record
}

func webhookConfigToDomain(record *webhookConfigRecord) core.WebhookConfig {
	if record == nil {
		return core.WebhookConfig{}
	}
	webhook := core.WebhookConfig{
		ID:        record.ID,
		Name:      record.Name,
		Type:      record.Type,
		Triggers:  append([]string(nil), record.Triggers...),
		Config:    record.Config,
		Enabled:   record.Enabled,
		Metadata:  record.Metadata,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	if record.LastFiredAt != nil {
		firedAt := record.LastFiredAt.UTC()
		webhook.LastFiredAt = &firedAt
	}
	return webhook.Normalized()
}

func duplicateWebhookError(name string) error {
	return goerrors.New(
		fmt.Sprintf("sqlstore: webhook name %q already exists", name),
		goerrors.CategoryConflict,
	).
		WithCode(http.StatusConflict).
		WithTextCode(core.WebhookErrorBadInput).
		WithMetadata(map[string]any{"webhook_name": name})
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
