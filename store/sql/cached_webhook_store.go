package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-webhooks/core"
)

const webhookConfigCacheKeyPrefix = "go-webhooks::webhook_config::v1"

// CachedWebhookStore puts a read-through cache in front of per-webhook Get
// lookups. Writes and fire recording invalidate the cached entry.
// ListEnabled always goes to the base store: the dispatch cycle needs fresh
// last-fired timestamps for its rate-limit gate.
type CachedWebhookStore struct {
	base  core.WebhookStore
	cache repositorycache.CacheService
}

func NewCachedWebhookStore(
	base core.WebhookStore,
	cacheService repositorycache.CacheService,
) (*CachedWebhookStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base webhook store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: webhook cache service is required")
	}
	return &CachedWebhookStore{base: base, cache: cacheService}, nil
}

// WebhookConfigCacheKey returns the deterministic cache key for a webhook id:
// go-webhooks::webhook_config::v1::<id> with the id URL-path escaped.
func WebhookConfigCacheKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("sqlstore: webhook id is required")
	}
	return webhookConfigCacheKeyPrefix + "::" + url.PathEscape(id), nil
}

func (s *CachedWebhookStore) Get(ctx context.Context, id string) (core.WebhookConfig, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.WebhookConfig{}, fmt.Errorf("sqlstore: cached webhook store is not configured")
	}
	cacheKey, err := WebhookConfigCacheKey(id)
	if err != nil {
		return core.WebhookConfig{}, err
	}

	webhook, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.WebhookConfig, error) {
		fetched, fetchErr := s.base.Get(ctx, strings.TrimSpace(id))
		if fetchErr != nil {
			return core.WebhookConfig{}, fetchErr
		}
		return fetched.Normalized(), nil
	})
	if err != nil {
		return core.WebhookConfig{}, err
	}
	return webhook.Normalized(), nil
}

func (s *CachedWebhookStore) ListEnabled(ctx context.Context) ([]core.WebhookConfig, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached webhook store is not configured")
	}
	return s.base.ListEnabled(ctx)
}

func (s *CachedWebhookStore) Save(ctx context.Context, webhook core.WebhookConfig) (core.WebhookConfig, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.WebhookConfig{}, fmt.Errorf("sqlstore: cached webhook store is not configured")
	}
	saved, err := s.base.Save(ctx, webhook)
	if err != nil {
		return core.WebhookConfig{}, err
	}
	if err := s.invalidate(ctx, saved.ID); err != nil {
		return core.WebhookConfig{}, err
	}
	return saved, nil
}

func (s *CachedWebhookStore) Remove(ctx context.Context, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached webhook store is not configured")
	}
	if err := s.base.Remove(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, id)
}

func (s *CachedWebhookStore) MarkFired(
	ctx context.Context,
	id string,
	firedAt time.Time,
	minInterval time.Duration,
) (bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return false, fmt.Errorf("sqlstore: cached webhook store is not configured")
	}
	marked, err := s.base.MarkFired(ctx, id, firedAt, minInterval)
	if err != nil {
		return false, err
	}
	if marked {
		if err := s.invalidate(ctx, id); err != nil {
			return false, err
		}
	}
	return marked, nil
}

func (s *CachedWebhookStore) invalidate(ctx context.Context, id string) error {
	cacheKey, err := WebhookConfigCacheKey(id)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.WebhookStore = (*CachedWebhookStore)(nil)
