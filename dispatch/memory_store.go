package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-webhooks/core"
	"github.com/google/uuid"
)

// MemoryWebhookStore is an in-memory WebhookStore for tests and embedded
// hosts. MarkFired applies the minimum-interval guard under the store lock,
// so concurrent cycles cannot both record a fire inside the window.
type MemoryWebhookStore struct {
	mu    sync.RWMutex
	items map[string]core.WebhookConfig
	now   func() time.Time
}

func NewMemoryWebhookStore() *MemoryWebhookStore {
	return &MemoryWebhookStore{
		items: map[string]core.WebhookConfig{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryWebhookStore) Get(_ context.Context, id string) (core.WebhookConfig, error) {
	if s == nil {
		return core.WebhookConfig{}, fmt.Errorf("dispatch: webhook store is nil")
	}
	id = strings.TrimSpace(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	webhook, ok := s.items[id]
	if !ok {
		return core.WebhookConfig{}, core.ErrWebhookNotFound
	}
	return webhook.Normalized(), nil
}

func (s *MemoryWebhookStore) ListEnabled(_ context.Context) ([]core.WebhookConfig, error) {
	if s == nil {
		return nil, fmt.Errorf("dispatch: webhook store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.WebhookConfig, 0, len(s.items))
	for _, webhook := range s.items {
		if !webhook.Enabled {
			continue
		}
		out = append(out, webhook.Normalized())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryWebhookStore) Save(_ context.Context, webhook core.WebhookConfig) (core.WebhookConfig, error) {
	if s == nil {
		return core.WebhookConfig{}, fmt.Errorf("dispatch: webhook store is nil")
	}
	webhook = webhook.Normalized()
	if err := webhook.Validate(); err != nil {
		return core.WebhookConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if webhook.ID == "" {
		webhook.ID = uuid.NewString()
		webhook.CreatedAt = now
	}
	if existing, ok := s.items[webhook.ID]; ok {
		webhook.CreatedAt = existing.CreatedAt
	} else if webhook.CreatedAt.IsZero() {
		webhook.CreatedAt = now
	}
	webhook.UpdatedAt = now
	s.items[webhook.ID] = webhook
	return webhook, nil
}

func (s *MemoryWebhookStore) Remove(_ context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("dispatch: webhook store is nil")
	}
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrWebhookNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryWebhookStore) MarkFired(
	_ context.Context,
	id string,
	firedAt time.Time,
	minInterval time.Duration,
) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("dispatch: webhook store is nil")
	}
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.items[id]
	if !ok {
		return false, core.ErrWebhookNotFound
	}
	if !webhook.LastFireElapsed(minInterval, firedAt) {
		return false, nil
	}
	fired := firedAt.UTC()
	webhook.LastFiredAt = &fired
	webhook.UpdatedAt = s.now()
	s.items[id] = webhook
	return true, nil
}

var _ core.WebhookStore = (*MemoryWebhookStore)(nil)
