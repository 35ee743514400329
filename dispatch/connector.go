package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

// DeliveryLimits carries the dispatcher's resolved transport bounds into a
// delivery: the per-request timeout and the response body cap. A connector's
// own Timeout setting takes precedence over the dispatcher default.
type DeliveryLimits struct {
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

// Connector builds and submits a type-specific payload for a webhook whose
// gate checks passed. Implementations read their settings from the webhook's
// configuration fields and return an IncompleteConfigError when required
// fields are missing.
type Connector interface {
	Type() string
	Deliver(
		ctx context.Context,
		webhook core.WebhookConfig,
		rendered map[string]string,
		event core.DispatchEvent,
		limits DeliveryLimits,
	) error
}

// Registry maps webhook type tags to connectors and optional per-type
// rate-limit policies. Types without a registered policy use the dispatcher's
// default.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
	policies   map[string]core.RateLimitPolicy
}

func NewRegistry() *Registry {
	return &Registry{
		connectors: map[string]Connector{},
		policies:   map[string]core.RateLimitPolicy{},
	}
}

func (r *Registry) Register(connector Connector) error {
	if r == nil {
		return fmt.Errorf("dispatch: registry is nil")
	}
	if connector == nil {
		return fmt.Errorf("dispatch: connector is nil")
	}
	kind := normalizeKind(connector.Type())
	if kind == "" {
		return fmt.Errorf("dispatch: connector type is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connectors[kind]; exists {
		return fmt.Errorf("dispatch: connector type %q already registered", kind)
	}
	r.connectors[kind] = connector
	return nil
}

func (r *Registry) RegisterPolicy(kind string, policy core.RateLimitPolicy) error {
	if r == nil {
		return fmt.Errorf("dispatch: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("dispatch: connector type is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[kind] = policy
	return nil
}

func (r *Registry) Get(kind string) (Connector, bool) {
	if r == nil {
		return nil, false
	}
	kind = normalizeKind(kind)
	r.mu.RLock()
	defer r.mu.RUnlock()
	connector, ok := r.connectors[kind]
	return connector, ok
}

// Policy returns the rate-limit override for a connector type, if one was
// registered.
func (r *Registry) Policy(kind string) (core.RateLimitPolicy, bool) {
	if r == nil {
		return core.RateLimitPolicy{}, false
	}
	kind = normalizeKind(kind)
	r.mu.RLock()
	defer r.mu.RUnlock()
	policy, ok := r.policies[kind]
	return policy, ok
}

func (r *Registry) List() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.connectors))
	for kind := range r.connectors {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}
