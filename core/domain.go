package core

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// WebhookConfig is the persisted configuration of a single outbound webhook.
// An empty Triggers slice subscribes the webhook to every trigger.
type WebhookConfig struct {
	ID          string
	Name        string
	Type        string
	Triggers    []string
	Config      map[string]string
	Enabled     bool
	LastFiredAt *time.Time
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DispatchEvent is the read-only snapshot handed to a dispatch cycle: the
// trigger names that fired plus the state data templates render against.
type DispatchEvent struct {
	ID         string
	Triggers   []string
	Data       map[string]any
	OccurredAt time.Time
}

// RateLimitPolicy is the minimum-interval policy applied between successive
// fires of the same webhook. Disabled means no interval is enforced.
type RateLimitPolicy struct {
	MinInterval time.Duration
	Disabled    bool
}

func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{MinInterval: 10 * time.Second}
}

func NoRateLimit() RateLimitPolicy {
	return RateLimitPolicy{Disabled: true}
}

func (p RateLimitPolicy) Enforced() bool {
	return !p.Disabled && p.MinInterval > 0
}

func (w WebhookConfig) Normalized() WebhookConfig {
	out := w
	out.ID = strings.TrimSpace(w.ID)
	out.Name = strings.TrimSpace(w.Name)
	out.Type = strings.TrimSpace(strings.ToLower(w.Type))
	out.Triggers = normalizeTriggers(w.Triggers)
	out.Config = cloneStringMap(w.Config)
	out.Metadata = cloneAnyMap(w.Metadata)
	if w.LastFiredAt != nil {
		firedAt := w.LastFiredAt.UTC()
		out.LastFiredAt = &firedAt
	}
	return out
}

func (w WebhookConfig) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return goerrors.New("core: webhook name is required", goerrors.CategoryBadInput).
			WithTextCode(WebhookErrorBadInput)
	}
	if strings.TrimSpace(w.Type) == "" {
		return goerrors.New("core: webhook type is required", goerrors.CategoryBadInput).
			WithTextCode(WebhookErrorBadInput)
	}
	return nil
}

func (w WebhookConfig) HasTrigger(trigger string) bool {
	trigger = strings.TrimSpace(strings.ToLower(trigger))
	if trigger == "" {
		return false
	}
	for _, candidate := range w.Triggers {
		if strings.TrimSpace(strings.ToLower(candidate)) == trigger {
			return true
		}
	}
	return false
}

// MatchesAny reports whether the webhook subscribes to at least one of the
// fired triggers. An empty subscription set matches everything.
func (w WebhookConfig) MatchesAny(firedTriggers []string) bool {
	if len(w.Triggers) == 0 {
		return true
	}
	for _, fired := range firedTriggers {
		if w.HasTrigger(fired) {
			return true
		}
	}
	return false
}

// LastFireElapsed reports whether at least minInterval has passed since the
// webhook last fired. A webhook that never fired always passes.
func (w WebhookConfig) LastFireElapsed(minInterval time.Duration, now time.Time) bool {
	if w.LastFiredAt == nil {
		return true
	}
	if minInterval <= 0 {
		return true
	}
	return now.UTC().Sub(w.LastFiredAt.UTC()) >= minInterval
}

func (w WebhookConfig) Field(key string) (string, bool) {
	if len(w.Config) == 0 {
		return "", false
	}
	value, ok := w.Config[strings.TrimSpace(key)]
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// RequireFields returns an IncompleteConfigError naming the webhook and the
// missing keys when any of the given configuration fields is absent or blank.
func (w WebhookConfig) RequireFields(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if _, ok := w.Field(key); !ok {
			missing = append(missing, strings.TrimSpace(key))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return IncompleteConfigError{
		WebhookName: w.Name,
		WebhookType: w.Type,
		Missing:     missing,
	}
}

// IncompleteConfigError signals that a webhook is missing configuration its
// connector requires. Callers convert it to a skip-with-log outcome.
type IncompleteConfigError struct {
	WebhookName string
	WebhookType string
	Missing     []string
}

func (e IncompleteConfigError) Error() string {
	return fmt.Sprintf(
		"core: webhook %q (type %q) is missing required configuration: %s",
		strings.TrimSpace(e.WebhookName),
		strings.TrimSpace(e.WebhookType),
		strings.Join(e.Missing, ", "),
	)
}

func (e IncompleteConfigError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryBadInput).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(WebhookErrorIncompleteConfig).
		WithMetadata(map[string]any{
			"webhook_name": strings.TrimSpace(e.WebhookName),
			"webhook_type": strings.TrimSpace(e.WebhookType),
			"missing":      append([]string(nil), e.Missing...),
		})
}

func normalizeTriggers(triggers []string) []string {
	if len(triggers) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(triggers))
	for _, trigger := range triggers {
		trigger = strings.TrimSpace(strings.ToLower(trigger))
		if trigger == "" || seen[trigger] {
			continue
		}
		seen[trigger] = true
		out = append(out, trigger)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneStringMap(input map[string]string) map[string]string {
	if len(input) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

func cloneAnyMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
