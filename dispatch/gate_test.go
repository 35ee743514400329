package dispatch

import (
	"testing"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

func TestGate_EmptyTriggerSetAlwaysPassesTriggerCheck(t *testing.T) {
	gate := NewGate()
	webhook := core.WebhookConfig{Name: "catch_all", Type: "generic", Enabled: true}

	decision := gate.ShouldDispatch(webhook, []string{"anything"}, core.NoRateLimit())
	if !decision.Allow {
		t.Fatalf("expected empty trigger set to pass, got reason %q", decision.Reason)
	}
}

func TestGate_TriggerIntersectionRequired(t *testing.T) {
	gate := NewGate()
	webhook := core.WebhookConfig{
		Name:     "song_hook",
		Type:     "generic",
		Enabled:  true,
		Triggers: []string{"song_changed"},
	}

	decision := gate.ShouldDispatch(webhook, []string{"station_offline"}, core.NoRateLimit())
	if decision.Allow {
		t.Fatalf("expected disjoint triggers to be skipped")
	}
	if decision.Reason != SkipReasonTriggerMismatch {
		t.Fatalf("expected trigger mismatch reason, got %q", decision.Reason)
	}

	decision = gate.ShouldDispatch(webhook, []string{"song_changed", "station_offline"}, core.NoRateLimit())
	if !decision.Allow {
		t.Fatalf("expected overlapping triggers to pass, got reason %q", decision.Reason)
	}
}

func TestGate_TriggerMismatchShortCircuitsRateLimit(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	firedAt := now.Add(-time.Second)
	gate := NewGate()
	gate.Now = func() time.Time { return now }

	webhook := core.WebhookConfig{
		Name:        "song_hook",
		Type:        "generic",
		Enabled:     true,
		Triggers:    []string{"song_changed"},
		LastFiredAt: &firedAt,
	}

	// Both checks would fail; the reported reason must be the trigger check.
	decision := gate.ShouldDispatch(webhook, []string{"station_offline"}, core.DefaultRateLimitPolicy())
	if decision.Reason != SkipReasonTriggerMismatch {
		t.Fatalf("expected trigger mismatch to short-circuit, got %q", decision.Reason)
	}
}

func TestGate_RateLimitWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	gate := NewGate()
	gate.Now = func() time.Time { return now }

	firedAt := now.Add(-5 * time.Second)
	webhook := core.WebhookConfig{
		Name:        "limited",
		Type:        "generic",
		Enabled:     true,
		LastFiredAt: &firedAt,
	}

	decision := gate.ShouldDispatch(webhook, []string{"song_changed"}, core.DefaultRateLimitPolicy())
	if decision.Allow {
		t.Fatalf("expected 10s window to block a fire from 5s ago")
	}
	if decision.Reason != SkipReasonRateLimited {
		t.Fatalf("expected rate limited reason, got %q", decision.Reason)
	}

	decision = gate.ShouldDispatch(webhook, []string{"song_changed"}, core.RateLimitPolicy{MinInterval: 5 * time.Second})
	if !decision.Allow {
		t.Fatalf("expected elapsed window to pass, got reason %q", decision.Reason)
	}

	decision = gate.ShouldDispatch(webhook, []string{"song_changed"}, core.NoRateLimit())
	if !decision.Allow {
		t.Fatalf("expected disabled policy to always pass, got reason %q", decision.Reason)
	}
}

func TestGate_DisabledWebhookNeverPasses(t *testing.T) {
	gate := NewGate()
	webhook := core.WebhookConfig{Name: "off", Type: "generic"}

	decision := gate.ShouldDispatch(webhook, []string{"song_changed"}, core.NoRateLimit())
	if decision.Allow {
		t.Fatalf("expected disabled webhook to be skipped")
	}
	if decision.Reason != SkipReasonDisabled {
		t.Fatalf("expected disabled reason, got %q", decision.Reason)
	}
}
