package dispatch

import (
	"time"

	"github.com/goliatone/go-webhooks/core"
)

const (
	SkipReasonTriggerMismatch = "trigger_mismatch"
	SkipReasonRateLimited     = "rate_limited"
	SkipReasonDisabled        = "disabled"
)

// Decision is the gate's verdict for one webhook in one dispatch cycle.
type Decision struct {
	Allow    bool
	Reason   string
	Metadata map[string]any
}

// Gate evaluates the trigger and rate-limit checks. It never mutates the
// webhook's last-fired timestamp; recording a fire is the dispatch loop's
// side effect after delivery.
type Gate struct {
	Now func() time.Time
}

func NewGate() *Gate {
	return &Gate{
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// ShouldDispatch passes only when the webhook subscribes to at least one of
// the fired triggers (an empty subscription set subscribes to all) and its
// rate-limit window has elapsed. The trigger check short-circuits: a
// mismatch skips the rate-limit evaluation entirely.
func (g *Gate) ShouldDispatch(
	webhook core.WebhookConfig,
	firedTriggers []string,
	policy core.RateLimitPolicy,
) Decision {
	if !webhook.Enabled {
		return Decision{
			Reason:   SkipReasonDisabled,
			Metadata: map[string]any{"webhook_name": webhook.Name},
		}
	}
	if !webhook.MatchesAny(firedTriggers) {
		return Decision{
			Reason: SkipReasonTriggerMismatch,
			Metadata: map[string]any{
				"webhook_name":   webhook.Name,
				"fired_triggers": append([]string(nil), firedTriggers...),
			},
		}
	}
	if policy.Enforced() && !webhook.LastFireElapsed(policy.MinInterval, g.now()) {
		return Decision{
			Reason: SkipReasonRateLimited,
			Metadata: map[string]any{
				"webhook_name":    webhook.Name,
				"min_interval_ms": policy.MinInterval.Milliseconds(),
			},
		}
	}
	return Decision{Allow: true}
}

func (g *Gate) now() time.Time {
	if g != nil && g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}
