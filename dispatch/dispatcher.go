package dispatch

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-webhooks/core"
	"github.com/goliatone/go-webhooks/render"
)

// DispatchStats summarizes one dispatch cycle.
type DispatchStats struct {
	Evaluated   int
	Skipped     int
	RateLimited int
	Delivered   int
	Failed      int
}

// Dispatcher runs a dispatch cycle: list enabled webhooks, gate each one,
// render its template fields, deliver through its connector, and record the
// fire. Per-webhook failures never abort the cycle for other webhooks.
type Dispatcher struct {
	config          core.Config
	logger          core.Logger
	metricsRecorder core.MetricsRecorder
	errorMapper     core.ErrorMapper
	store           core.WebhookStore
	fireSink        core.FireSink
	registry        *Registry
	gate            *Gate
	limits          DeliveryLimits
	now             func() time.Time
}

type Option func(*builder)

type builder struct {
	runtimeConfig   core.Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	errorMapper     core.ErrorMapper
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	store           core.WebhookStore
	fireSink        core.FireSink
	registry        *Registry
	gate            *Gate
	now             func() time.Time
}

func WithLogger(logger core.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *builder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *builder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper core.ErrorMapper) Option {
	return func(b *builder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *builder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *builder) {
		b.optionsResolver = resolver
	}
}

func WithWebhookStore(store core.WebhookStore) Option {
	return func(b *builder) {
		b.store = store
	}
}

// WithFireSink attaches a delivery-history sink, typically the SQL fire
// ledger. The dispatcher records one entry per delivered or failed webhook.
func WithFireSink(sink core.FireSink) Option {
	return func(b *builder) {
		b.fireSink = sink
	}
}

func WithConnectorRegistry(registry *Registry) Option {
	return func(b *builder) {
		b.registry = registry
	}
}

func WithGate(gate *Gate) Option {
	return func(b *builder) {
		b.gate = gate
	}
}

func WithNow(now func() time.Time) Option {
	return func(b *builder) {
		b.now = now
	}
}

func NewDispatcher(cfg core.Config, opts ...Option) (*Dispatcher, error) {
	b := builder{runtimeConfig: cfg}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&b)
	}

	resolved, err := core.ResolveConfig(
		context.Background(),
		b.configProvider,
		b.optionsResolver,
		b.runtimeConfig,
	)
	if err != nil {
		return nil, err
	}

	provider, logger := glog.Resolve("webhooks", b.loggerProvider, b.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("webhooks"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if b.store == nil {
		return nil, fmt.Errorf("dispatch: webhook store is required")
	}
	if b.registry == nil {
		b.registry = NewRegistry()
	}
	if b.gate == nil {
		b.gate = NewGate()
	}
	if b.metricsRecorder == nil {
		b.metricsRecorder = core.NopMetricsRecorder{}
	}
	if b.errorMapper == nil {
		b.errorMapper = core.DefaultErrorMapper
	}
	if b.now == nil {
		b.now = func() time.Time { return time.Now().UTC() }
	} else {
		b.gate.Now = b.now
	}
	if b.gate.Now == nil {
		b.gate.Now = b.now
	}

	return &Dispatcher{
		config:          resolved,
		logger:          logger,
		metricsRecorder: b.metricsRecorder,
		errorMapper:     b.errorMapper,
		store:           b.store,
		fireSink:        b.fireSink,
		registry:        b.registry,
		gate:            b.gate,
		limits: DeliveryLimits{
			Timeout:              resolved.DeliveryTimeout(),
			MaxResponseBodyBytes: resolved.Dispatch.MaxResponseBodyBytes,
		},
		now: b.now,
	}, nil
}

// Registry exposes the connector registry so hosts can register connectors
// after construction.
func (d *Dispatcher) Registry() *Registry {
	if d == nil {
		return nil
	}
	return d.registry
}

// DispatchEvent evaluates every enabled webhook against the event. The
// returned error joins per-webhook failures; the cycle itself always runs to
// completion.
func (d *Dispatcher) DispatchEvent(ctx context.Context, event core.DispatchEvent) (DispatchStats, error) {
	if d == nil || d.store == nil {
		return DispatchStats{}, fmt.Errorf("dispatch: dispatcher is not configured")
	}
	if len(event.Triggers) == 0 {
		return DispatchStats{}, goerrors.New(
			"dispatch: event requires at least one trigger",
			goerrors.CategoryBadInput,
		).WithTextCode(core.WebhookErrorBadInput)
	}

	startedAt := d.now()
	webhooks, err := d.store.ListEnabled(ctx)
	if err != nil {
		return DispatchStats{}, err
	}

	stats := DispatchStats{}
	var dispatchErr error
	for _, webhook := range webhooks {
		webhook = webhook.Normalized()
		stats.Evaluated++

		policy := d.resolvePolicy(webhook.Type)
		decision := d.gate.ShouldDispatch(webhook, event.Triggers, policy)
		if !decision.Allow {
			if decision.Reason == SkipReasonRateLimited {
				stats.RateLimited++
			} else {
				stats.Skipped++
			}
			d.observeSkip(ctx, webhook, decision)
			continue
		}

		if err := d.dispatchOne(ctx, webhook, event, policy); err != nil {
			stats.Failed++
			d.observeFailure(ctx, webhook, err)
			d.recordFire(ctx, webhook, event, core.FireStatusFailed, err)
			dispatchErr = joinErrors(dispatchErr, err)
			continue
		}
		stats.Delivered++
		d.observeDelivery(ctx, webhook, startedAt)
		d.recordFire(ctx, webhook, event, core.FireStatusDelivered, nil)
	}
	return stats, dispatchErr
}

func (d *Dispatcher) dispatchOne(
	ctx context.Context,
	webhook core.WebhookConfig,
	event core.DispatchEvent,
	policy core.RateLimitPolicy,
) error {
	connector, ok := d.registry.Get(webhook.Type)
	if !ok {
		return fmt.Errorf(
			"dispatch: no connector registered for webhook %q (type %q)",
			webhook.Name,
			webhook.Type,
		)
	}

	rendered := render.Render(webhook.Config, event.Data)
	if err := connector.Deliver(ctx, webhook, rendered, event, d.limits); err != nil {
		return err
	}

	minInterval := time.Duration(0)
	if policy.Enforced() {
		minInterval = policy.MinInterval
	}
	marked, err := d.store.MarkFired(ctx, webhook.ID, d.now(), minInterval)
	if err != nil {
		return err
	}
	if !marked {
		d.logInfo(ctx, "concurrent cycle already recorded fire", map[string]any{
			"webhook_name": webhook.Name,
			"webhook_type": webhook.Type,
		})
	}
	return nil
}

func (d *Dispatcher) recordFire(
	ctx context.Context,
	webhook core.WebhookConfig,
	event core.DispatchEvent,
	status string,
	deliveryErr error,
) {
	if d == nil || d.fireSink == nil {
		return
	}
	record := core.FireRecord{
		WebhookID: webhook.ID,
		EventID:   event.ID,
		Trigger:   matchedTrigger(webhook, event.Triggers),
		Status:    status,
		FiredAt:   d.now(),
	}
	if deliveryErr != nil {
		record.Error = deliveryErr.Error()
	}
	if err := d.fireSink.RecordFire(ctx, record); err != nil {
		d.logError(ctx, "fire sink record failed", map[string]any{
			"webhook_name": webhook.Name,
			"webhook_type": webhook.Type,
			"error":        err.Error(),
		})
	}
}

// matchedTrigger picks the fired trigger the webhook subscribed to. A webhook
// with an empty subscription set is attributed to the first fired trigger.
func matchedTrigger(webhook core.WebhookConfig, firedTriggers []string) string {
	if len(firedTriggers) == 0 {
		return ""
	}
	if len(webhook.Triggers) == 0 {
		return firedTriggers[0]
	}
	for _, fired := range firedTriggers {
		if webhook.HasTrigger(fired) {
			return fired
		}
	}
	return firedTriggers[0]
}

func (d *Dispatcher) resolvePolicy(kind string) core.RateLimitPolicy {
	if d.registry != nil {
		if policy, ok := d.registry.Policy(kind); ok {
			return policy
		}
	}
	return d.config.DefaultRateLimit()
}

func joinErrors(existing error, next error) error {
	if existing == nil {
		return next
	}
	if next == nil {
		return existing
	}
	return fmt.Errorf("%w; %v", existing, next)
}
