package dispatch

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

func (d *Dispatcher) observeSkip(ctx context.Context, webhook core.WebhookConfig, decision Decision) {
	fields := cloneFields(decision.Metadata)
	fields["webhook_name"] = webhook.Name
	fields["webhook_type"] = webhook.Type
	fields["reason"] = decision.Reason
	d.logInfo(ctx, "webhook dispatch skipped", fields)

	d.recordCounter(ctx, "webhooks.dispatch.skipped", 1, map[string]string{
		"webhook_type": webhook.Type,
		"reason":       decision.Reason,
	})
}

func (d *Dispatcher) observeFailure(ctx context.Context, webhook core.WebhookConfig, err error) {
	mapped := err
	if d != nil && d.errorMapper != nil {
		if rich := d.errorMapper(err); rich != nil {
			mapped = rich
		}
	}
	d.logError(ctx, "webhook dispatch failed", map[string]any{
		"webhook_name": webhook.Name,
		"webhook_type": webhook.Type,
		"error":        mapped.Error(),
	})

	d.recordCounter(ctx, "webhooks.dispatch.failed", 1, map[string]string{
		"webhook_type": webhook.Type,
	})
}

func (d *Dispatcher) observeDelivery(ctx context.Context, webhook core.WebhookConfig, startedAt time.Time) {
	d.logInfo(ctx, "webhook delivered", map[string]any{
		"webhook_name": webhook.Name,
		"webhook_type": webhook.Type,
		"duration_ms":  time.Since(startedAt).Milliseconds(),
	})

	tags := map[string]string{"webhook_type": webhook.Type}
	d.recordCounter(ctx, "webhooks.dispatch.delivered", 1, tags)
	d.recordHistogram(ctx, "webhooks.dispatch.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)
}

func (d *Dispatcher) logInfo(ctx context.Context, message string, fields map[string]any) {
	d.logWithLevel(ctx, "info", message, fields)
}

func (d *Dispatcher) logError(ctx context.Context, message string, fields map[string]any) {
	d.logWithLevel(ctx, "error", message, fields)
}

func (d *Dispatcher) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if d == nil || d.logger == nil {
		return
	}
	logger := d.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (d *Dispatcher) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if d == nil || d.metricsRecorder == nil {
		return
	}
	d.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (d *Dispatcher) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if d == nil || d.metricsRecorder == nil {
		return
	}
	d.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}
