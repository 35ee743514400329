package core

import (
	"context"
	"errors"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

var ErrWebhookNotFound = errors.New("core: webhook not found")

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// WebhookStore owns webhook configuration persistence. MarkFired records a
// fire timestamp only when at least minInterval has elapsed since the last
// recorded fire; it reports false when another dispatch cycle already won the
// window. A zero minInterval records unconditionally.
type WebhookStore interface {
	Get(ctx context.Context, id string) (WebhookConfig, error)
	ListEnabled(ctx context.Context) ([]WebhookConfig, error)
	Save(ctx context.Context, webhook WebhookConfig) (WebhookConfig, error)
	Remove(ctx context.Context, id string) error
	MarkFired(ctx context.Context, id string, firedAt time.Time, minInterval time.Duration) (bool, error)
}

const (
	FireStatusDelivered = "delivered"
	FireStatusFailed    = "failed"
)

// FireRecord is one delivery outcome reported to a FireSink.
type FireRecord struct {
	WebhookID string
	EventID   string
	Trigger   string
	Status    string
	Error     string
	FiredAt   time.Time
}

// FireSink receives the outcome of each attempted delivery. Sinks are
// best-effort from the dispatcher's point of view; a sink failure is logged
// and never fails the dispatch cycle.
type FireSink interface {
	RecordFire(ctx context.Context, record FireRecord) error
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}
