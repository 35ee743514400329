package dispatch

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

type stubTransport struct {
	mu       sync.Mutex
	requests []core.TransportRequest
	status   int
	err      error
}

func (s *stubTransport) Kind() string { return "stub" }

func (s *stubTransport) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return core.TransportResponse{}, s.err
	}
	status := s.status
	if status == 0 {
		status = 200
	}
	return core.TransportResponse{StatusCode: status}, nil
}

func (s *stubTransport) lastRequest(t *testing.T) core.TransportRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatalf("expected at least one transport request")
	}
	return s.requests[len(s.requests)-1]
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	registry := NewRegistry()
	transport := &stubTransport{}

	if err := registry.Register(NewGenericConnector(transport)); err != nil {
		t.Fatalf("register generic: %v", err)
	}
	if err := registry.Register(NewDiscordConnector(transport)); err != nil {
		t.Fatalf("register discord: %v", err)
	}
	if err := registry.Register(NewGenericConnector(transport)); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	if _, ok := registry.Get(" GENERIC "); !ok {
		t.Fatalf("expected kind lookup to normalize case and whitespace")
	}
	kinds := registry.List()
	if len(kinds) != 2 || kinds[0] != "discord" || kinds[1] != "generic" {
		t.Fatalf("expected sorted kinds, got %v", kinds)
	}
}

func TestRegistry_PolicyOverrides(t *testing.T) {
	registry := NewRegistry()
	if _, ok := registry.Policy("discord"); ok {
		t.Fatalf("expected no policy before registration")
	}
	if err := registry.RegisterPolicy("Discord", core.RateLimitPolicy{MinInterval: time.Minute}); err != nil {
		t.Fatalf("register policy: %v", err)
	}
	policy, ok := registry.Policy("discord")
	if !ok || policy.MinInterval != time.Minute {
		t.Fatalf("expected registered policy, got %+v ok=%v", policy, ok)
	}
}

func TestGenericConnector_PostsRenderedFieldsAndSnapshot(t *testing.T) {
	transport := &stubTransport{}
	connector := NewGenericConnector(transport)
	webhook := core.WebhookConfig{
		Name:    "generic_hook",
		Type:    TypeGeneric,
		Enabled: true,
		Config: map[string]string{
			"webhook_url": "https://example.com/hook",
			"message":     "{{ song.title }}",
		},
	}
	event := core.DispatchEvent{
		Triggers:   []string{"song_changed"},
		Data:       map[string]any{"song": map[string]any{"title": "Foo"}},
		OccurredAt: time.Unix(1_700_000_000, 0).UTC(),
	}

	err := connector.Deliver(context.Background(), webhook, map[string]string{
		"webhook_url": "https://example.com/hook",
		"message":     "Foo",
	}, event, DeliveryLimits{})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	req := transport.lastRequest(t)
	if req.URL != "https://example.com/hook" {
		t.Fatalf("expected configured destination, got %q", req.URL)
	}
	if req.Method != "POST" {
		t.Fatalf("expected POST, got %q", req.Method)
	}

	var payload genericPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Webhook != "generic_hook" {
		t.Fatalf("expected webhook name in payload, got %q", payload.Webhook)
	}
	if payload.Fields["message"] != "Foo" {
		t.Fatalf("expected rendered field, got %+v", payload.Fields)
	}
	if _, ok := payload.Fields["webhook_url"]; ok {
		t.Fatalf("expected destination not to leak into payload fields")
	}
}

func TestGenericConnector_MissingURLIsIncompleteConfig(t *testing.T) {
	connector := NewGenericConnector(&stubTransport{})
	webhook := core.WebhookConfig{Name: "broken", Type: TypeGeneric}

	err := connector.Deliver(context.Background(), webhook, map[string]string{}, core.DispatchEvent{}, DeliveryLimits{})
	if err == nil {
		t.Fatalf("expected missing webhook_url to fail")
	}
	if !strings.Contains(err.Error(), "missing required configuration") {
		t.Fatalf("expected incomplete configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"broken"`) {
		t.Fatalf("expected error to name the webhook, got %v", err)
	}
}

func TestConnectors_RejectReservedDestinations(t *testing.T) {
	transport := &stubTransport{}
	webhook := core.WebhookConfig{
		Name:    "internal_probe",
		Type:    TypeGeneric,
		Enabled: true,
		Config:  map[string]string{"webhook_url": "http://127.0.0.1/hook"},
	}

	err := NewGenericConnector(transport).Deliver(context.Background(), webhook, map[string]string{}, core.DispatchEvent{}, DeliveryLimits{})
	if err == nil {
		t.Fatalf("expected reserved destination to fail")
	}
	if len(transport.requests) != 0 {
		t.Fatalf("expected no transport call for a reserved destination")
	}
}

func TestDiscordConnector_BuildsEmbedPayload(t *testing.T) {
	transport := &stubTransport{}
	connector := NewDiscordConnector(transport)
	webhook := core.WebhookConfig{
		Name:    "discord_hook",
		Type:    TypeDiscord,
		Enabled: true,
		Config:  map[string]string{"webhook_url": "https://discord.com/api/webhooks/1/abc"},
	}

	err := connector.Deliver(context.Background(), webhook, map[string]string{
		"title":       "Now Playing",
		"description": "Foo by Bar",
		"author":      "Station",
	}, core.DispatchEvent{}, DeliveryLimits{})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	var payload discordPayload
	if err := json.Unmarshal(transport.lastRequest(t).Body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(payload.Embeds))
	}
	if payload.Embeds[0].Title != "Now Playing" {
		t.Fatalf("expected embed title, got %q", payload.Embeds[0].Title)
	}
	if payload.Embeds[0].Author == nil || payload.Embeds[0].Author.Name != "Station" {
		t.Fatalf("expected embed author, got %+v", payload.Embeds[0].Author)
	}
}

func TestSlackConnector_RequiresText(t *testing.T) {
	transport := &stubTransport{}
	connector := NewSlackConnector(transport)
	webhook := core.WebhookConfig{
		Name:    "slack_hook",
		Type:    TypeSlack,
		Enabled: true,
		Config:  map[string]string{"webhook_url": "https://hooks.slack.com/services/x"},
	}

	err := connector.Deliver(context.Background(), webhook, map[string]string{}, core.DispatchEvent{}, DeliveryLimits{})
	if err == nil {
		t.Fatalf("expected missing text to fail")
	}

	webhook.Config["text"] = "{{ song.title }}"
	err = connector.Deliver(context.Background(), webhook, map[string]string{"text": "Foo"}, core.DispatchEvent{}, DeliveryLimits{})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	var payload slackPayload
	if err := json.Unmarshal(transport.lastRequest(t).Body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Text != "Foo" {
		t.Fatalf("expected rendered text, got %q", payload.Text)
	}
}

func TestGotifyConnector_BuildsMessageURL(t *testing.T) {
	transport := &stubTransport{}
	connector := NewGotifyConnector(transport)
	webhook := core.WebhookConfig{
		Name:    "gotify_hook",
		Type:    TypeGotify,
		Enabled: true,
		Config: map[string]string{
			"api_url": "https://gotify.example.com/",
			"token":   "app token",
		},
	}

	err := connector.Deliver(context.Background(), webhook, map[string]string{
		"title":    "Now Playing",
		"message":  "Foo",
		"priority": "5",
	}, core.DispatchEvent{}, DeliveryLimits{})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	req := transport.lastRequest(t)
	if req.URL != "https://gotify.example.com/message?token=app+token" {
		t.Fatalf("unexpected destination %q", req.URL)
	}
	var payload gotifyPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Priority != 5 {
		t.Fatalf("expected parsed priority, got %d", payload.Priority)
	}
}

func TestPostJSON_FailsOnErrorStatus(t *testing.T) {
	transport := &stubTransport{status: 502}
	webhook := core.WebhookConfig{
		Name:    "flaky",
		Type:    TypeGeneric,
		Enabled: true,
		Config:  map[string]string{"webhook_url": "https://example.com/hook"},
	}

	err := NewGenericConnector(transport).Deliver(context.Background(), webhook, map[string]string{}, core.DispatchEvent{}, DeliveryLimits{})
	if err == nil {
		t.Fatalf("expected 502 to fail delivery")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestPostJSON_AppliesDeliveryLimits(t *testing.T) {
	transport := &stubTransport{}
	connector := NewGenericConnector(transport)
	webhook := core.WebhookConfig{
		Name:    "bounded",
		Type:    TypeGeneric,
		Enabled: true,
		Config:  map[string]string{"webhook_url": "https://example.com/hook"},
	}
	limits := DeliveryLimits{Timeout: 5 * time.Second, MaxResponseBodyBytes: 99}

	if err := connector.Deliver(context.Background(), webhook, map[string]string{}, core.DispatchEvent{}, limits); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	req := transport.lastRequest(t)
	if req.Timeout != 5*time.Second {
		t.Fatalf("expected limits timeout on request, got %v", req.Timeout)
	}
	if req.MaxResponseBodyBytes != 99 {
		t.Fatalf("expected limits body cap on request, got %d", req.MaxResponseBodyBytes)
	}

	// A connector-level timeout overrides the passed-in default.
	connector.Timeout = 2 * time.Second
	if err := connector.Deliver(context.Background(), webhook, map[string]string{}, core.DispatchEvent{}, limits); err != nil {
		t.Fatalf("deliver with connector timeout: %v", err)
	}
	if req := transport.lastRequest(t); req.Timeout != 2*time.Second {
		t.Fatalf("expected connector timeout to win, got %v", req.Timeout)
	}
}
