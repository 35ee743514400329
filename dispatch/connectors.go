package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-webhooks/core"
	"github.com/goliatone/go-webhooks/urlcheck"
)

const defaultDeliveryTimeout = 30 * time.Second

// postJSON validates the destination, marshals the payload, and submits it
// through the transport adapter. Responses outside 2xx/3xx fail with a
// delivery error naming the webhook.
func postJSON(
	ctx context.Context,
	transport core.TransportAdapter,
	webhook core.WebhookConfig,
	rawURL string,
	payload any,
	limits DeliveryLimits,
) error {
	if transport == nil {
		return fmt.Errorf("dispatch: transport adapter is required")
	}
	destination, err := urlcheck.Validate(rawURL)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dispatch: encode payload for webhook %q: %w", webhook.Name, err)
	}
	timeout := limits.Timeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}

	res, err := transport.Do(ctx, core.TransportRequest{
		Method:               http.MethodPost,
		URL:                  destination,
		Headers:              map[string]string{"Content-Type": "application/json"},
		Body:                 body,
		Timeout:              timeout,
		MaxResponseBodyBytes: limits.MaxResponseBodyBytes,
		Metadata: map[string]any{
			"webhook_name": webhook.Name,
			"webhook_type": webhook.Type,
		},
	})
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return deliveryFailedError(webhook, res.StatusCode)
	}
	return nil
}

func deliveryFailedError(webhook core.WebhookConfig, statusCode int) error {
	return goerrors.New(
		fmt.Sprintf(
			"dispatch: delivery failed for webhook %q (type %q) with status %d",
			webhook.Name,
			webhook.Type,
			statusCode,
		),
		goerrors.CategoryOperation,
	).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.WebhookErrorDeliveryFailed).
		WithMetadata(map[string]any{
			"webhook_name": webhook.Name,
			"webhook_type": webhook.Type,
			"status_code":  statusCode,
		})
}
