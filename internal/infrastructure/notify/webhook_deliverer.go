package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"go.uber.org/zap"
)

// WebhookDeliverer implements port.Deliverer by posting each
// notification as JSON to a configured endpoint, typically a chat-ops
// bridge or a push-gateway relay.
type WebhookDeliverer struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookDeliverer creates a new webhook deliverer
func NewWebhookDeliverer(url string, timeout time.Duration, logger *zap.Logger) *WebhookDeliverer {
	return &WebhookDeliverer{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Deliver posts the notification. Any non-2xx response is a delivery
// failure; the caller owns retry and outbox bookkeeping.
func (d *WebhookDeliverer) Deliver(ctx context.Context, notification *entity.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	d.logger.Debug("Notification delivered",
		zap.String("id", notification.ID),
		zap.String("user_id", notification.UserID))
	return nil
}

// Verify interface compliance
var _ port.Deliverer = (*WebhookDeliverer)(nil)
