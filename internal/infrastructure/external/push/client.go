// Package push implements the webhook client for the push-notification
// delivery channel. Delivery itself (device tokens, APNs/FCM fanout) lives
// behind the webhook; the hub only posts the rendered message.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the push webhook client.
type ClientConfig struct {
	// WebhookURL is the delivery endpoint
	WebhookURL string

	// Token is the bearer token for authentication
	Token string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(webhookURL, token string) ClientConfig {
	return ClientConfig{
		WebhookURL: webhookURL,
		Token:      token,
		Timeout:    10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client posts notifications to the push webhook. It implements the
// PushSender interface expected by the event handlers and jobs.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
}

// NewClient creates a new push webhook client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  config.Logger,
		retrier: retry.PushRetrier(),
	}
}

// deliveryPayload is the webhook request body.
type deliveryPayload struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	SentAt string `json:"sent_at"`
}

// Send delivers a notification to the user.
func (c *Client) Send(ctx context.Context, userID, title, body string) error {
	if userID == "" {
		return shared.WrapError("push", "Send", shared.ErrValidation, "user id is required", nil)
	}
	if title == "" && body == "" {
		return shared.WrapError("push", "Send", shared.ErrValidation, "notification is empty", nil)
	}

	payload := deliveryPayload{
		UserID: userID,
		Title:  title,
		Body:   body,
		SentAt: time.Now().UTC().Format(time.RFC3339),
	}

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.deliver(ctx, payload)
	})
	if err != nil {
		return shared.WrapError("push", "Send", shared.ErrExternalService, "push delivery request failed", err)
	}

	c.logger.Debug("push delivered", "user_id", userID, "title", title)
	return nil
}

// IsHealthy checks whether the webhook endpoint is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.config.WebhookURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP INTERNALS
// ══════════════════════════════════════════════════════════════════════════════

// deliver performs a single webhook call. Errors are classified for the
// retrier: network and 5xx failures retry, other 4xx fail fast.
func (c *Client) deliver(ctx context.Context, payload deliveryPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Content-Type", "application/json")

	if c.config.Debug {
		c.logger.Debug("push webhook call", "user_id", payload.UserID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return retry.Permanent(err)
		}
		return retry.Retryable(fmt.Errorf("webhook request: %w", err))
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("webhook returned %d", resp.StatusCode))
	default:
		return retry.Permanent(fmt.Errorf("webhook returned %d", resp.StatusCode))
	}
}
