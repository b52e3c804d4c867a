package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"loginwatch/logger"
)

var ErrNotConfigured = errors.New("no webhook URL configured")

// TruncationMarker is appended when a message exceeds the channel limit.
const TruncationMarker = "\n[truncated]"

// Notifier delivers the run summary to an outbound messaging channel.
type Notifier interface {
	// Configured reports whether a delivery target exists. An unconfigured
	// notifier is not an error; the summary is simply not delivered.
	Configured() bool

	Send(ctx context.Context, text string) error
}

// Webhook posts the summary as a JSON text message to a messaging webhook.
type Webhook struct {
	url    string
	maxLen int
	client *http.Client
	logger logger.Logger
}

// NewWebhook creates a webhook notifier. An empty URL yields an
// unconfigured notifier. maxLen bounds the message per the channel's known
// size limit; zero or negative means no bound.
func NewWebhook(url string, maxLen int, log logger.Logger) *Webhook {
	return &Webhook{
		url:    url,
		maxLen: maxLen,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: log,
	}
}

// Configured reports whether a webhook URL is set.
func (w *Webhook) Configured() bool {
	return w.url != ""
}

// Send posts the message, truncating to the channel limit first.
func (w *Webhook) Send(ctx context.Context, text string) error {
	if !w.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(map[string]string{"text": Truncate(text, w.maxLen)})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}

	w.logger.Info(ctx, "summary delivered", map[string]interface{}{
		"bytes": len(body),
	})
	return nil
}

// Truncate bounds text to max bytes, appending the truncation marker within
// the bound. max <= 0 means unbounded.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	if max <= len(TruncationMarker) {
		return text[:max]
	}
	return text[:max-len(TruncationMarker)] + TruncationMarker
}
