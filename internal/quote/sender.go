package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-manzano/internal/obs"
	"github.com/noah-isme/backend-manzano/internal/resilience"
)

// TokenHeader authenticates requests to the webhook receiver.
const TokenHeader = "X-ELMANZANO-TOKEN"

const maxResponseBytes = 64 << 10

// Sender delivers a payload to a webhook path.
type Sender interface {
	Send(ctx context.Context, path string, payload any) error
}

// RemoteError reports a non-2xx answer from the webhook receiver.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// WebhookSender posts JSON payloads to the receiver. Each call makes a single
// attempt; the client timeout and breaker bound it.
type WebhookSender struct {
	BaseURL string
	Token   string
	Client  resilience.HTTPClient
	Logger  *zerolog.Logger
}

// Send implements Sender.
func (s WebhookSender) Send(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	url := strings.TrimRight(s.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, s.Token)

	client := s.Client
	client.MaxAttempts = 1
	start := time.Now()
	resp, err := client.Do(ctx, req)
	if err != nil {
		s.observe(start, "error")
		if errors.Is(err, resilience.ErrOpenCircuit) {
			return &RemoteError{Status: http.StatusServiceUnavailable, Message: "servicio de envío no disponible"}
		}
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.observe(start, "rejected")
		remote := &RemoteError{Status: resp.StatusCode, Message: remoteMessage(data, resp.StatusCode)}
		s.logger().Warn().Int("status", resp.StatusCode).Str("path", path).Str("detail", remote.Message).Msg("webhook_rejected")
		return remote
	}
	s.observe(start, "ok")
	return nil
}

// remoteMessage prefers the receiver's message, then its error, then the status.
func remoteMessage(data []byte, status int) string {
	var body struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		for _, v := range []any{body.Message, body.Error} {
			if msg := textOf(v); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(out)
}

func (s WebhookSender) observe(start time.Time, result string) {
	if obs.WebhookAttemptLatency == nil {
		return
	}
	obs.WebhookAttemptLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
}

func (s WebhookSender) logger() *zerolog.Logger {
	if s.Logger == nil {
		return &nopLogger
	}
	return s.Logger
}
