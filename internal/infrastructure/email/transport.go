// Package email delivers rendered notifications through an HTTP email provider.
package email

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseSize = 64 << 10

var (
	ErrNoRecipient      = errors.New("email: recipient is required")
	ErrProviderRejected = errors.New("email: provider rejected message")
	ErrProviderDown     = errors.New("email: provider unavailable")
)

// Message is one outbound email
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Transport sends a message. Implementations do not retry.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPConfig configures HTTPTransport
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

// HTTPTransport posts messages to a Resend-compatible JSON API
type HTTPTransport struct {
	config     HTTPConfig
	httpClient *http.Client
}

// NewHTTPTransport creates a transport for the provider at cfg.BaseURL
func NewHTTPTransport(cfg HTTPConfig) (*HTTPTransport, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("email: api key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &HTTPTransport{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Send delivers msg once
func (t *HTTPTransport) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	body, err := json.Marshal(sendRequest{
		From:    t.config.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("email: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d", ErrProviderDown, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d: %s", ErrProviderRejected, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// LogTransport writes messages to the log instead of sending them.
// Used outside production when no provider key is configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport creates a LogTransport
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger.Named("email")}
}

// Send logs the message envelope
func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	t.logger.Info("Email not sent (log transport)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("text_bytes", len(msg.Text)),
	)
	return nil
}
