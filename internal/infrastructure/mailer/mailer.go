// Package mailer sends transactional email through an HTTP email API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/config"
)

// Message is one outgoing email.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// Client posts messages to the configured email API. Credentials are read
// on every send.
type Client struct {
	httpClient *http.Client
	settings   func() config.EmailSettings
	logger     *slog.Logger
}

func New(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{httpClient: httpClient, settings: config.Email, logger: logger}
}

// WithSettings replaces the settings source. It is intended for tests.
func (c *Client) WithSettings(fn func() config.EmailSettings) *Client {
	c.settings = fn
	return c
}

type sendRequest struct {
	From string `json:"from"`
	Message
}

// Send delivers m. It returns domain.ErrNotConfigured without an API key and
// a *domain.UpstreamError when the provider rejects the message.
func (c *Client) Send(ctx context.Context, m Message) error {
	s := c.settings()
	if !s.Configured() {
		return fmt.Errorf("email: %w", domain.ErrNotConfigured)
	}
	if len(m.To) == 0 {
		return domain.Invalid("to", "at least one recipient is required")
	}

	body, err := json.Marshal(sendRequest{From: s.From, Message: m})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.UpstreamError{Provider: "email", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("email provider rejected message",
			slog.Int("status", resp.StatusCode),
			slog.String("subject", m.Subject),
		)
		return &domain.UpstreamError{Provider: "email", Err: fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))}
	}

	c.logger.Info("email sent", slog.String("subject", m.Subject), slog.Int("recipients", len(m.To)))
	return nil
}
