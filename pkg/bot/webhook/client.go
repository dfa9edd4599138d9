// Package webhook delivers translated messages to the bot platform webhook and
// verifies the signature of messages the bot platform sends back.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"botbridge/pkg/bot"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// StatusError is returned when the bot platform answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bot webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("bot webhook returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	url    string
	secret string
	http   *resty.Client
	log    *slog.Logger
}

// NewClient builds a webhook client for url, signing bodies with secret.
func NewClient(url string, secret string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("bot webhook url is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	http := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		url:    url,
		secret: secret,
		http:   http,
		log:    log.With("component", "bot.webhook"),
	}, nil
}

// Send posts one message to the bot webhook.
func (c *Client) Send(ctx context.Context, msg bot.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode bot message: %w", err)
	}

	req := c.http.R().SetContext(ctx).SetBody(body)
	if c.secret != "" {
		req.SetHeader(SignatureHeader, Sign(body, c.secret))
	}

	resp, err := req.Post(c.url)
	if err != nil {
		return fmt.Errorf("post bot message: %w", err)
	}
	if resp.IsError() {
		return &StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}

	c.log.Debug("Message forwarded to bot", "user_id", msg.UserID, "status", resp.StatusCode())
	return nil
}
