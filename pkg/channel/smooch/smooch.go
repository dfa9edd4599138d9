// Package smooch implements the channel transport over the aggregator's REST API.
package smooch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"botbridge/pkg/channel"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.smooch.io"
	defaultTimeout = 30 * time.Second

	messagesPath = "/v1.1/apps/{appId}/appusers/{userId}/messages"
	appUserPath  = "/v1.1/apps/{appId}/appusers/{userId}"
)

// Config holds the credentials of one aggregator app.
type Config struct {
	BaseURL string
	AppID   string
	KeyID   string
	Secret  string
	Proxy   string
	Timeout time.Duration
}

// StatusError is returned when the aggregator answers with a non-2xx status.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: aggregator returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Client sends messages and looks up users. It satisfies channel.Transport.
type Client struct {
	appID string
	http  *resty.Client
	log   *slog.Logger
}

type sendMessageResponse struct {
	Message channel.SendResult `json:"message"`
}

type appUserResponse struct {
	AppUser channel.User `json:"appUser"`
}

func New(cfg Config, log *slog.Logger) (*Client, error) {
	appID := strings.TrimSpace(cfg.AppID)
	if appID == "" {
		return nil, errors.New("smooch app id is required")
	}
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("smooch key id and secret are required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "channel.smooch")

	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetBasicAuth(strings.TrimSpace(cfg.KeyID), strings.TrimSpace(cfg.Secret)).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if proxy := strings.TrimSpace(cfg.Proxy); proxy != "" {
		log.Info("Using outbound proxy", "proxy", proxy)
		http.SetProxy(proxy)
	}

	return &Client{appID: appID, http: http, log: log}, nil
}

// SendMessage posts msg to the user's conversation.
func (c *Client) SendMessage(ctx context.Context, userID string, msg channel.Message) (channel.SendResult, error) {
	var out sendMessageResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(c.pathParams(userID)).
		SetBody(msg).
		SetResult(&out).
		Post(messagesPath)
	if err != nil {
		return channel.SendResult{}, fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() {
		return channel.SendResult{}, statusError("send message", resp)
	}

	c.log.Debug("Message accepted", "user_id", userID, "message_id", out.Message.MessageID)
	return out.Message, nil
}

// GetUser fetches the user with their connected clients.
func (c *Client) GetUser(ctx context.Context, userID string) (channel.User, error) {
	var out appUserResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(c.pathParams(userID)).
		SetResult(&out).
		Get(appUserPath)
	if err != nil {
		return channel.User{}, fmt.Errorf("get user: %w", err)
	}
	if resp.IsError() {
		return channel.User{}, statusError("get user", resp)
	}

	return out.AppUser, nil
}

func (c *Client) pathParams(userID string) map[string]string {
	return map[string]string{
		"appId":  c.appID,
		"userId": userID,
	}
}

func statusError(operation string, resp *resty.Response) error {
	return &StatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode(),
		Body:       strings.TrimSpace(resp.String()),
	}
}
