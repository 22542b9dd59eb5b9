package push

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

	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
)

const (
	DefaultURL                    = "https://exp.host/--/api/v2/push/send"
	defaultTimeout                = 10 * time.Second
	responseBodyReadLimit   int64 = 1024
	deviceNotRegisteredCode       = "DeviceNotRegistered"
)

// ErrDeviceNotRegistered means the token is stale and should be dropped.
var ErrDeviceNotRegistered = errors.New("push token no longer registered")

// Message is a single Expo push notification.
type Message struct {
	To    string         `json:"to"`
	Sound string         `json:"sound,omitempty"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Client sends notifications through the Expo push service.
type Client struct {
	httpClient  *http.Client
	url         string
	accessToken string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithURL overrides the Expo push endpoint.
func WithURL(url string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			c.url = trimmed
		}
	}
}

// WithAccessToken enables Expo enhanced push security.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = strings.TrimSpace(token)
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// IsExpoToken reports whether token looks like an Expo push token.
func IsExpoToken(token string) bool {
	token = strings.TrimSpace(token)
	if !strings.HasSuffix(token, "]") {
		return false
	}
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// Send delivers one message. Delivery is best effort; callers decide whether
// a failure matters.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "push client not configured")
	}
	if !IsExpoToken(msg.To) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid push token")
	}
	if msg.Sound == "" {
		msg.Sound = "default"
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal push message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build push request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute push request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), "push request failed")
	}

	var ticket struct {
		Data struct {
			Status  string `json:"status"`
			ID      string `json:"id"`
			Message string `json:"message"`
			Details struct {
				Error string `json:"error"`
			} `json:"details"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode push response")
	}
	if ticket.Data.Status == "error" {
		if ticket.Data.Details.Error == deviceNotRegisteredCode {
			return ErrDeviceNotRegistered
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New(ticket.Data.Message), "push rejected")
	}
	return nil
}
