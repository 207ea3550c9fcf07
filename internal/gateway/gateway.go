// Package gateway provides the thin authenticated client for the hosted
// backend: named edge-function invocations and table queries over REST.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appmetrics "github.com/pulsedesk/pulsedesk/internal/app/metrics"
	"github.com/pulsedesk/pulsedesk/internal/errors"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

const maxResponseBytes = 8 << 20

// RemoteError is the tagged failure returned for every gateway call.
type RemoteError struct {
	Code    errors.ErrorCode
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// retryable reports whether the failure class is worth another attempt.
// Auth rejections are never retried.
func (e *RemoteError) retryable() bool {
	switch e.Code {
	case errors.CodeTransport:
		return true
	case errors.CodeBackend:
		return e.Status >= 500 || e.Status == http.StatusTooManyRequests || e.Status == http.StatusRequestTimeout
	}
	return false
}

// Config configures the gateway client. APIKey is the service key attached
// to every request; the caller's bearer credential is passed per call.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	// Optional explicit allowlist; if empty, derived from BaseURL host.
	AllowedHosts []string
}

// Client performs authenticated calls against the hosted backend.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxAttempts int
	backoff     time.Duration
	allowed     map[string]struct{}
	log         *logger.Logger
}

// New creates a gateway client.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if log == nil {
		log = logger.NewDefault("gateway")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	allowed := make(map[string]struct{})
	if len(cfg.AllowedHosts) == 0 {
		if u, err := url.Parse(cfg.BaseURL); err == nil && u.Hostname() != "" {
			allowed[u.Hostname()] = struct{}{}
		}
	} else {
		for _, h := range cfg.AllowedHosts {
			if h != "" {
				allowed[h] = struct{}{}
			}
		}
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		maxAttempts: attempts,
		backoff:     backoff,
		allowed:     allowed,
		log:         log,
	}, nil
}

// Invoke calls a named edge function with a JSON payload. The caller's
// bearer token is explicit so the client stays free of ambient auth state.
func (c *Client) Invoke(ctx context.Context, token, name string, payload interface{}) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &RemoteError{Code: errors.CodeValidation, Message: "function name is required"}
	}

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &RemoteError{Code: errors.CodeShape, Message: fmt.Sprintf("encode payload: %v", err)}
		}
		body = encoded
	}

	endpoint := c.baseURL + "/functions/v1/" + url.PathEscape(name)
	return c.do(ctx, "invoke", http.MethodPost, endpoint, token, body)
}

// Query reads rows from a table with pre-encoded filters.
func (c *Client) Query(ctx context.Context, token, table string, filters url.Values) ([]byte, error) {
	if strings.TrimSpace(table) == "" {
		return nil, &RemoteError{Code: errors.CodeValidation, Message: "table is required"}
	}

	endpoint := c.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(filters) > 0 {
		endpoint += "?" + filters.Encode()
	}
	return c.do(ctx, "query", http.MethodGet, endpoint, token, nil)
}

func (c *Client) do(ctx context.Context, kind, method, endpoint, token string, body []byte) ([]byte, error) {
	if err := c.ensureAllowed(endpoint); err != nil {
		return nil, err
	}

	var lastErr *RemoteError
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				appmetrics.RecordGatewayRequest(kind, string(errors.CodeTransport))
				return nil, &RemoteError{Code: errors.CodeTransport, Message: ctx.Err().Error()}
			}
		}

		data, remoteErr := c.attempt(ctx, method, endpoint, token, body)
		if remoteErr == nil {
			appmetrics.RecordGatewayRequest(kind, "")
			return data, nil
		}
		lastErr = remoteErr
		if !remoteErr.retryable() {
			break
		}
		c.log.WithField("endpoint", endpoint).
			WithField("attempt", attempt+1).
			WithField("code", string(remoteErr.Code)).
			Warn("gateway call failed, retrying")
	}

	appmetrics.RecordGatewayRequest(kind, string(lastErr.Code))
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, endpoint, token string, body []byte) ([]byte, *RemoteError) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &RemoteError{Code: errors.CodeTransport, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteError{Code: errors.CodeTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RemoteError{Code: errors.CodeTransport, Message: fmt.Sprintf("read body: %v", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &RemoteError{Code: errors.CodeAuth, Status: resp.StatusCode, Message: trimBody(data)}
	case resp.StatusCode >= 400:
		return nil, &RemoteError{Code: errors.CodeBackend, Status: resp.StatusCode, Message: trimBody(data)}
	}
	return data, nil
}

func (c *Client) ensureAllowed(rawURL string) *RemoteError {
	if len(c.allowed) == 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return &RemoteError{Code: errors.CodeValidation, Message: "invalid url"}
	}
	if _, ok := c.allowed[u.Hostname()]; !ok {
		return &RemoteError{Code: errors.CodeValidation, Message: fmt.Sprintf("host not allowed: %s", u.Hostname())}
	}
	return nil
}

func trimBody(data []byte) string {
	msg := strings.TrimSpace(string(data))
	if len(msg) > 512 {
		msg = msg[:512] + "...(truncated)"
	}
	if msg == "" {
		msg = "request failed"
	}
	return msg
}
