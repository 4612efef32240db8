// Package notify is an HTTP client for an external notification
// endpoint. It satisfies the dispatch messenger contract: one POST per
// message, the response carries the created message id.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:9100",
		Timeout:    10 * time.Second,
		MaxRetries: 3,
	}
}

type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg *Config, logger *logrus.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

type createMessageRequest struct {
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Recipients   []string `json:"recipients"`
	Source       string   `json:"source,omitempty"`
	AutomationID uint     `json:"automation_id"`
}

type createMessageResponse struct {
	ID string `json:"id"`
}

// CreateMessage posts the message and returns the remote id. Transient
// failures (5xx, transport errors) are retried up to MaxRetries times.
func (c *Client) CreateMessage(ctx context.Context, title, body string, recipients []string, source string, automationID uint) (string, error) {
	payload := createMessageRequest{
		Title:        title,
		Body:         body,
		Recipients:   recipients,
		Source:       source,
		AutomationID: automationID,
	}

	var lastErr error
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		id, retryable, err := c.createOnce(ctx, payload)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.Warnf("notify: attempt %d/%d failed: %v", attempt, attempts, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return "", fmt.Errorf("create message: %w", lastErr)
}

func (c *Client) createOnce(ctx context.Context, payload createMessageRequest) (string, bool, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return "", true, fmt.Errorf("server error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", false, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var out createMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if out.ID == "" {
		return "", false, fmt.Errorf("response missing message id")
	}
	return out.ID, false, nil
}
