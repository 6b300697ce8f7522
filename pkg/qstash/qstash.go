package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 1 << 20

// Config describes the QStash publisher. Publishing is optional: when the
// token or destination is missing the feature is simply off.
type Config struct {
	URL         string        `split_words:"true" default:"https://qstash.upstash.io"`
	Token       string        `split_words:"true"`
	Destination string        `split_words:"true"`
	Timeout     time.Duration `split_words:"true" default:"10s"`
}

// Enabled reports whether the config is complete enough to publish.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != "" &&
		strings.TrimSpace(c.Token) != "" &&
		strings.TrimSpace(c.Destination) != ""
}

// ClientOption customizes Client.
type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client publishes messages through the QStash REST API.
type Client struct {
	baseURL     string
	token       string
	destination string
	httpClient  *http.Client
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("qstash url, token and destination are required")
	}
	baseURL := strings.TrimSpace(cfg.URL)
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       strings.TrimSpace(cfg.Token),
		destination: strings.TrimSpace(cfg.Destination),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

type publishResponse struct {
	MessageID string `json:"messageId"`
}

// PublishJSON posts one JSON message to the configured destination and
// returns the QStash message id.
func (c *Client) PublishJSON(ctx context.Context, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("qstash: marshal payload: %w", err)
	}

	endpoint := c.baseURL + "/v2/publish/" + c.destination
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("qstash: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qstash: publish: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", fmt.Errorf("qstash: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("qstash: publish returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed publishResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("qstash: parse response: %w", err)
	}
	return parsed.MessageID, nil
}
