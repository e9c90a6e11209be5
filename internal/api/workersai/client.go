// Package workersai is a minimal HTTP client for the Cloudflare Workers AI
// run endpoint.
package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is an HTTP client for the Workers AI API, scoped to one account.
type Client struct {
	accountID  string
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Workers AI API client.
func NewClient(accountID, apiToken string, opts ...ClientOption) *Client {
	c := &Client{
		accountID:  accountID,
		apiToken:   apiToken,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run invokes a text-generation model and returns the raw result envelope.
func (c *Client) Run(ctx context.Context, model string, req *RunRequest) (*RunResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.accountID, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.ErrBackend("workers ai request failed: %v", err).WithBackend(domain.ProviderWorkersAI)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ErrBackend("failed to read workers ai response: %v", err).WithBackend(domain.ProviderWorkersAI)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrBackend("workers ai API error (status %d): %s", resp.StatusCode, string(respBody)).
			WithBackend(domain.ProviderWorkersAI)
	}

	var result RunResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.ErrBackend("failed to unmarshal workers ai response: %v", err).WithBackend(domain.ProviderWorkersAI)
	}

	if !result.Success {
		detail := "unknown error"
		if len(result.Errors) > 0 {
			detail = fmt.Sprintf("%d: %s", result.Errors[0].Code, result.Errors[0].Message)
		}
		return nil, domain.ErrBackend("workers ai reported failure: %s", detail).WithBackend(domain.ProviderWorkersAI)
	}

	return &result, nil
}
