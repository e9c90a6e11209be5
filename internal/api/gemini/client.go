// Package gemini is a minimal HTTP client for the Gemini generateContent
// endpoint.
package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

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

// Client is an HTTP client for the Gemini API. The API key travels in the
// x-goog-api-key header, never as a URL query parameter.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Gemini API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateContent sends a generateContent request for the given model.
func (c *Client) GenerateContent(ctx context.Context, model string, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.ErrBackend("gemini request failed: %v", err).WithBackend(domain.ProviderGemini)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ErrBackend("failed to read gemini response: %v", err).WithBackend(domain.ProviderGemini)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, respBody)
	}

	var result GenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.ErrBackend("failed to unmarshal gemini response: %v", err).WithBackend(domain.ProviderGemini)
	}
	return &result, nil
}

// statusError translates HTTP status codes into distinguishable error
// categories, keeping the upstream detail for diagnosis.
func statusError(status int, body []byte) *domain.APIError {
	detail := upstreamMessage(body)

	var err *domain.APIError
	switch status {
	case http.StatusBadRequest:
		err = domain.ErrBackend("gemini rejected the request: %s", detail)
	case http.StatusUnauthorized:
		err = domain.ErrBackend("gemini API key is invalid: %s", detail).
			WithCode(domain.ErrorCodeInvalidAPIKey)
	case http.StatusForbidden:
		err = domain.ErrBackend("gemini permission denied: %s", detail).
			WithCode(domain.ErrorCodePermissionDenied)
	case http.StatusTooManyRequests:
		err = domain.ErrBackend("gemini rate limited: %s", detail).
			WithCode(domain.ErrorCodeRateLimited)
	default:
		err = domain.ErrBackend("gemini API error (status %d): %s", status, detail)
	}
	return err.WithBackend(domain.ProviderGemini)
}

// upstreamMessage pulls the error message out of a Gemini error body,
// falling back to the raw body text.
func upstreamMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}
