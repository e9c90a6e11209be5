// Package workersai adapts unified requests to the Cloudflare Workers AI
// run API.
package workersai

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	workersaiapi "github.com/jmbish04/ai-proxy-gateway/internal/api/workersai"
	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
	"github.com/jmbish04/ai-proxy-gateway/internal/provider"
	"github.com/jmbish04/ai-proxy-gateway/internal/tokens"
)

// ProviderOption configures the adapter.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// Provider implements domain.Provider for Workers AI. The backend never
// reports usage, so accounting is always synthesized from the token
// estimator.
type Provider struct {
	client     *workersaiapi.Client
	counter    *tokens.Registry
	logger     *slog.Logger
	configured bool
	baseURL    string
	httpClient *http.Client
}

// New creates a new Workers AI adapter.
func New(accountID, apiToken string, counter *tokens.Registry, logger *slog.Logger, opts ...ProviderOption) *Provider {
	p := &Provider{
		counter:    counter,
		logger:     logger,
		configured: accountID != "" && apiToken != "",
	}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []workersaiapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, workersaiapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, workersaiapi.WithHTTPClient(p.httpClient))
	}
	p.client = workersaiapi.NewClient(accountID, apiToken, clientOpts...)
	return p
}

func (p *Provider) Name() domain.ProviderTag {
	return domain.ProviderWorkersAI
}

func (p *Provider) Available() bool {
	return p.configured
}

func (p *Provider) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	if !p.configured {
		return nil, domain.ErrServiceUnavailable("workers ai is not configured: account id and api token are required").
			WithCode(domain.ErrorCodeProviderUnavailable).WithBackend(domain.ProviderWorkersAI)
	}

	apiReq := &workersaiapi.RunRequest{
		Messages:    make([]workersaiapi.Message, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
	}
	for i, m := range req.Messages {
		apiReq.Messages[i] = workersaiapi.Message{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.Run(ctx, req.Model, apiReq)
	if err != nil {
		return nil, err
	}

	text := p.extractText(resp.Result)

	promptTokens := p.counter.EstimateMessages(req.Messages, req.Model)
	completionTokens := p.counter.Estimate(text, req.Model)

	return &domain.ChatResponse{
		ID:      provider.NewChatID(),
		Object:  "chat.completion",
		Created: provider.Now(),
		Model:   req.Model,
		Choices: []domain.Choice{{
			Index:        0,
			Message:      domain.Message{Role: "assistant", Content: text},
			FinishReason: domain.FinishReason(domain.FinishStop),
		}},
		Usage: &domain.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

func (p *Provider) Completion(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return provider.CompletionViaChat(ctx, p, req)
}

// extractText pulls the generated text out of a run result. The result
// shape varies between model families, so extractors are tried in order
// and the raw JSON is the last resort: a well-formed backend response
// never crashes the adapter.
func (p *Provider) extractText(raw json.RawMessage) string {
	for _, extract := range resultExtractors {
		if text, ok := extract(raw); ok {
			return text
		}
	}
	p.logger.Warn("workers ai result did not match any known shape, returning raw JSON")
	return string(raw)
}

type resultExtractor func(json.RawMessage) (string, bool)

var resultExtractors = []resultExtractor{
	// Common text-generation shape: {"response": "..."}.
	func(raw json.RawMessage) (string, bool) {
		var r struct {
			Response *string `json:"response"`
		}
		if err := json.Unmarshal(raw, &r); err == nil && r.Response != nil {
			return *r.Response, true
		}
		return "", false
	},
	// Some models answer with {"text": "..."} or {"generated_text": "..."}.
	func(raw json.RawMessage) (string, bool) {
		var r struct {
			Text          *string `json:"text"`
			GeneratedText *string `json:"generated_text"`
		}
		if err := json.Unmarshal(raw, &r); err == nil {
			if r.Text != nil {
				return *r.Text, true
			}
			if r.GeneratedText != nil {
				return *r.GeneratedText, true
			}
		}
		return "", false
	},
	// OpenAI-compatible beta shape: {"choices":[{"message":{"content":"..."}}]}.
	func(raw json.RawMessage) (string, bool) {
		var r struct {
			Choices []struct {
				Message struct {
					Content *string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(raw, &r); err == nil && len(r.Choices) > 0 && r.Choices[0].Message.Content != nil {
			return *r.Choices[0].Message.Content, true
		}
		return "", false
	},
	// A bare JSON string.
	func(raw json.RawMessage) (string, bool) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
		return "", false
	},
}
