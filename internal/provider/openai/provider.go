// Package openai adapts unified requests to the OpenAI chat completions
// API. The request is passed through near-verbatim; legacy models that
// predate chat support go through the old completions call instead.
package openai

import (
	"context"
	"net/http"
	"strings"

	openaiapi "github.com/jmbish04/ai-proxy-gateway/internal/api/openai"
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

// Provider implements domain.Provider for OpenAI.
type Provider struct {
	client     *openaiapi.Client
	counter    *tokens.Registry
	configured bool
	baseURL    string
	httpClient *http.Client
}

// New creates a new OpenAI adapter.
func New(apiKey string, counter *tokens.Registry, opts ...ProviderOption) *Provider {
	p := &Provider{
		counter:    counter,
		configured: apiKey != "",
	}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []openaiapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, openaiapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(p.httpClient))
	}
	p.client = openaiapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() domain.ProviderTag {
	return domain.ProviderOpenAI
}

func (p *Provider) Available() bool {
	return p.configured
}

// legacyModel reports whether the model predates chat support and needs
// the single-prompt completions call.
func legacyModel(model string) bool {
	if strings.HasPrefix(model, "text-davinci") {
		return true
	}
	switch model {
	case "davinci", "curie", "babbage", "ada":
		return true
	}
	return false
}

func (p *Provider) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	if !p.configured {
		return nil, domain.ErrServiceUnavailable("openai is not configured: api key is required").
			WithCode(domain.ErrorCodeProviderUnavailable).WithBackend(domain.ProviderOpenAI)
	}

	if legacyModel(req.Model) {
		return p.legacyChat(ctx, req)
	}

	apiReq := &openaiapi.ChatCompletionRequest{
		Model:            req.Model,
		Messages:         make([]openaiapi.ChatCompletionMessage, len(req.Messages)),
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		Stop:             []string(req.Stop),
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	}
	for i, m := range req.Messages {
		apiReq.Messages[i] = openaiapi.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, domain.ErrBackend("openai returned no choices").
			WithCode(domain.ErrorCodeEmptyResponse).WithBackend(domain.ProviderOpenAI)
	}

	choices := make([]domain.Choice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = domain.Choice{
			Index:        c.Index,
			Message:      domain.Message{Role: c.Message.Role, Content: c.Message.Content},
			FinishReason: mapFinishReason(c.FinishReason),
		}
	}

	return &domain.ChatResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: resp.Created,
		Model:   req.Model,
		Choices: choices,
		Usage:   p.usageOrEstimate(resp.Usage, req, choices[0].Message.Content),
	}, nil
}

// legacyChat renders the conversation as a single prompt and calls the
// old completions endpoint.
func (p *Provider) legacyChat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	parts := make([]string, len(req.Messages))
	for i, m := range req.Messages {
		parts[i] = m.Content
	}
	prompt := strings.Join(parts, "\n\n")

	apiReq := &openaiapi.CompletionRequest{
		Model:            req.Model,
		Prompt:           prompt,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		Stop:             []string(req.Stop),
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	}

	resp, err := p.client.CreateCompletion(ctx, apiReq)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, domain.ErrBackend("openai returned no choices").
			WithCode(domain.ErrorCodeEmptyResponse).WithBackend(domain.ProviderOpenAI)
	}

	c := resp.Choices[0]
	choice := domain.Choice{
		Index:        0,
		Message:      domain.Message{Role: "assistant", Content: c.Text},
		FinishReason: mapFinishReason(c.FinishReason),
	}

	return &domain.ChatResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: resp.Created,
		Model:   req.Model,
		Choices: []domain.Choice{choice},
		Usage:   p.usageOrEstimate(resp.Usage, req, c.Text),
	}, nil
}

func (p *Provider) Completion(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return provider.CompletionViaChat(ctx, p, req)
}

// usageOrEstimate passes native usage through when reported and
// synthesizes it from the token estimator otherwise.
func (p *Provider) usageOrEstimate(u *openaiapi.Usage, req *domain.ChatRequest, completion string) *domain.Usage {
	if u != nil {
		return &domain.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.PromptTokens + u.CompletionTokens,
		}
	}
	promptTokens := p.counter.EstimateMessages(req.Messages, req.Model)
	completionTokens := p.counter.Estimate(completion, req.Model)
	return &domain.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

func mapFinishReason(reason string) *string {
	if reason == "" {
		return nil
	}
	return &reason
}
