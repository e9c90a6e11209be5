// Package gemini adapts unified requests to the Gemini generateContent
// API. The mapping is the least direct of the three families: system
// messages move into a separate instruction field, roles are renamed,
// and the backend requires strict user/model alternation.
package gemini

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	geminiapi "github.com/jmbish04/ai-proxy-gateway/internal/api/gemini"
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

// Provider implements domain.Provider for Gemini.
type Provider struct {
	client     *geminiapi.Client
	counter    *tokens.Registry
	logger     *slog.Logger
	configured bool
	baseURL    string
	httpClient *http.Client
}

// New creates a new Gemini adapter.
func New(apiKey string, counter *tokens.Registry, logger *slog.Logger, opts ...ProviderOption) *Provider {
	p := &Provider{
		counter:    counter,
		logger:     logger,
		configured: apiKey != "",
	}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []geminiapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, geminiapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, geminiapi.WithHTTPClient(p.httpClient))
	}
	p.client = geminiapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() domain.ProviderTag {
	return domain.ProviderGemini
}

func (p *Provider) Available() bool {
	return p.configured
}

func (p *Provider) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	if !p.configured {
		return nil, domain.ErrServiceUnavailable("gemini is not configured: api key is required").
			WithCode(domain.ErrorCodeProviderUnavailable).WithBackend(domain.ProviderGemini)
	}

	contents, system := p.mapMessages(req.Messages)
	if len(contents) == 0 {
		return nil, domain.ErrInvalidRequest("at least one non-system message is required").
			WithParam("messages")
	}

	apiReq := &geminiapi.GenerateContentRequest{
		Contents: contents,
	}
	if system != "" {
		apiReq.SystemInstruction = &geminiapi.Content{
			Parts: []geminiapi.Part{{Text: system}},
		}
	}
	if req.Temperature != nil || req.MaxTokens != nil || req.TopP != nil || len(req.Stop) > 0 {
		apiReq.GenerationConfig = &geminiapi.GenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			TopP:            req.TopP,
			StopSequences:   []string(req.Stop),
		}
	}

	resp, err := p.client.GenerateContent(ctx, req.Model, apiReq)
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
			return nil, domain.ErrBackend("gemini blocked the prompt: %s", fb.BlockReason).
				WithCode(domain.ErrorCodeSafetyBlocked).WithBackend(domain.ProviderGemini)
		}
		return nil, domain.ErrBackend("gemini returned no candidates").
			WithCode(domain.ErrorCodeEmptyResponse).WithBackend(domain.ProviderGemini)
	}

	cand := resp.Candidates[0]

	// Safety filtering is a hard failure, not an empty 200: a proxy
	// caller expecting text must never receive an empty success payload.
	if reason, blocked := safetyBlocked(&cand); blocked {
		return nil, domain.ErrBackend("gemini rejected the response for safety: %s", reason).
			WithCode(domain.ErrorCodeSafetyBlocked).WithBackend(domain.ProviderGemini)
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		text.WriteString(part.Text)
	}

	content := text.String()
	return &domain.ChatResponse{
		ID:      provider.NewChatID(),
		Object:  "chat.completion",
		Created: provider.Now(),
		Model:   req.Model,
		Choices: []domain.Choice{{
			Index:        0,
			Message:      domain.Message{Role: "assistant", Content: content},
			FinishReason: mapFinishReason(cand.FinishReason),
		}},
		Usage: p.usage(resp.UsageMetadata, req, content),
	}, nil
}

func (p *Provider) Completion(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return provider.CompletionViaChat(ctx, p, req)
}

// mapMessages converts unified messages to Gemini contents. System
// messages are extracted out of the list entirely and newline-joined into
// the system instruction; assistant becomes "model"; an unrecognized role
// is coerced to "user" with a warning, never dropped. After mapping,
// consecutive contents of the same role are merged because the backend
// requires strict user/model alternation.
func (p *Provider) mapMessages(msgs []domain.Message) ([]geminiapi.Content, string) {
	var system []string
	var contents []geminiapi.Content

	for _, m := range msgs {
		var role string
		switch m.Role {
		case "system":
			system = append(system, m.Content)
			continue
		case "assistant":
			role = "model"
		case "user":
			role = "user"
		default:
			p.logger.Warn("unrecognized message role, coercing to user",
				slog.String("role", m.Role))
			role = "user"
		}

		if n := len(contents); n > 0 && contents[n-1].Role == role {
			merged := contents[n-1].Parts[0].Text + "\n\n" + m.Content
			contents[n-1].Parts[0].Text = merged
			continue
		}
		contents = append(contents, geminiapi.Content{
			Role:  role,
			Parts: []geminiapi.Part{{Text: m.Content}},
		})
	}

	return contents, strings.Join(system, "\n")
}

// safetyBlocked reports whether the candidate was rejected for safety:
// either the finish reason says so or any rating reports medium or high
// probability of harm.
func safetyBlocked(cand *geminiapi.Candidate) (string, bool) {
	if cand.FinishReason == "SAFETY" {
		return "finish reason SAFETY", true
	}
	for _, rating := range cand.SafetyRatings {
		switch rating.Probability {
		case "MEDIUM", "HIGH":
			return rating.Category + " probability " + rating.Probability, true
		}
	}
	return "", false
}

// mapFinishReason translates a native finish reason into the unified set.
// An absent reason defaults to stop; an unrecognized one maps to null
// rather than an error.
func mapFinishReason(reason string) *string {
	switch reason {
	case "", "STOP":
		return domain.FinishReason(domain.FinishStop)
	case "MAX_TOKENS":
		return domain.FinishReason(domain.FinishLength)
	case "SAFETY", "RECITATION":
		return domain.FinishReason(domain.FinishContentFilter)
	default:
		return nil
	}
}

// usage passes native accounting through when present and synthesizes it
// otherwise.
func (p *Provider) usage(meta *geminiapi.UsageMetadata, req *domain.ChatRequest, completion string) *domain.Usage {
	if meta != nil {
		return &domain.Usage{
			PromptTokens:     meta.PromptTokenCount,
			CompletionTokens: meta.CandidatesTokenCount,
			TotalTokens:      meta.PromptTokenCount + meta.CandidatesTokenCount,
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
