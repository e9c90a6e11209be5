package provider

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
)

// NewChatID returns a fresh chat completion response id.
func NewChatID() string {
	return "chatcmpl-" + uuid.NewString()
}

// Now returns the response creation timestamp in unix seconds.
func Now() int64 {
	return time.Now().Unix()
}

// CompletionViaChat implements the completion operation for any adapter:
// the prompt is wrapped into a single user message, dispatched through
// Chat, and the response reshaped. Every adapter delegates here so the
// wrapping exists exactly once.
func CompletionViaChat(ctx context.Context, p domain.Provider, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	chatResp, err := p.Chat(ctx, req.ChatReq())
	if err != nil {
		return nil, err
	}
	return ChatToCompletion(chatResp), nil
}

// ChatToCompletion is the single shared conversion from a chat response
// to a completion response.
func ChatToCompletion(resp *domain.ChatResponse) *domain.CompletionResponse {
	choices := make([]domain.CompletionChoice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = domain.CompletionChoice{
			Index:        c.Index,
			Text:         c.Message.Content,
			FinishReason: c.FinishReason,
		}
	}
	return &domain.CompletionResponse{
		ID:      "cmpl-" + uuid.NewString(),
		Object:  "text_completion",
		Created: resp.Created,
		Model:   resp.Model,
		Choices: choices,
		Usage:   resp.Usage,
	}
}
