package validate

import (
	"errors"
	"testing"

	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func chatReq(mutate func(*domain.ChatRequest)) *domain.ChatRequest {
	req := &domain.ChatRequest{
		Model:    "gpt-4",
		Messages: []domain.Message{{Role: "user", Content: "hi"}},
	}
	if mutate != nil {
		mutate(req)
	}
	return req
}

func TestChatRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       *domain.ChatRequest
		wantErr   bool
		wantParam string
	}{
		{"valid minimal", chatReq(nil), false, ""},
		{"valid with knobs", chatReq(func(r *domain.ChatRequest) {
			r.Temperature = f(0.7)
			r.TopP = f(0.9)
			r.MaxTokens = i(256)
		}), false, ""},
		{"missing model", chatReq(func(r *domain.ChatRequest) { r.Model = "" }), true, "model"},
		{"empty messages", chatReq(func(r *domain.ChatRequest) { r.Messages = nil }), true, "messages"},
		{"bad role", chatReq(func(r *domain.ChatRequest) {
			r.Messages = []domain.Message{{Role: "tool", Content: "x"}}
		}), true, "messages"},
		{"empty content", chatReq(func(r *domain.ChatRequest) {
			r.Messages = []domain.Message{{Role: "user", Content: ""}}
		}), true, "messages"},
		{"temperature too high", chatReq(func(r *domain.ChatRequest) { r.Temperature = f(2.5) }), true, "temperature"},
		{"temperature negative", chatReq(func(r *domain.ChatRequest) { r.Temperature = f(-0.1) }), true, "temperature"},
		{"temperature boundary ok", chatReq(func(r *domain.ChatRequest) { r.Temperature = f(2) }), false, ""},
		{"max_tokens zero", chatReq(func(r *domain.ChatRequest) { r.MaxTokens = i(0) }), true, "max_tokens"},
		{"top_p above one", chatReq(func(r *domain.ChatRequest) { r.TopP = f(1.5) }), true, "top_p"},
		{"unknown provider", chatReq(func(r *domain.ChatRequest) { r.Provider = "anthropic" }), true, "provider"},
		{"valid provider override", chatReq(func(r *domain.ChatRequest) { r.Provider = domain.ProviderGemini }), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ChatRequest(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ChatRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var apiErr *domain.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error is not *domain.APIError: %v", err)
			}
			if apiErr.Type != domain.ErrorTypeInvalidRequest {
				t.Errorf("error type = %s, want invalid_request", apiErr.Type)
			}
			if apiErr.Param != tt.wantParam {
				t.Errorf("error param = %q, want %q", apiErr.Param, tt.wantParam)
			}
		})
	}
}

func TestCompletionRequest(t *testing.T) {
	valid := &domain.CompletionRequest{Model: "gpt-4", Prompt: "tell me a story"}
	if err := CompletionRequest(valid); err != nil {
		t.Fatalf("CompletionRequest() unexpected error: %v", err)
	}

	empty := &domain.CompletionRequest{Model: "gpt-4"}
	err := CompletionRequest(empty)
	if err == nil {
		t.Fatal("CompletionRequest() expected error for empty prompt")
	}
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Param != "prompt" {
		t.Errorf("expected invalid_request on prompt, got %v", err)
	}
}
