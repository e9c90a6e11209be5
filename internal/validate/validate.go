// Package validate enforces structural and numeric-range constraints on
// unified requests before they reach the router.
package validate

import (
	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
)

func validRole(role string) bool {
	switch role {
	case "system", "user", "assistant":
		return true
	}
	return false
}

// sampling checks the numeric knobs shared by chat and completion requests.
func sampling(temperature, topP *float64, maxTokens *int) *domain.APIError {
	if temperature != nil && (*temperature < 0 || *temperature > 2) {
		return domain.ErrInvalidRequest("temperature must be between 0 and 2, got %g", *temperature).
			WithParam("temperature")
	}
	if maxTokens != nil && *maxTokens < 1 {
		return domain.ErrInvalidRequest("max_tokens must be at least 1, got %d", *maxTokens).
			WithParam("max_tokens")
	}
	if topP != nil && (*topP < 0 || *topP > 1) {
		return domain.ErrInvalidRequest("top_p must be between 0 and 1, got %g", *topP).
			WithParam("top_p")
	}
	return nil
}

// ChatRequest validates a unified chat request.
func ChatRequest(req *domain.ChatRequest) error {
	if req.Model == "" {
		return domain.ErrInvalidRequest("model is required").WithParam("model")
	}
	if req.Provider != "" && !req.Provider.Valid() {
		return domain.ErrInvalidRequest("unknown provider %q", req.Provider).WithParam("provider")
	}
	if len(req.Messages) == 0 {
		return domain.ErrInvalidRequest("messages must not be empty").WithParam("messages")
	}
	for i, m := range req.Messages {
		if !validRole(m.Role) {
			return domain.ErrInvalidRequest("messages[%d].role must be one of system, user, assistant; got %q", i, m.Role).
				WithParam("messages")
		}
		if m.Content == "" {
			return domain.ErrInvalidRequest("messages[%d].content must not be empty", i).
				WithParam("messages")
		}
	}
	if err := sampling(req.Temperature, req.TopP, req.MaxTokens); err != nil {
		return err
	}
	return nil
}

// CompletionRequest validates a unified completion request.
func CompletionRequest(req *domain.CompletionRequest) error {
	if req.Model == "" {
		return domain.ErrInvalidRequest("model is required").WithParam("model")
	}
	if req.Provider != "" && !req.Provider.Valid() {
		return domain.ErrInvalidRequest("unknown provider %q", req.Provider).WithParam("provider")
	}
	if req.Prompt == "" {
		return domain.ErrInvalidRequest("prompt must not be empty").WithParam("prompt")
	}
	if err := sampling(req.Temperature, req.TopP, req.MaxTokens); err != nil {
		return err
	}
	return nil
}
