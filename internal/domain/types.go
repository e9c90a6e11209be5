package domain

import (
	"encoding/json"
	"fmt"
)

// ProviderTag identifies one of the backend families the proxy can call.
type ProviderTag string

const (
	ProviderWorkersAI ProviderTag = "workersai"
	ProviderOpenAI    ProviderTag = "openai"
	ProviderGemini    ProviderTag = "gemini"
)

// AllProviders lists the known backend families in registration order.
var AllProviders = []ProviderTag{ProviderWorkersAI, ProviderOpenAI, ProviderGemini}

// Valid reports whether the tag names a known backend family.
func (p ProviderTag) Valid() bool {
	switch p {
	case ProviderWorkersAI, ProviderOpenAI, ProviderGemini:
		return true
	}
	return false
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StringOrSlice accepts either a JSON string or an array of strings.
// OpenAI-compatible clients send `stop` in both shapes.
type StringOrSlice []string

func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrSlice{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = StringOrSlice(many)
		return nil
	}
	return fmt.Errorf("stop must be a string or an array of strings")
}

func (s StringOrSlice) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// ChatRequest is the unified chat request every backend format is
// translated from. Optional numeric fields are pointers so that an
// absent field is distinguishable from an explicit zero.
type ChatRequest struct {
	Model            string        `json:"model"`
	Provider         ProviderTag   `json:"provider,omitempty"`
	Messages         []Message     `json:"messages"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	Stop             StringOrSlice `json:"stop,omitempty"`
	Stream           bool          `json:"stream,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
}

// CompletionRequest is the unified completion request. It is always
// normalized to a single-message chat request before dispatch.
type CompletionRequest struct {
	Model            string        `json:"model"`
	Provider         ProviderTag   `json:"provider,omitempty"`
	Prompt           string        `json:"prompt"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	Stop             StringOrSlice `json:"stop,omitempty"`
	Stream           bool          `json:"stream,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
}

// ChatReq converts the completion request into the equivalent chat
// request with the prompt wrapped as a single user message.
func (r *CompletionRequest) ChatReq() *ChatRequest {
	return &ChatRequest{
		Model:            r.Model,
		Provider:         r.Provider,
		Messages:         []Message{{Role: "user", Content: r.Prompt}},
		Temperature:      r.Temperature,
		MaxTokens:        r.MaxTokens,
		TopP:             r.TopP,
		Stop:             r.Stop,
		FrequencyPenalty: r.FrequencyPenalty,
		PresencePenalty:  r.PresencePenalty,
	}
}

// Usage represents token usage accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Finish reasons in the unified format.
const (
	FinishStop          = "stop"
	FinishLength        = "length"
	FinishContentFilter = "content_filter"
)

// FinishReason returns a pointer suitable for a choice's finish_reason.
func FinishReason(s string) *string { return &s }

// Choice represents a single chat completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason *string `json:"finish_reason"`
}

// ChatResponse is the unified chat response.
//
// Model always echoes the model string the caller supplied, never the
// canonical backend id, so a pinned alias round-trips unchanged.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// CompletionChoice represents a single text completion choice.
type CompletionChoice struct {
	Index        int     `json:"index"`
	Text         string  `json:"text"`
	FinishReason *string `json:"finish_reason"`
}

// CompletionResponse is the unified completion response.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

// Model describes a model entry exposed by the discovery endpoints.
type Model struct {
	ID       string      `json:"id"`
	Object   string      `json:"object"`
	Provider ProviderTag `json:"provider"`
	Created  int64       `json:"created"`
}

// ModelList is the model listing response.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
