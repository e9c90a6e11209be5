package workersai

import "encoding/json"

// Message is a single chat message in the run request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RunRequest is the native run request body for text-generation models.
type RunRequest struct {
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
}

// APIMessage is an informational message in the response envelope.
type APIMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RunResponse is the response envelope. Result is kept raw: the shape
// varies between model families and is parsed by ordered extractors.
type RunResponse struct {
	Success  bool            `json:"success"`
	Errors   []APIMessage    `json:"errors"`
	Messages []APIMessage    `json:"messages"`
	Result   json.RawMessage `json:"result"`
}
