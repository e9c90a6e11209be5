package domain

import "context"

// Provider is a format adapter for one backend family. Implementations
// translate unified requests into the backend's native shape, call the
// backend, and translate the native response back.
type Provider interface {
	// Name returns the backend family tag.
	Name() ProviderTag

	// Available reports whether the backend's required credential is
	// present. Availability is informational: dispatch is still attempted
	// and fails at the adapter with a clear "not configured" error.
	Available() bool

	// Chat performs a unified chat completion against the backend.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Completion performs a unified text completion against the backend.
	Completion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
