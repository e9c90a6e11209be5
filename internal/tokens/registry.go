package tokens

import (
	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
)

// Counter counts tokens for models it recognizes.
type Counter interface {
	// CountText counts tokens in text for the given model.
	CountText(model, text string) (int, error)

	// SupportsModel returns true if this counter supports the given model.
	SupportsModel(model string) bool
}

// Registry selects a counter for a model: the first registered counter
// that supports it, else the heuristic fallback. A counter failure also
// falls back to the heuristic so estimation never errors.
type Registry struct {
	counters []Counter
	fallback *Heuristic
}

// NewRegistry creates a registry with the tiktoken counter registered and
// the heuristic as fallback.
func NewRegistry() *Registry {
	r := &Registry{fallback: NewHeuristic()}
	r.Register(NewOpenAICounter())
	return r
}

// Register adds a counter to the registry.
func (r *Registry) Register(counter Counter) {
	r.counters = append(r.counters, counter)
}

// Estimate returns the token count for text. Model may be empty, in which
// case the heuristic is used directly. Empty text yields 0.
func (r *Registry) Estimate(text, model string) int {
	if text == "" {
		return 0
	}
	if model != "" {
		for _, counter := range r.counters {
			if !counter.SupportsModel(model) {
				continue
			}
			if n, err := counter.CountText(model, text); err == nil {
				return n
			}
			break
		}
	}
	return r.fallback.Estimate(text)
}

// EstimateMessages estimates the prompt token count for a conversation:
// the per-message estimates plus a fixed per-message and wrapper overhead.
// Used to synthesize prompt_tokens for backends without native usage.
func (r *Registry) EstimateMessages(msgs []domain.Message, model string) int {
	if len(msgs) == 0 {
		return 0
	}
	total := wrapperOverhead
	for _, m := range msgs {
		total += r.Estimate(m.Content, model) + perMessageOverhead
	}
	return total
}
