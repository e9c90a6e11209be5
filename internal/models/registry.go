// Package models holds the static model registry: per-provider alias
// tables, canonical id resolution and provider inference.
package models

import (
	"sort"
	"strings"

	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
)

// Entry maps caller-facing aliases to the canonical ids one backend
// family expects.
type Entry struct {
	// Aliases maps alias strings to canonical backend model ids.
	Aliases map[string]string

	// Default is the canonical id used when the caller's model is absent
	// or unrecognized.
	Default string

	// PassthroughPrefixes marks namespaced ids forwarded verbatim, e.g.
	// "@cf/" model ids for Workers AI.
	PassthroughPrefixes []string
}

// Registry is read-only static data, built once at process start and safe
// for unsynchronized concurrent reads.
type Registry struct {
	entries map[domain.ProviderTag]Entry
}

// openaiMatcher recognizes bare OpenAI model names for provider inference.
var openaiPrefixes = []string{"gpt-", "o1", "o3", "o4", "text-davinci"}
var openaiExact = []string{"davinci", "curie", "babbage", "ada"}

// NewRegistry builds the default registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: map[domain.ProviderTag]Entry{
			domain.ProviderWorkersAI: {
				Default:             "@cf/meta/llama-3.1-8b-instruct",
				PassthroughPrefixes: []string{"@cf/", "@hf/"},
				Aliases: map[string]string{
					"llama-3.1-8b": "@cf/meta/llama-3.1-8b-instruct",
					"llama-3-8b":   "@cf/meta/llama-3-8b-instruct",
					"llama-2-7b":   "@cf/meta/llama-2-7b-chat-fp16",
					"mistral-7b":   "@cf/mistral/mistral-7b-instruct-v0.1",
					"qwen-1.5-14b": "@cf/qwen/qwen1.5-14b-chat-awq",
					"gemma-7b":     "@cf/google/gemma-7b-it",
				},
			},
			domain.ProviderOpenAI: {
				Default: "gpt-4o-mini",
				Aliases: map[string]string{
					"gpt-4":            "gpt-4",
					"gpt-4-turbo":      "gpt-4-turbo",
					"gpt-4o":           "gpt-4o",
					"gpt-4o-mini":      "gpt-4o-mini",
					"gpt-3.5":          "gpt-3.5-turbo",
					"gpt-3.5-turbo":    "gpt-3.5-turbo",
					"text-davinci-003": "text-davinci-003",
				},
			},
			domain.ProviderGemini: {
				Default: "gemini-1.5-flash",
				Aliases: map[string]string{
					"gemini-pro":       "gemini-1.5-pro",
					"gemini-flash":     "gemini-1.5-flash",
					"gemini-1.5-pro":   "gemini-1.5-pro",
					"gemini-1.5-flash": "gemini-1.5-flash",
					"gemini-1.0-pro":   "gemini-1.0-pro",
				},
			},
		},
	}
}

// Resolve maps an arbitrary caller-supplied model string to the canonical
// id the provider expects. It is total: an absent or unrecognized model
// yields the provider's default, never an error.
func (r *Registry) Resolve(provider domain.ProviderTag, model string) string {
	entry, ok := r.entries[provider]
	if !ok {
		// Unknown provider tags resolve through the first backend family.
		entry = r.entries[domain.ProviderWorkersAI]
	}
	if model == "" {
		return entry.Default
	}
	if canonical, ok := entry.Aliases[model]; ok {
		return canonical
	}
	for _, prefix := range entry.PassthroughPrefixes {
		if strings.HasPrefix(model, prefix) {
			return model
		}
	}
	return entry.Default
}

// InferProvider determines the backend family for a bare model string.
// Total and deterministic: namespace prefixes win over name prefixes,
// which win over the brand substring; anything else defaults to the
// first backend family.
func (r *Registry) InferProvider(model string) domain.ProviderTag {
	if strings.HasPrefix(model, "@cf/") || strings.HasPrefix(model, "@hf/") {
		return domain.ProviderWorkersAI
	}
	for _, p := range openaiPrefixes {
		if strings.HasPrefix(model, p) {
			return domain.ProviderOpenAI
		}
	}
	for _, e := range openaiExact {
		if model == e {
			return domain.ProviderOpenAI
		}
	}
	if strings.Contains(strings.ToLower(model), "gemini") {
		return domain.ProviderGemini
	}
	return domain.ProviderWorkersAI
}

// IsSupported reports whether model is a known alias or canonical id for
// the provider, or matches one of its passthrough namespaces.
func (r *Registry) IsSupported(provider domain.ProviderTag, model string) bool {
	entry, ok := r.entries[provider]
	if !ok {
		return false
	}
	if model == "" || model == entry.Default {
		return true
	}
	if _, ok := entry.Aliases[model]; ok {
		return true
	}
	for _, canonical := range entry.Aliases {
		if model == canonical {
			return true
		}
	}
	for _, prefix := range entry.PassthroughPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// Aliases returns the sorted alias list for one provider, for the
// discovery endpoints.
func (r *Registry) Aliases(provider domain.ProviderTag) []string {
	entry, ok := r.entries[provider]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(entry.Aliases))
	for alias := range entry.Aliases {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// All returns every provider with its aliases, in registration order.
func (r *Registry) All() map[domain.ProviderTag][]string {
	out := make(map[domain.ProviderTag][]string, len(r.entries))
	for _, tag := range domain.AllProviders {
		out[tag] = r.Aliases(tag)
	}
	return out
}
