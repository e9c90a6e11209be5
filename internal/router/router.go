// Package router selects the backend family for a unified request and
// dispatches it to the matching format adapter.
package router

import (
	"context"
	"log/slog"

	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
	"github.com/jmbish04/ai-proxy-gateway/internal/models"
	"github.com/jmbish04/ai-proxy-gateway/internal/provider"
)

// Router holds no per-request state; it is safe for concurrent use.
type Router struct {
	providers *provider.Registry
	models    *models.Registry
	logger    *slog.Logger
}

// Route is a routing decision.
type Route struct {
	Provider domain.ProviderTag
	// Model is the canonical backend model id.
	Model string
	// Available reports credential presence. Informational only: the
	// request path still attempts dispatch and fails at the adapter.
	Available bool
}

// New creates a router over the given adapter and model registries.
func New(providers *provider.Registry, modelReg *models.Registry, logger *slog.Logger) *Router {
	return &Router{providers: providers, models: modelReg, logger: logger}
}

// Resolve determines the target provider and canonical model for a
// request. An explicit override wins; otherwise the provider is inferred
// from the model string. The model must be recognized by the chosen
// provider.
func (r *Router) Resolve(override domain.ProviderTag, model string) (*Route, error) {
	tag := override
	if tag == "" {
		tag = r.models.InferProvider(model)
	}

	if model != "" && !r.models.IsSupported(tag, model) {
		return nil, domain.ErrInvalidRequest("model %q is not supported by provider %s", model, tag).
			WithCode(domain.ErrorCodeModelNotSupported).WithParam("model")
	}

	available := false
	if p, ok := r.providers.Get(tag); ok {
		available = p.Available()
	}

	return &Route{
		Provider:  tag,
		Model:     r.models.Resolve(tag, model),
		Available: available,
	}, nil
}

// Chat routes a unified chat request to its adapter. The response model
// is rewritten to the caller's original string so aliases round-trip.
func (r *Router) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	route, adapter, err := r.dispatch(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	dispatched := *req
	dispatched.Model = route.Model

	resp, err := adapter.Chat(ctx, &dispatched)
	if err != nil {
		return nil, err
	}
	resp.Model = req.Model
	return resp, nil
}

// Completion routes a unified completion request to its adapter.
func (r *Router) Completion(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	route, adapter, err := r.dispatch(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	dispatched := *req
	dispatched.Model = route.Model

	resp, err := adapter.Completion(ctx, &dispatched)
	if err != nil {
		return nil, err
	}
	resp.Model = req.Model
	return resp, nil
}

func (r *Router) dispatch(override domain.ProviderTag, model string) (*Route, domain.Provider, error) {
	route, err := r.Resolve(override, model)
	if err != nil {
		return nil, nil, err
	}

	adapter, ok := r.providers.Get(route.Provider)
	if !ok {
		// A known provider without a registered adapter is a
		// configuration error, never a silent no-op.
		return nil, nil, domain.ErrInternal("no adapter implemented for provider " + string(route.Provider)).
			WithCode(domain.ErrorCodeAdapterMissing)
	}

	r.logger.Debug("routing request",
		slog.String("provider", string(route.Provider)),
		slog.String("model", route.Model),
		slog.Bool("available", route.Available),
	)
	return route, adapter, nil
}

// Fallback selects a provider for a provider-agnostic caller: the first
// backend family when available, else the first available in
// registration order. It fails only when nothing is available.
func (r *Router) Fallback() (domain.ProviderTag, error) {
	available := r.providers.Available()
	if len(available) == 0 {
		return "", domain.ErrServiceUnavailable("no provider is available")
	}
	for _, tag := range available {
		if tag == domain.ProviderWorkersAI {
			return tag, nil
		}
	}
	return available[0], nil
}

// Availability reports credential presence per provider, for the
// discovery and health endpoints.
func (r *Router) Availability() map[domain.ProviderTag]bool {
	return r.providers.Availability()
}

// AvailableProviders returns the available providers in registration order.
func (r *Router) AvailableProviders() []domain.ProviderTag {
	return r.providers.Available()
}

// Models lists the aliases of currently available providers for the
// discovery endpoint.
func (r *Router) Models(created int64) *domain.ModelList {
	list := &domain.ModelList{Object: "list", Data: []domain.Model{}}
	for _, tag := range r.providers.Available() {
		for _, alias := range r.models.Aliases(tag) {
			list.Data = append(list.Data, domain.Model{
				ID:       alias,
				Object:   "model",
				Provider: tag,
				Created:  created,
			})
		}
	}
	return list
}
