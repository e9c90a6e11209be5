package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
	"github.com/jmbish04/ai-proxy-gateway/internal/router"
	"github.com/jmbish04/ai-proxy-gateway/internal/storage"
	"github.com/jmbish04/ai-proxy-gateway/internal/validate"
)

// errorEnvelope is the wire format for all error responses.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string           `json:"message"`
	Type    domain.ErrorType `json:"type"`
	Code    domain.ErrorCode `json:"code,omitempty"`
	Param   string           `json:"param,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError translates any error into the JSON envelope. Errors that are not
// APIErrors become opaque internal errors so backend details never leak raw.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		apiErr = domain.ErrInternal("internal server error")
	}

	writeJSON(w, apiErr.HTTPStatusCode(), errorEnvelope{Error: errorBody{
		Message: apiErr.Message,
		Type:    apiErr.Type,
		Code:    apiErr.Code,
		Param:   apiErr.Param,
	}})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, &domain.APIError{Type: domain.ErrorTypeNotFound, Message: "Not Found"})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, &domain.APIError{Type: domain.ErrorTypeMethodNotAllowed, Message: "Method Not Allowed"})
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := "/v1/chat/completions"

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		err = domain.ErrInvalidRequest("invalid JSON body: %v", err)
		s.record(r, endpoint, nil, req.Model, start, nil, err)
		writeError(w, r, err)
		return
	}

	if err := validate.ChatRequest(&req); err != nil {
		s.record(r, endpoint, nil, req.Model, start, nil, err)
		writeError(w, r, err)
		return
	}

	route, err := s.proxy.Resolve(req.Provider, req.Model)
	if err != nil {
		s.record(r, endpoint, nil, req.Model, start, nil, err)
		writeError(w, r, err)
		return
	}
	AddLogField(r.Context(), "provider", string(route.Provider))
	AddLogField(r.Context(), "model", route.Model)

	resp, err := s.proxy.Chat(r.Context(), &req)
	if err != nil {
		s.record(r, endpoint, route, req.Model, start, nil, err)
		writeError(w, r, err)
		return
	}

	s.record(r, endpoint, route, req.Model, start, resp.Usage, nil)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := "/v1/completions"

	var req domain.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		err = domain.ErrInvalidRequest("invalid JSON body: %v", err)
		s.record(r, endpoint, nil, req.Model, start, nil, err)
		writeError(w, r, err)
		return
	}

	if err := validate.CompletionRequest(&req); err != nil {
		s.record(r, endpoint, nil, req.Model, start, nil, err)
		writeError(w, r, err)
		return
	}

	route, err := s.proxy.Resolve(req.Provider, req.Model)
	if err != nil {
		s.record(r, endpoint, nil, req.Model, start, nil, err)
		writeError(w, r, err)
		return
	}
	AddLogField(r.Context(), "provider", string(route.Provider))
	AddLogField(r.Context(), "model", route.Model)

	resp, err := s.proxy.Completion(r.Context(), &req)
	if err != nil {
		s.record(r, endpoint, route, req.Model, start, nil, err)
		writeError(w, r, err)
		return
	}

	s.record(r, endpoint, route, req.Model, start, resp.Usage, nil)
	writeJSON(w, http.StatusOK, resp)
}

type tokenizeRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

type tokenizeResponse struct {
	Tokens int    `json:"tokens"`
	Model  string `json:"model"`
}

func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	var req tokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.ErrInvalidRequest("invalid JSON body: %v", err))
		return
	}

	// An absent model still yields a usable id for the response.
	model := req.Model
	if model == "" {
		provider := s.models.InferProvider(model)
		model = s.models.Resolve(provider, model)
	}

	count := s.tokens.Estimate(req.Input, req.Model)
	writeJSON(w, http.StatusOK, tokenizeResponse{Tokens: count, Model: model})
}

func (s *Server) handleModelOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.proxy.Models(time.Now().Unix()))
}

type routeCheckResponse struct {
	Provider  domain.ProviderTag `json:"provider"`
	Model     string             `json:"model"`
	Available bool               `json:"available"`
	Timestamp string             `json:"timestamp"`
}

func (s *Server) handleRouteCheck(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")
	if model == "" {
		writeError(w, r, domain.ErrInvalidRequest("model query parameter is required").WithParam("model"))
		return
	}

	route, err := s.proxy.Resolve("", model)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, routeCheckResponse{
		Provider:  route.Provider,
		Model:     model,
		Available: route.Available,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type healthResponse struct {
	Status             string                      `json:"status"`
	Providers          map[domain.ProviderTag]bool `json:"providers"`
	AvailableProviders []domain.ProviderTag        `json:"available_providers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	available := s.proxy.AvailableProviders()
	if available == nil {
		available = []domain.ProviderTag{}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:             "healthy",
		Providers:          s.proxy.Availability(),
		AvailableProviders: available,
	})
}

// record emits metrics and writes the audit record off the request path.
// Storage failures are logged and dropped; they never affect the response.
func (s *Server) record(r *http.Request, endpoint string, route *router.Route, requestedModel string, start time.Time, usage *domain.Usage, reqErr error) {
	duration := time.Since(start)

	var provider domain.ProviderTag
	var resolvedModel string
	if route != nil {
		provider = route.Provider
		resolvedModel = route.Model
	}

	status := http.StatusOK
	var errorType, errorCode, errorMessage string
	if reqErr != nil {
		var apiErr *domain.APIError
		if errors.As(reqErr, &apiErr) {
			status = apiErr.HTTPStatusCode()
			errorType = string(apiErr.Type)
			errorCode = string(apiErr.Code)
			errorMessage = apiErr.Message
		} else {
			status = http.StatusInternalServerError
			errorType = string(domain.ErrorTypeInternal)
			errorMessage = reqErr.Error()
		}
	}

	s.metrics.RecordRequest(endpoint, string(provider), strconv.Itoa(status), duration)
	if usage != nil {
		s.metrics.RecordTokens(string(provider), usage.PromptTokens, usage.CompletionTokens)
	}

	interaction := &storage.Interaction{
		ID:             uuid.New().String(),
		Endpoint:       endpoint,
		Provider:       provider,
		RequestedModel: requestedModel,
		ResolvedModel:  resolvedModel,
		SessionID:      GetSessionID(r.Context()),
		Status:         status,
		Duration:       duration,
		Usage:          usage,
		ErrorType:      errorType,
		ErrorCode:      errorCode,
		ErrorMessage:   errorMessage,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.SaveInteraction(ctx, interaction); err != nil {
			s.logger.Warn("failed to save interaction", "error", err)
		}
	}()
}
