package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmbish04/ai-proxy-gateway/internal/config"
	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
	"github.com/jmbish04/ai-proxy-gateway/internal/metrics"
	"github.com/jmbish04/ai-proxy-gateway/internal/models"
	"github.com/jmbish04/ai-proxy-gateway/internal/provider"
	"github.com/jmbish04/ai-proxy-gateway/internal/router"
	"github.com/jmbish04/ai-proxy-gateway/internal/storage"
	"github.com/jmbish04/ai-proxy-gateway/internal/tokens"
)

// fakeProvider returns a canned single-choice response and records the last
// request it saw.
type fakeProvider struct {
	tag       domain.ProviderTag
	available bool

	mu       sync.Mutex
	lastChat *domain.ChatRequest
}

func (p *fakeProvider) Name() domain.ProviderTag { return p.tag }
func (p *fakeProvider) Available() bool          { return p.available }

func (p *fakeProvider) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	p.mu.Lock()
	p.lastChat = req
	p.mu.Unlock()

	return &domain.ChatResponse{
		ID:      "chatcmpl-test",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []domain.Choice{{
			Index:        0,
			Message:      domain.Message{Role: "assistant", Content: "hi there"},
			FinishReason: domain.FinishReason(domain.FinishStop),
		}},
		Usage: &domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (p *fakeProvider) Completion(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return provider.CompletionViaChat(ctx, p, req)
}

// memStore captures audit records for assertions.
type memStore struct {
	mu      sync.Mutex
	records []*storage.Interaction
}

func (s *memStore) SaveInteraction(ctx context.Context, it *storage.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, it)
	return nil
}

func (s *memStore) ListInteractions(ctx context.Context, opts storage.ListOptions) ([]*storage.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*storage.Interaction(nil), s.records...), nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) waitForRecord(t *testing.T) *storage.Interaction {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.records)
		s.mu.Unlock()
		if n > 0 {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.records[0]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no interaction recorded before deadline")
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeProvider, *memStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))

	workersai := &fakeProvider{tag: domain.ProviderWorkersAI, available: true}
	openai := &fakeProvider{tag: domain.ProviderOpenAI, available: true}
	gemini := &fakeProvider{tag: domain.ProviderGemini, available: false}

	providers := provider.NewRegistry()
	providers.Register(workersai)
	providers.Register(openai)
	providers.Register(gemini)

	modelReg := models.NewRegistry()
	store := &memStore{}

	s := New(Options{
		Config:  &config.Config{Server: config.ServerConfig{Port: 0}},
		Logger:  logger,
		Proxy:   router.New(providers, modelReg, logger),
		Tokens:  tokens.NewRegistry(),
		Models:  modelReg,
		Metrics: metrics.New(),
		Store:   store,
	})
	return s, workersai, store
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var envelope errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v (body %s)", err, rec.Body.String())
	}
	return envelope.Error
}

func TestHandleTokenize(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "POST", "/v1/tokenize", `{"input":"Hello world, how are you today?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp tokenizeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Tokens <= 0 {
		t.Errorf("tokens = %d, want > 0", resp.Tokens)
	}
	if resp.Model == "" {
		t.Error("model missing from tokenize response")
	}
}

func TestHandleTokenize_EchoesModel(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "POST", "/v1/tokenize", `{"input":"hello","model":"gpt-4"}`)
	var resp tokenizeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Model != "gpt-4" {
		t.Errorf("model = %q, want gpt-4", resp.Model)
	}
}

func TestHandleRouteCheck(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/v1/route-check?model=gpt-4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp routeCheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Provider != domain.ProviderOpenAI {
		t.Errorf("provider = %q, want openai", resp.Provider)
	}
	if resp.Model != "gpt-4" {
		t.Errorf("model = %q, want gpt-4", resp.Model)
	}
	if !resp.Available {
		t.Error("available = false, want true")
	}
	if resp.Timestamp == "" {
		t.Error("timestamp missing")
	}
}

func TestHandleRouteCheck_MissingModel(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/v1/route-check", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Type != domain.ErrorTypeInvalidRequest {
		t.Errorf("error type = %q", e.Type)
	}
}

func TestHandleChatCompletions(t *testing.T) {
	s, workersai, _ := newTestServer(t)

	body := `{"model":"@cf/meta/llama-3.1-8b-instruct","messages":[{"role":"user","content":"Hello"}]}`
	rec := do(t, s, "POST", "/v1/chat/completions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp domain.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("choices = %d, want 1", len(resp.Choices))
	}
	if resp.Choices[0].Message.Role != "assistant" {
		t.Errorf("role = %q, want assistant", resp.Choices[0].Message.Role)
	}
	if resp.Model != "@cf/meta/llama-3.1-8b-instruct" {
		t.Errorf("model = %q, want caller's string", resp.Model)
	}
	if resp.Usage == nil {
		t.Fatal("usage missing")
	}
	if resp.Usage.TotalTokens != resp.Usage.PromptTokens+resp.Usage.CompletionTokens {
		t.Errorf("usage not additive: %+v", resp.Usage)
	}

	workersai.mu.Lock()
	defer workersai.mu.Unlock()
	if workersai.lastChat == nil {
		t.Fatal("workersai adapter not called")
	}
}

func TestHandleChatCompletions_ModelEchoRoundTrip(t *testing.T) {
	s, workersai, _ := newTestServer(t)

	// Alias in, alias out; the adapter sees the canonical id.
	body := `{"model":"llama-3.1-8b","messages":[{"role":"user","content":"Hello"}]}`
	rec := do(t, s, "POST", "/v1/chat/completions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp domain.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Model != "llama-3.1-8b" {
		t.Errorf("model = %q, want llama-3.1-8b", resp.Model)
	}

	workersai.mu.Lock()
	defer workersai.mu.Unlock()
	if got := workersai.lastChat.Model; got != "@cf/meta/llama-3.1-8b-instruct" {
		t.Errorf("adapter saw model %q, want canonical id", got)
	}
}

func TestHandleChatCompletions_InvalidJSON(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "POST", "/v1/chat/completions", `{"model":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Type != domain.ErrorTypeInvalidRequest {
		t.Errorf("error type = %q", e.Type)
	}
}

func TestHandleChatCompletions_UnsupportedModel(t *testing.T) {
	s, _, _ := newTestServer(t)

	body := `{"model":"gpt-4","provider":"gemini","messages":[{"role":"user","content":"Hello"}]}`
	rec := do(t, s, "POST", "/v1/chat/completions", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
	e := decodeError(t, rec)
	if e.Code != domain.ErrorCodeModelNotSupported {
		t.Errorf("error code = %q, want model_not_supported", e.Code)
	}
}

func TestHandleCompletions(t *testing.T) {
	s, _, _ := newTestServer(t)

	body := `{"model":"gpt-3.5-turbo","prompt":"Say hi"}`
	rec := do(t, s, "POST", "/v1/completions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp domain.CompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Object != "text_completion" {
		t.Errorf("object = %q, want text_completion", resp.Object)
	}
	if resp.Model != "gpt-3.5-turbo" {
		t.Errorf("model = %q, want gpt-3.5-turbo", resp.Model)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Text == "" {
		t.Errorf("choices = %+v", resp.Choices)
	}
}

func TestHandleModelOptions(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/v1/model-options", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var list domain.ModelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Object != "list" {
		t.Errorf("object = %q, want list", list.Object)
	}

	providers := map[domain.ProviderTag]bool{}
	for _, m := range list.Data {
		providers[m.Provider] = true
		if m.Object != "model" {
			t.Errorf("model object = %q", m.Object)
		}
	}
	if !providers[domain.ProviderWorkersAI] || !providers[domain.ProviderOpenAI] {
		t.Errorf("available providers missing from listing: %v", providers)
	}
	if providers[domain.ProviderGemini] {
		t.Error("unavailable provider listed")
	}
}

func TestHandleHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if avail, ok := resp.Providers[domain.ProviderGemini]; !ok || avail {
		t.Errorf("gemini availability = %v, %v; want false, true", avail, ok)
	}
	if len(resp.AvailableProviders) != 2 {
		t.Errorf("available providers = %v, want 2 entries", resp.AvailableProviders)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if e := decodeError(t, rec); e.Message != "Not Found" {
		t.Errorf("message = %q", e.Message)
	}

	rec = do(t, s, "GET", "/v1/chat/completions", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if e := decodeError(t, rec); e.Type != domain.ErrorTypeMethodNotAllowed {
		t.Errorf("error type = %q", e.Type)
	}
}

func TestAuditRecordWritten(t *testing.T) {
	s, _, store := newTestServer(t)

	body := `{"model":"gpt-4o-mini","messages":[{"role":"user","content":"Hello"}]}`
	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("X-Session-ID", "sess-42")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	it := store.waitForRecord(t)
	if it.Endpoint != "/v1/chat/completions" {
		t.Errorf("endpoint = %q", it.Endpoint)
	}
	if it.Provider != domain.ProviderOpenAI {
		t.Errorf("provider = %q, want openai", it.Provider)
	}
	if it.RequestedModel != "gpt-4o-mini" {
		t.Errorf("requested model = %q", it.RequestedModel)
	}
	if it.SessionID != "sess-42" {
		t.Errorf("session id = %q, want sess-42", it.SessionID)
	}
	if it.Status != http.StatusOK {
		t.Errorf("status = %d", it.Status)
	}
	if it.Usage == nil || it.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", it.Usage)
	}
}
