package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if seen == "" {
		t.Error("request id missing from context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("X-Request-ID header = %q, want %q", got, seen)
	}
}

func TestSessionIDMiddleware(t *testing.T) {
	var seen string
	handler := SessionIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Session-ID", "sess-header")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen != "sess-header" {
			t.Errorf("session id = %q, want sess-header", seen)
		}
	})

	t.Run("cookie fallback", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-cookie"})
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen != "sess-cookie" {
			t.Errorf("session id = %q, want sess-cookie", seen)
		}
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Session-ID", "sess-header")
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-cookie"})
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen != "sess-header" {
			t.Errorf("session id = %q, want sess-header", seen)
		}
	})

	t.Run("absent", func(t *testing.T) {
		seen = "stale"
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
		if seen != "" {
			t.Errorf("session id = %q, want empty", seen)
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware([]string{"key-1", "key-2"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantType   string
	}{
		{"valid bearer key", "Bearer key-1", http.StatusOK, ""},
		{"valid bare key", "key-2", http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "authentication_error"},
		{"wrong key", "Bearer nope", http.StatusUnauthorized, "authentication_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantType != "" {
				var envelope struct {
					Error struct {
						Type string `json:"type"`
					} `json:"error"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
					t.Fatalf("unmarshal error body: %v", err)
				}
				if envelope.Error.Type != tt.wantType {
					t.Errorf("error type = %q, want %q", envelope.Error.Type, tt.wantType)
				}
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed origin", func(t *testing.T) {
		handler := CORSMiddleware([]string{"https://example.com"})(next)
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
			t.Errorf("Allow-Origin = %q", got)
		}
	})

	t.Run("disallowed origin", func(t *testing.T) {
		handler := CORSMiddleware([]string{"https://example.com"})(next)
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://evil.test")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("wildcard", func(t *testing.T) {
		handler := CORSMiddleware([]string{"*"})(next)
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://anywhere.test")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin = %q, want *", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		handler := CORSMiddleware([]string{"*"})(next)
		req := httptest.NewRequest("OPTIONS", "/v1/chat/completions", nil)
		req.Header.Set("Origin", "https://anywhere.test")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d, want 204", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Error("Allow-Methods header missing on preflight")
		}
	})

	t.Run("disabled when no origins configured", func(t *testing.T) {
		handler := CORSMiddleware(nil)(next)
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})
}
