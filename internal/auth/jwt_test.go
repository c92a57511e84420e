package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mfrolov/promodesk/internal/model"
)

func echoSession(t *testing.T, got *Session) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		if !ok {
			t.Error("no session in context")
		}
		*got = s
		w.WriteHeader(http.StatusOK)
	})
}

func TestMintThenValidate(t *testing.T) {
	cfg := JWTCfg{HS256Secret: "test-secret"}
	tok, err := Mint(cfg, model.User{ID: "u-tm-1", Name: "Olga Ivanova", Role: model.RoleTM})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	var got Session
	handler := Middleware(cfg)(echoSession(t, &got))

	req := httptest.NewRequest("GET", "/v1/requests", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.UserID != "u-tm-1" || got.Name != "Olga Ivanova" || got.Role != model.RoleTM {
		t.Errorf("session = %+v", got)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	cfg := JWTCfg{HS256Secret: "test-secret"}

	expired, err := Mint(JWTCfg{HS256Secret: "test-secret", TTL: -time.Hour}, model.User{ID: "u-1"})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	wrongKey, err := Mint(JWTCfg{HS256Secret: "other-secret"}, model.User{ID: "u-1"})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	tests := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"no token", func(r *http.Request) {}},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not.a.jwt") }},
		{"expired token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }},
		{"wrong key", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+wrongKey) }},
		{"debug header without dev mode", func(r *http.Request) { r.Header.Set("X-Debug-Sub", "sneaky") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not run")
			}))
			req := httptest.NewRequest("GET", "/v1/requests", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestDevModeDebugHeaders(t *testing.T) {
	cfg := JWTCfg{HS256Secret: "test-secret", DevMode: true}

	var got Session
	handler := Middleware(cfg)(echoSession(t, &got))

	req := httptest.NewRequest("GET", "/v1/requests", nil)
	req.Header.Set("X-Debug-Sub", "u-dev")
	req.Header.Set("X-Debug-Role", "ADMIN")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.UserID != "u-dev" || got.Role != model.RoleAdmin {
		t.Errorf("session = %+v", got)
	}
}
