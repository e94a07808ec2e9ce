package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"echofm/config"
	"echofm/core/auth"
	"echofm/model"
)

func TestRespondWithErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", model.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("song x: %w", model.ErrNotFound), http.StatusNotFound},
		{"invalid argument", model.ErrInvalidArgument, http.StatusBadRequest},
		{"not playable", fmt.Errorf("track y: %w", model.ErrNotPlayable), http.StatusUnprocessableEntity},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithError(rec, tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}

func authHandler(t *testing.T, password string) *APIHandler {
	t.Helper()
	cfg := &config.Config{AdminPassword: password, JWTSecret: "secret"}
	h, err := NewAPIHandler(nil, nil, nil, nil, cfg)
	if err != nil {
		t.Fatalf("NewAPIHandler: %v", err)
	}
	return h
}

func TestAuthMiddlewareOpenWhenUnconfigured(t *testing.T) {
	h := authHandler(t, "")

	called := false
	next := func(w http.ResponseWriter, r *http.Request) { called = true }

	rec := httptest.NewRecorder()
	h.AuthMiddleware(next)(rec, httptest.NewRequest(http.MethodPost, "/play", nil))
	if !called {
		t.Error("requests should pass through when no admin password is configured")
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	h := authHandler(t, "hunter2")

	rec := httptest.NewRecorder()
	h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without a token")
	})(rec, httptest.NewRequest(http.MethodPost, "/play", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	h := authHandler(t, "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/play", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := httptest.NewRecorder()
	h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run with a bad token")
	})(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	h := authHandler(t, "hunter2")

	token, err := auth.GenerateToken("admin", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/play", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	called := false
	rec := httptest.NewRecorder()
	h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) { called = true })(rec, req)
	if !called {
		t.Error("valid token should pass the middleware")
	}
}
