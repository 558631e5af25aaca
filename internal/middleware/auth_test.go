package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func okHandler(t *testing.T, gotUser *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUser = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil, nil, nil)
	token, err := IssueToken(testSecret, "user-1", "a@example.edu", "student", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var gotUser string
	handler := mw.Handler(okHandler(t, &gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotUser != "user-1" {
		t.Fatalf("expected user-1 in context, got %q", gotUser)
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil, nil, nil)
	var gotUser string
	handler := mw.Handler(okHandler(t, &gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareBadToken(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil, nil, nil)
	var gotUser string
	handler := mw.Handler(okHandler(t, &gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil, nil, nil)
	token, err := IssueToken([]byte("other-secret"), "user-1", "", "student", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var gotUser string
	handler := mw.Handler(okHandler(t, &gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil, nil, nil)
	token, err := IssueToken(testSecret, "user-1", "", "student", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var gotUser string
	handler := mw.Handler(okHandler(t, &gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
}

func TestAuthMiddlewareSkipPaths(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil, nil, []string{"/api/v1/auth/login"})
	var gotUser string
	handler := mw.Handler(okHandler(t, &gotUser))

	for _, path := range []string{"/api/v1/auth/login", "/healthz", "/metrics", "/pages/listings"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected %s to skip auth, got %d", path, rec.Code)
		}
	}
}

func TestRequireUserID(t *testing.T) {
	handler := RequireUserID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", rec.Code)
	}
}
