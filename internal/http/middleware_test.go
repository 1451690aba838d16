package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Clark-Hu/movie-reviewer/internal/auth"
	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

func TestAuthenticate(t *testing.T) {
	svc := auth.NewService(nil, auth.Config{Secret: []byte("middleware-secret"), TokenTTL: time.Minute}, nil)
	other := auth.NewService(nil, auth.Config{Secret: []byte("another-secret"), TokenTTL: time.Minute}, nil)

	user := domain.User{ID: "u-1", Username: "alice", Email: "alice@example.com", Role: domain.RoleUser}
	valid, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	forged, err := other.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	srv := newBareServer()
	srv.auth = svc

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"anonymous", "", http.StatusOK, ""},
		{"valid token", "Bearer " + valid.AccessToken, http.StatusOK, "alice"},
		{"lowercase scheme", "bearer " + valid.AccessToken, http.StatusOK, "alice"},
		{"wrong scheme", "Basic YWxpY2U6cHc=", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + forged.AccessToken, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := srv.authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = auth.UsernameFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/movies", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if seen != tt.wantUser {
				t.Fatalf("username = %q, want %q", seen, tt.wantUser)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	srv := newBareServer()
	called := false
	handler := srv.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/movies", nil))
	if rec.Code != http.StatusUnauthorized || called {
		t.Fatalf("anonymous request: status = %d, called = %v", rec.Code, called)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/movies", nil), "alice"))
	if !called {
		t.Fatalf("authenticated request did not reach the handler")
	}
}
