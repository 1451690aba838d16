package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/auth"
	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

func newBareServer() *Server {
	return &Server{logger: zap.NewNop(), validate: newValidator()}
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", &domain.NotFoundError{Entity: "movie", Key: "m1"}, http.StatusNotFound, "NOT_FOUND"},
		{"desync", &domain.DesyncError{MovieID: "m1", CommentID: "c1", Err: &domain.NotFoundError{Entity: "comment", Key: "c1"}}, http.StatusNotFound, "NOT_FOUND"},
		{"validation", fmt.Errorf("%w: passwords do not match", domain.ErrValidation), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"conflict", fmt.Errorf("%w: users_username_key", domain.ErrConflict), http.StatusConflict, "CONFLICT"},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"token", fmt.Errorf("%w: expired", auth.ErrInvalidToken), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	srv := newBareServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.respondServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(resp.Message, "connection refused") {
				t.Fatalf("internal error details leaked: %q", resp.Message)
			}
		})
	}
}

func TestNotFoundMessageNamesEntity(t *testing.T) {
	srv := newBareServer()
	rec := httptest.NewRecorder()
	srv.respondServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), &domain.NotFoundError{Entity: "comment", Key: "c9"})

	var resp errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !strings.Contains(resp.Message, "comment") || !strings.Contains(resp.Message, "c9") {
		t.Fatalf("message %q should name entity and id", resp.Message)
	}
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
		wantField  string
	}{
		{"valid", `{"rating":7,"text":"fine"}`, true, 0, ""},
		{"lowest", `{"rating":1}`, true, 0, ""},
		{"highest", `{"rating":10}`, true, 0, ""},
		{"server fields ignored", `{"rating":3,"id":"x","authorId":"y","addDate":"2020-01-01T00:00:00Z"}`, true, 0, ""},
		{"zero", `{"rating":0}`, false, http.StatusUnprocessableEntity, "rating"},
		{"too high", `{"rating":11}`, false, http.StatusUnprocessableEntity, "rating"},
		{"fractional", `{"rating":7.5}`, false, http.StatusUnprocessableEntity, ""},
		{"empty body", ``, false, http.StatusUnprocessableEntity, ""},
		{"unknown field", `{"rating":5,"stars":3}`, false, http.StatusBadRequest, ""},
	}

	srv := newBareServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/reviews/m1", bytes.NewBufferString(tt.body))

			var dst commentRequest
			ok := srv.decodeAndValidate(rec, req, &dst)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (body %s)", ok, tt.wantOK, rec.Body.String())
			}
			if ok {
				return
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantField == "" {
				return
			}
			var resp struct {
				Details []fieldError `json:"details"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Details) != 1 || resp.Details[0].Field != tt.wantField {
				t.Fatalf("details = %+v, want field %s", resp.Details, tt.wantField)
			}
		})
	}
}

func TestRegisterRequestValidation(t *testing.T) {
	v := newValidator()
	valid := registerRequest{Username: "alice", Email: "alice@example.com", Password: "password123", ConfirmPassword: "password123"}
	if err := v.Struct(valid); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	bad := valid
	bad.Email = "not-an-email"
	if err := v.Struct(bad); err == nil {
		t.Fatalf("invalid email accepted")
	}

	bad = valid
	bad.ConfirmPassword = "password124"
	if err := v.Struct(bad); err == nil {
		t.Fatalf("mismatched confirmation accepted")
	}

	bad = valid
	bad.Password, bad.ConfirmPassword = "short", "short"
	if err := v.Struct(bad); err == nil {
		t.Fatalf("short password accepted")
	}
}
