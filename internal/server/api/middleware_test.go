package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/pkg/models"
	"github.com/kamikazebr/license-gateway/pkg/utils"
)

const testJWTSecret = "test-secret-key-for-testing"

func withClaims(req *http.Request, claims *utils.Claims) *http.Request {
	ctx := context.WithValue(req.Context(), userClaimsKey, claims)
	return req.WithContext(ctx)
}

func TestAdminMiddleware_AllowsAdminRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req = withClaims(req, &utils.Claims{Email: "admin@example.com", Role: models.RoleAdmin})

	rec := httptest.NewRecorder()
	nextCalled := false
	handler := AdminMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusNoContent)
	}))

	handler.ServeHTTP(rec, req)

	if !nextCalled {
		t.Fatalf("expected next handler to run for admin")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 status, got %d", rec.Code)
	}
}

func TestAdminMiddleware_RejectsNonAdmin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req = withClaims(req, &utils.Claims{Email: "user@example.com", Role: models.RoleUser})

	rec := httptest.NewRecorder()
	handler := AdminMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected call to next handler")
	}))

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 status for non-admin, got %d", rec.Code)
	}
}

func TestAdminMiddleware_RejectsMissingClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	handler := AdminMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected call to next handler")
	}))

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 status without claims, got %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	token, _, err := utils.GenerateJWT(userID, "ops@example.com", models.RoleUser, testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	foreign, _, err := utils.GenerateJWT(userID, "ops@example.com", models.RoleUser, "another-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", token, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *utils.Claims
			handler := AuthMiddleware(testJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetUserClaims(r)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && (seen == nil || seen.UserID != userID) {
				t.Fatalf("expected claims for %s in context, got %+v", userID, seen)
			}
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/license/client", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}
