package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"quizforge-backend/internal/models"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		permitted []string
		allowed   bool
	}{
		{"admin on admin route", models.RoleAdmin, []string{models.RoleAdmin}, true},
		{"student on admin route", models.RoleStudent, []string{models.RoleAdmin}, false},
		{"mentor on authoring route", models.RoleMentor, []string{models.RoleMentor, models.RoleAdmin}, true},
		{"empty role denied", "", []string{models.RoleStudent}, false},
		{"unknown role denied", "superuser", []string{models.RoleAdmin}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.role, tc.permitted...)
			if d.Allowed != tc.allowed {
				t.Errorf("Decide(%q, %v) = %v, want %v", tc.role, tc.permitted, d.Allowed, tc.allowed)
			}
			if !d.Allowed && d.Reason == "" {
				t.Errorf("Denied decision must carry a reason")
			}
		})
	}
}

func TestJWTAuth_RoundTrip(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	userID := uuid.New()

	token, err := auth.GenerateAccessToken(userID, "mentor@example.com", models.RoleMentor)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	var gotUser uuid.UUID
	var gotRole string
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUserID(r.Context())
		gotRole = GetRole(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotUser != userID {
		t.Errorf("Expected user %s in context, got %s", userID, gotUser)
	}
	if gotRole != models.RoleMentor {
		t.Errorf("Expected role mentor in context, got %q", gotRole)
	}
}

func TestJWTAuth_RejectsMissingAndMalformedHeaders(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run without a valid token")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rr.Code)
			}
		})
	}
}

func TestRequireRole_Blocks(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	token, _ := auth.GenerateAccessToken(uuid.New(), "s@example.com", models.RoleStudent)

	protected := auth.Middleware(RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Student must not reach an admin route")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rr.Code)
	}
}
