package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"quizforge-backend/internal/models"
	"quizforge-backend/internal/services"
	"quizforge-backend/internal/session"
)

func contextWithRouteCtx(req *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
}

// ─── Shared Helper Tests ───

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"message": "ok"})

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["message"] != "ok" {
		t.Errorf("Expected message 'ok', got %q", body["message"])
	}
}

func TestErrorRespEchoesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")

	resp := errorResp("NOT_FOUND", "Quiz not found", req)
	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %q", resp.Error.Code)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("Expected request id echoed, got %q", resp.Error.RequestID)
	}
}

func TestHandleServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"email": "bad"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", &services.ConflictError{Message: "taken"}, http.StatusConflict, "CONFLICT"},
		{"not found", &services.NotFoundError{Message: "missing"}, http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", &services.UnauthorizedError{Message: "nope"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", &services.ForbiddenError{Message: "denied"}, http.StatusForbidden, "FORBIDDEN"},
		{"rate limited", &services.RateLimitError{Message: "slow down"}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"upstream", &services.UpstreamError{Message: "llm down"}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"unknown", http.ErrBodyNotAllowed, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			handleServiceError(rr, req, tc.err)

			if rr.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Error.Code != tc.wantCode {
				t.Errorf("Expected code %q, got %q", tc.wantCode, resp.Error.Code)
			}
		})
	}
}

// ─── AI Handler Validation Tests ───

func TestExplainRejectsInvalidPayload(t *testing.T) {
	h := NewAIHandler(nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing quiz_id", `{"question":"Why?","options":["a","b"],"correct_answer":0}`},
		{"missing question", `{"quiz_id":"7e8f19ea-14ab-4f24-8f43-1ddb4fd50001","options":["a","b"],"correct_answer":0}`},
		{"single option", `{"quiz_id":"7e8f19ea-14ab-4f24-8f43-1ddb4fd50001","question":"Why?","options":["a"],"correct_answer":0}`},
		{"correct index out of range", `{"quiz_id":"7e8f19ea-14ab-4f24-8f43-1ddb4fd50001","question":"Why?","options":["a","b"],"correct_answer":5}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/explain", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			h.Explain(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestSummaryRejectsEmptyQuestions(t *testing.T) {
	h := NewAIHandler(nil)

	body, _ := json.Marshal(models.FeedbackRequest{Score: 10, TotalPoints: 20})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/summary", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Summary(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestAnalysisRejectsMissingAttemptID(t *testing.T) {
	h := NewAIHandler(nil)

	for _, body := range []string{`{}`, `{"attempt_id":""}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/analysis", strings.NewReader(body))
		rr := httptest.NewRecorder()

		h.Analysis(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Body %q: expected status 400, got %d", body, rr.Code)
		}
	}
}

// ─── Session Handler Tests ───

func TestSessionGetUnknownID(t *testing.T) {
	h := NewSessionHandler(session.NewManager(nil), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/7e8f19ea-14ab-4f24-8f43-1ddb4fd50002", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "7e8f19ea-14ab-4f24-8f43-1ddb4fd50002")
	req = req.WithContext(contextWithRouteCtx(req, rctx))

	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestSessionInvalidID(t *testing.T) {
	h := NewSessionHandler(session.NewManager(nil), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req = req.WithContext(contextWithRouteCtx(req, rctx))

	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

// ─── Admin Handler Tests ───

func TestSeedRefusedInProduction(t *testing.T) {
	h := NewAdminHandler(nil, nil, nil, nil, nil, nil, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/seed", nil)
	rr := httptest.NewRecorder()

	h.Seed(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 in production, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error.Code != "FORBIDDEN" {
		t.Errorf("Expected code FORBIDDEN, got %q", resp.Error.Code)
	}
}

// ─── Quiz Handler Validation Tests ───

func TestCreateQuizValidation(t *testing.T) {
	h := NewQuizHandler(nil, nil)

	tests := []struct {
		name string
		body models.CreateQuizRequest
	}{
		{"missing title", models.CreateQuizRequest{Difficulty: "easy", TimeLimitMinutes: 10, MaxAttempts: 3}},
		{"bad difficulty", models.CreateQuizRequest{Title: "T", Difficulty: "extreme", TimeLimitMinutes: 10, MaxAttempts: 3}},
		{"zero time limit", models.CreateQuizRequest{Title: "T", Difficulty: "easy", MaxAttempts: 3}},
		{"zero max attempts", models.CreateQuizRequest{Title: "T", Difficulty: "easy", TimeLimitMinutes: 10}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/quizzes", bytes.NewReader(body))
			rr := httptest.NewRecorder()

			h.Create(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rr.Code)
			}
			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(resp.Error.Fields) == 0 {
				t.Error("Expected field errors in response")
			}
		})
	}
}
