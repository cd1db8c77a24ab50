package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"quizforge-backend/internal/analytics"
	"quizforge-backend/internal/middleware"
	"quizforge-backend/internal/models"
	"quizforge-backend/internal/repository"
	"quizforge-backend/internal/services"
)

const (
	analyticsCacheKey = "cache:admin_dashboard"
	analyticsCacheTTL = 60 * time.Second
)

type AdminHandler struct {
	userRepo    *repository.UserRepo
	quizRepo    *repository.QuizRepo
	attemptRepo *repository.AttemptRepo
	gemini      *services.GeminiService
	seed        *services.SeedService
	redis       *redis.Client
	production  bool
}

func NewAdminHandler(
	userRepo *repository.UserRepo,
	quizRepo *repository.QuizRepo,
	attemptRepo *repository.AttemptRepo,
	gemini *services.GeminiService,
	seed *services.SeedService,
	redisClient *redis.Client,
	production bool,
) *AdminHandler {
	return &AdminHandler{
		userRepo:    userRepo,
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
		gemini:      gemini,
		seed:        seed,
		redis:       redisClient,
		production:  production,
	}
}

// Analytics builds the full dashboard in one pass. Any upstream fetch error
// fails the whole request; the dashboard never renders partial datasets.
// Results are cached for a minute because every chart derives from the same
// snapshot.
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if cached, err := h.redis.Get(r.Context(), analyticsCacheKey).Result(); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(cached))
		return
	}

	attempts, err := h.attemptRepo.ListAllWithQuiz(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "Failed to load attempts", r))
		return
	}
	createdAts, err := h.userRepo.ListCreatedAts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "Failed to load user signups", r))
		return
	}
	totalUsers, err := h.userRepo.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "Failed to count users", r))
		return
	}
	totalQuizzes, err := h.quizRepo.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "Failed to count quizzes", r))
		return
	}

	dashboard := analytics.BuildDashboard(analytics.Input{
		Attempts:          attempts,
		ProfileCreatedAts: createdAts,
		TotalUsers:        totalUsers,
		TotalQuizzes:      totalQuizzes,
	}, time.Now())

	if payload, err := json.Marshal(dashboard); err == nil {
		h.redis.Set(r.Context(), analyticsCacheKey, payload, analyticsCacheTTL)
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// Intelligence generates the narrative markdown report.
func (h *AdminHandler) Intelligence(w http.ResponseWriter, r *http.Request) {
	var req models.IntelligenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	report, err := h.gemini.NarrativeReport(r.Context(), req.Prompt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"report": report})
}

// Seed fills the database with demo data. Refused outright in production.
func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	if h.production {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Seeding is disabled in production", r))
		return
	}

	result, err := h.seed.Run(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Seeding failed", r))
		return
	}

	// Seeded data invalidates any cached dashboard immediately.
	h.redis.Del(r.Context(), analyticsCacheKey)

	writeJSON(w, http.StatusCreated, result)
}
