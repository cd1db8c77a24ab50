package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"quizforge-backend/internal/handlers"
	"quizforge-backend/internal/middleware"
	"quizforge-backend/internal/models"
	"quizforge-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	quizHandler *handlers.QuizHandler,
	sessionHandler *handlers.SessionHandler,
	aiHandler *handlers.AIHandler,
	documentHandler *handlers.DocumentHandler,
	adminHandler *handlers.AdminHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Quiz Routes ────
		r.Route("/quizzes", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", quizHandler.List)
			r.Get("/{id}", quizHandler.Get)

			// Authoring is mentor/admin territory
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleMentor, models.RoleAdmin))
				r.Post("/", quizHandler.Create)
				r.Post("/{id}/publish", quizHandler.Publish)
				r.Post("/{id}/questions", quizHandler.AddQuestions)
				r.Post("/{id}/questions/import", quizHandler.ImportCSV)
				r.Post("/{id}/documents", documentHandler.Upload)
				r.Get("/{id}/documents", documentHandler.Count)
			})
		})

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", sessionHandler.Start)
			r.Get("/{id}", sessionHandler.Get)
			r.Post("/{id}/answer", sessionHandler.Answer)
			r.Post("/{id}/next", sessionHandler.Next)
			r.Post("/{id}/previous", sessionHandler.Previous)
			r.Post("/{id}/finish", sessionHandler.Finish)
			r.Post("/{id}/resubmit", sessionHandler.Resubmit)
		})

		// ──── Attempt Routes ────
		r.Route("/attempts", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", quizHandler.History)
			r.Get("/{id}", quizHandler.GetAttempt)
		})

		// ──── AI Routes ────
		r.Route("/ai", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/explain", aiHandler.Explain)
			r.Post("/summary", aiHandler.Summary)
			r.Post("/analysis", aiHandler.Analysis)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", documentHandler.GetJob)
		})

		// ──── Admin Routes ────
		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/analytics", adminHandler.Analytics)
			r.Post("/intelligence", adminHandler.Intelligence)
			r.Post("/seed", adminHandler.Seed)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
