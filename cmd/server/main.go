package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizforge-backend/internal/config"
	"quizforge-backend/internal/database"
	"quizforge-backend/internal/handlers"
	"quizforge-backend/internal/middleware"
	"quizforge-backend/internal/repository"
	"quizforge-backend/internal/router"
	"quizforge-backend/internal/services"
	"quizforge-backend/internal/session"
	"quizforge-backend/internal/websocket"
	"quizforge-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Quizforge Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	quizRepo := repository.NewQuizRepo(pool)
	attemptRepo := repository.NewAttemptRepo(pool)
	documentRepo := repository.NewDocumentRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiConcurrentReqs,
		documentRepo,
		attemptRepo,
		quizRepo,
		redisClients.Queue,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	fileExtractService := services.NewFileExtractService()
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)
	seedService := services.NewSeedService(userRepo, quizRepo, attemptRepo)
	persister := services.NewAttemptPersister(attemptRepo, quizRepo, redisClients.Queue)

	// ──── Step 6: Start Session Manager ────
	sessionManager := session.NewManager(persister)
	sessionManager.Start()
	log.Println("✓ Session manager started")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	quizHandler := handlers.NewQuizHandler(quizRepo, attemptRepo)
	sessionHandler := handlers.NewSessionHandler(sessionManager, quizRepo, attemptRepo)
	aiHandler := handlers.NewAIHandler(geminiService)
	documentHandler := handlers.NewDocumentHandler(quizRepo, documentRepo, jobRepo, redisClients.Queue, cfg.StoragePath)
	adminHandler := handlers.NewAdminHandler(userRepo, quizRepo, attemptRepo, geminiService, seedService, redisClients.Queue, cfg.IsProduction())

	// ──── Step 7: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		geminiService,
		fileExtractService,
		jobRepo,
		documentRepo,
		3,
	)
	workerPool.Start()
	log.Println("✓ Worker pool started (3 goroutines)")

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		quizHandler,
		sessionHandler,
		aiHandler,
		documentHandler,
		adminHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		sessionManager.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Quizforge Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
