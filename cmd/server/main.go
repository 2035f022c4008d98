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

	"utes-backend/internal/config"
	"utes-backend/internal/database"
	"utes-backend/internal/handlers"
	"utes-backend/internal/middleware"
	"utes-backend/internal/pending"
	"utes-backend/internal/repository"
	"utes-backend/internal/router"
	"utes-backend/internal/runstate"
	"utes-backend/internal/services"
	"utes-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting UTES Backend...")

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

	// ──── Step 3: Initialize Redis ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	resultRepo := repository.NewResultRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	youtubeService := services.NewYouTubeService(time.Duration(cfg.YouTubeClientTTLSeconds) * time.Second)
	recommendService := services.NewRecommendService()
	authService := services.NewAuthService(userRepo, redisClient, jwtAuth)
	runStore := runstate.NewStore(redisClient)
	tracker := pending.NewTracker(pending.NewRedisKV(redisClient))

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClient, geminiService, jobRepo, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	videoHandler := handlers.NewVideoHandler(youtubeService)
	generationHandler := handlers.NewGenerationHandler(jobRepo, workerPool, tracker)
	recommendHandler := handlers.NewRecommendHandler(recommendService)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, resultRepo)
	resultHandler := handlers.NewResultHandler(resultRepo)
	runHandler := handlers.NewRunHandler(runStore, sessionRepo, resultRepo, geminiService)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		videoHandler,
		generationHandler,
		recommendHandler,
		sessionHandler,
		resultHandler,
		runHandler,
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ UTES Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
