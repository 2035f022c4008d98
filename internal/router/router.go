package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"utes-backend/internal/handlers"
	"utes-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	videoHandler *handlers.VideoHandler,
	generationHandler *handlers.GenerationHandler,
	recommendHandler *handlers.RecommendHandler,
	sessionHandler *handlers.SessionHandler,
	resultHandler *handlers.ResultHandler,
	runHandler *handlers.RunHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	// Generation is the expensive path; keep it tighter
	generateLimiter := middleware.NewRateLimiter(5, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Generation API ────
	// Open endpoints; a Bearer token, when present, ties the job to the
	// user so an interrupted poll can be resumed later.
	r.Group(func(r chi.Router) {
		r.Use(jwtAuth.Optional)
		r.With(generateLimiter.Middleware).Post("/api/generate", generationHandler.Generate)
		r.Get("/api/status/{jobId}", generationHandler.Status)
		r.Post("/api/recommend-questions", recommendHandler.Recommend)
		r.Get("/api/recommend-questions/quick", recommendHandler.Quick)
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

		// ──── Video Routes ────
		r.Route("/videos", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/resolve", videoHandler.Resolve)
			r.Get("/{videoID}/completion", resultHandler.Completion)
		})

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", sessionHandler.Save)
			r.Get("/", sessionHandler.List)
			r.Get("/{id}", sessionHandler.Get)
		})

		// ──── Result Routes ────
		r.Route("/results", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", resultHandler.Save)
		})

		// ──── Run Routes ────
		r.Route("/runs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", runHandler.Start)
			r.Get("/{id}", runHandler.Get)
			r.Post("/{id}/select", runHandler.SelectOption)
			r.Post("/{id}/advance", runHandler.Advance)
			r.Post("/{id}/answer", runHandler.SubmitEssay)
			r.Post("/{id}/next", runHandler.AdvanceFeedback)
			r.Post("/{id}/retake", runHandler.Retake)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/pending", generationHandler.Pending)
			r.Delete("/pending", generationHandler.ClearPending)
		})
	})

	return r
}
