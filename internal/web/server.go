// Package web provides the HTTP server and JSON API for the question bank
// import service.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/JonMunkholm/qbank/internal/config"
	"github.com/JonMunkholm/qbank/internal/core"
	mw "github.com/JonMunkholm/qbank/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP server for the question bank API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer assembles the middleware stack and routes.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)

	// Only honor forwarded headers when trusted proxies are configured;
	// otherwise every client could pick its own rate limit bucket.
	if len(s.cfg.Security.TrustedProxies) > 0 {
		s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	}

	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key", "Last-Event-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// Liveness stays outside auth so probes work without keys.
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if s.cfg.Security.RequireAPIKey {
				r.Use(mw.APIKeyAuth(&s.cfg.Security))
			}

			// Long-lived endpoints: SSE progress and blocking result reads
			// run outside the request timeout.
			r.Get("/imports/{importID}/progress", s.handleImportProgress)
			r.Get("/imports/{importID}/result", s.handleImportResult)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

				// Import operations carry their own, stricter rate limit.
				r.Group(func(r chi.Router) {
					if s.cfg.Rate.Enabled {
						limiter := newRateLimiter(s.cfg.Rate.ImportLimit, time.Minute)
						r.Use(limiter.middleware)
					}
					r.Post("/import", s.handleImport)
					r.Post("/preview", s.handlePreview)
					r.Post("/imports", s.handleStartImport)
				})

				r.Post("/imports/{importID}/cancel", s.handleCancelImport)
				r.Get("/imports/active", s.handleActiveImports)
				r.Get("/history", s.handleHistory)
				r.Post("/reset", s.handleResetBank)

				// Bank access
				r.Get("/questions", s.handleListQuestions)
				r.Get("/questions/{questionID}", s.handleGetQuestion)
				r.Delete("/questions/{questionID}", s.handleDeleteQuestion)
				r.Get("/stats", s.handleStats)
				r.Get("/collections", s.handleCollections)
				r.Get("/presets", s.handlePresets)
				r.Get("/export/csv", s.handleExportCSV)
				r.Get("/export/json", s.handleExportJSON)
			})
		})
	})
}

// Start begins listening for HTTP requests using the configured address and
// timeouts. It blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // 0 keeps SSE streams open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// The API serves no markup, so lock resource loading down entirely.
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, core.UserMessage{
				Message: "Too many requests",
				Action:  "Wait a minute before trying again",
				Code:    "RATE001",
			}, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
