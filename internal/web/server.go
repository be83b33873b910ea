// Package web provides the HTTP server and handlers for the asset import API.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/config"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/web/middleware"
)

// Server is the HTTP server for the import pipeline API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server over the core service.
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

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}

	s.router.Use(middleware.APIKeyAuth(&s.cfg.Security))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/imports", func(r chi.Router) {
			r.Post("/", s.handleStartImport)

			r.Route("/{batchID}", func(r chi.Router) {
				r.Get("/", s.handleGetBatch)
				r.Delete("/", s.handleDiscardBatch)
				r.Get("/rows", s.handleListRows)
				r.Get("/summary", s.handleSummary)
				r.Post("/mappings", s.handleApplyMapping)
				r.Post("/reprocess", s.handleReprocess)
				r.Post("/confirm", s.handleConfirm)
				r.Post("/cancel", s.handleCancel)

				r.Post("/rows/{rowIndex}", s.handleUpdateRow)
				r.Post("/rows/{rowIndex}/override", s.handleOverrideDuplicate)
			})
		})

		// Registry listings for the operator's mapping pickers.
		r.Get("/locations", s.handleListLocations)
		r.Get("/categories", s.handleListCategories)
	})
}

// Start begins listening on the configured address, blocking until shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
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

// securityHeaders adds the standard hardening headers to every response.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

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

// allow consumes a token for the IP if any remain in the current window.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}

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

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
