// Package web provides the HTTP server and JSON API for the fleet
// application.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/agrifleet/agrifleet/internal/auth"
	"github.com/agrifleet/agrifleet/internal/config"
	"github.com/agrifleet/agrifleet/internal/export"
	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Store is the persistence surface the handlers use. *store.Store satisfies
// it in production; tests supply an in-memory fake.
type Store interface {
	Assets(ctx context.Context) ([]fleet.Asset, error)
	Asset(ctx context.Context, id string) (fleet.Asset, error)
	CreateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error)
	UpdateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error)
	DeleteAsset(ctx context.Context, id string) error

	FuelRecords(ctx context.Context) ([]fleet.FuelRecord, error)
	CreateFuelRecord(ctx context.Context, r fleet.FuelRecord) (fleet.FuelRecord, error)
	DeleteFuelRecord(ctx context.Context, id string) error

	Sessions(ctx context.Context) ([]fleet.OperatingSession, error)
	CreateSession(ctx context.Context, s fleet.OperatingSession) (fleet.OperatingSession, error)
	CloseSession(ctx context.Context, id string, end time.Time, fuelConsumed float64) (fleet.OperatingSession, error)
	DeleteSession(ctx context.Context, id string) error

	MaintenanceTasks(ctx context.Context) ([]fleet.MaintenanceTask, error)
	CreateMaintenanceTask(ctx context.Context, t fleet.MaintenanceTask) (fleet.MaintenanceTask, error)
	UpdateMaintenanceTask(ctx context.Context, t fleet.MaintenanceTask) (fleet.MaintenanceTask, error)
	MoveMaintenanceTask(ctx context.Context, id string, status fleet.TaskStatus) (fleet.MaintenanceTask, error)
	DeleteMaintenanceTask(ctx context.Context, id string) error

	InventoryItems(ctx context.Context) ([]fleet.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, it fleet.InventoryItem) (fleet.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, it fleet.InventoryItem) (fleet.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id string) error

	UserByUsername(ctx context.Context, username string) (fleet.User, error)
	CreateUser(ctx context.Context, u fleet.User) (fleet.User, error)
}

// Server is the HTTP server for the fleet API.
type Server struct {
	store   Store
	exports *export.Service
	auth    *auth.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server instance with all routes and middleware wired.
func NewServer(store Store, exports *export.Service, authSvc *auth.Service, cfg *config.Config) *Server {
	s := &Server{
		store:   store,
		exports: exports,
		auth:    authSvc,
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
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/assets", func(r chi.Router) {
				r.Get("/", s.handleListAssets)
				r.Post("/", s.handleCreateAsset)
				r.Get("/{id}", s.handleGetAsset)
				r.Put("/{id}", s.handleUpdateAsset)
				r.Delete("/{id}", s.handleDeleteAsset)
			})

			r.Route("/fuel-records", func(r chi.Router) {
				r.Get("/", s.handleListFuelRecords)
				r.Post("/", s.handleCreateFuelRecord)
				r.Delete("/{id}", s.handleDeleteFuelRecord)
				r.Get("/export.csv", s.handleStreamFuelRecordsCSV)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", s.handleListSessions)
				r.Post("/", s.handleCreateSession)
				r.Post("/{id}/close", s.handleCloseSession)
				r.Delete("/{id}", s.handleDeleteSession)
			})

			r.Route("/maintenance", func(r chi.Router) {
				r.Get("/", s.handleListMaintenance)
				r.Post("/", s.handleCreateMaintenance)
				r.Put("/{id}", s.handleUpdateMaintenance)
				r.Post("/{id}/status", s.handleMoveMaintenance)
				r.Delete("/{id}", s.handleDeleteMaintenance)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", s.handleListInventory)
				r.Post("/", s.handleCreateInventory)
				r.Put("/{id}", s.handleUpdateInventory)
				r.Delete("/{id}", s.handleDeleteInventory)
			})

			r.Get("/kpi/fuel", s.handleFuelKPI)

			r.Route("/export", func(r chi.Router) {
				r.Post("/{dataset}", s.handleStartExport)
				r.Get("/{id}/progress", s.handleExportProgress)
				r.Get("/{id}/download", s.handleExportDownload)
			})
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
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

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
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

// allow checks if the request should be allowed and consumes a token if so.
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
		ip := r.RemoteAddr
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			ip = realIP
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
