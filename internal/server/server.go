package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/fairshare/internal/auth"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/handler"
	"github.com/dukerupert/fairshare/internal/metrics"
	"github.com/dukerupert/fairshare/internal/middleware"
	"github.com/dukerupert/fairshare/internal/push"
	"github.com/dukerupert/fairshare/internal/store"
)

var (
	pinPolicy      = middleware.Policy{Name: "pin", Limit: 5, Window: time.Minute}
	decisionPolicy = middleware.Policy{Name: "decision", Limit: 30, Window: time.Minute}
)

type Server struct {
	db           *sql.DB
	tokens       *auth.Tokens
	partnerH     *handler.PartnerHandler
	taskH        *handler.TaskHandler
	conditionH   *handler.ConditionHandler
	requestH     *handler.RequestHandler
	fairnessH    *handler.FairnessHandler
	pushH        *handler.PushHandler
	partnerStore *store.PartnerStore
	requestStore *store.RequestStore
	rateLimiter  *middleware.RateLimiter
	proxies      []netip.Prefix
	registry     *prometheus.Registry
	logger       *slog.Logger
}

// New wires stores, handlers and metrics around db. pushSvc may be nil, in
// which case push routes are not registered and nobody is notified.
func New(db *sql.DB, tokens *auth.Tokens, pushSvc *push.Service, clock calendar.Clock, logger *slog.Logger) *Server {
	partnerStore := store.NewPartnerStore(db)
	taskStore := store.NewTaskStore(db)
	conditionStore := store.NewConditionStore(db)
	requestStore := store.NewRequestStore(db)
	pushStore := store.NewPushStore(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheus(registry)

	var notifier handler.RequestNotifier
	var pushH *handler.PushHandler
	if pushSvc.Enabled() {
		notifier = push.NewNotifier(pushSvc, pushStore, partnerStore, rec, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:           db,
		tokens:       tokens,
		partnerH:     handler.NewPartnerHandler(partnerStore, conditionStore, clock, logger.With("component", "partner")),
		taskH:        handler.NewTaskHandler(taskStore, partnerStore, clock, rec, logger.With("component", "task")),
		conditionH:   handler.NewConditionHandler(conditionStore, clock, logger.With("component", "condition")),
		requestH:     handler.NewRequestHandler(requestStore, taskStore, partnerStore, clock, rec, notifier, logger.With("component", "request")),
		fairnessH:    handler.NewFairnessHandler(partnerStore, taskStore, conditionStore, clock, logger.With("component", "fairness")),
		pushH:        pushH,
		partnerStore: partnerStore,
		requestStore: requestStore,
		rateLimiter:  middleware.NewRateLimiter(),
		registry:     registry,
		logger:       logger,
	}
}

// TrustProxies sets the reverse proxies whose X-Forwarded-For header names
// the client. Call before Router.
func (s *Server) TrustProxies(prefixes []netip.Prefix) {
	s.proxies = prefixes
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// RequestStore returns the request store for cleanup tasks.
func (s *Server) RequestStore() *store.RequestStore {
	return s.requestStore
}

// PartnerStore returns the partner store for roster import.
func (s *Server) PartnerStore() *store.PartnerStore {
	return s.partnerStore
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.partnerStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	// Apply request logging middleware, behind client address resolution
	logged := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.TrustProxies(s.proxies)(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc, p middleware.Policy) http.Handler {
	return middleware.RateLimit(s.rateLimiter, p)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Partner routes
	mux.HandleFunc("GET /api/me", s.partnerH.Me)
	mux.HandleFunc("GET /api/partners", s.partnerH.List)
	mux.Handle("PUT /api/partners/{id}/pin", s.rateLimitedHandler(s.partnerH.SetPIN, pinPolicy))

	// Task routes
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("PATCH /api/tasks/{id}/toggle", s.taskH.Toggle)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	// Condition routes
	mux.HandleFunc("GET /api/conditions", s.conditionH.List)
	mux.HandleFunc("POST /api/conditions", s.conditionH.Upsert)
	mux.HandleFunc("DELETE /api/conditions/{id}", s.conditionH.Delete)

	// Adjustment request routes
	mux.HandleFunc("GET /api/requests", s.requestH.List)
	mux.HandleFunc("POST /api/requests", s.requestH.Create)
	mux.Handle("PATCH /api/requests/{id}/decision", s.rateLimitedHandler(s.requestH.Decide, decisionPolicy))

	mux.HandleFunc("GET /api/fairness", s.fairnessH.Report)

	// Push notification routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscribe", s.pushH.Unsubscribe)
	}
}
