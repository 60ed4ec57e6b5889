package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "pfm/internal/log"
	"pfm/internal/middleware/ratelimit"
	"pfm/internal/middleware/security"
	"pfm/internal/middleware/trace"
	"pfm/internal/services"
)

// Pinger reports whether a dependency is reachable. The record store
// implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the handlers' collaborators.
type Services struct {
	Transactions *services.TransactionService
	Analytics    *services.AnalyticsService
	Groups       *services.GroupService
	Store        Pinger
}

type Config struct {
	Addr               string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	svc      Services
	limiter  *ratelimit.Limiter
	detector *security.Detector
	trace    *trace.Middleware
	logger   *applog.Logger
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc Services, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	rlConfig := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	s := &Server{
		svc:      svc,
		limiter:  ratelimit.NewLimiter(rlConfig),
		detector: security.NewDetector(),
		logger:   logger,
		started:  time.Now(),
	}
	s.trace = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/analytics", withViewer(s.handleAnalytics))

	mux.HandleFunc("GET /api/transactions", withViewer(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.write(withViewer(s.handleCreateTransaction)))
	mux.Handle("PUT /api/transactions/{id}", s.write(withViewer(s.handleUpdateTransaction)))
	mux.Handle("DELETE /api/transactions/{id}", s.write(withViewer(s.handleDeleteTransaction)))
	mux.Handle("POST /api/chat", s.write(withViewer(s.handleChat)))

	mux.HandleFunc("GET /api/groups", withViewer(s.handleListGroups))
	mux.Handle("POST /api/groups", s.write(withViewer(s.handleCreateGroup)))
	mux.Handle("DELETE /api/groups/{id}", s.write(withViewer(s.handleDeleteGroup)))
	mux.HandleFunc("GET /api/groups/{id}/members", withViewer(s.handleListMembers))
	mux.Handle("DELETE /api/groups/{id}/members/me", s.write(withViewer(s.handleLeaveGroup)))
	mux.Handle("POST /api/groups/{id}/invitations", s.write(withViewer(s.handleInvite)))
	mux.HandleFunc("GET /api/invitations", withViewer(s.handlePendingInvitations))
	mux.Handle("POST /api/invitations/{id}/accept", s.write(withViewer(s.handleAcceptInvitation)))
	mux.Handle("POST /api/invitations/{id}/decline", s.write(withViewer(s.handleDeclineInvitation)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.trace.Middleware(headers.Middleware(s.blockSuspicious(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// write applies the per-client rate limit to a mutating handler.
func (s *Server) write(h http.HandlerFunc) http.Handler {
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})
	return limit(h)
}

func (s *Server) blockSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request blocked",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
			NotFoundError("not found").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
