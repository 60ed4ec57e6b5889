package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pfm/internal/config"
	applog "pfm/internal/log"
	"pfm/internal/middleware/trace"
	"pfm/internal/services"
)

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the record store and reports middleware counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]any{}

	if s.svc.Store == nil {
		checks["store"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.svc.Store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	tm := s.trace.GetMetrics()
	rm := s.limiter.GetMetrics()
	checks["requests"] = map[string]int64{
		"total":         tm.TotalRequests,
		"server_errors": tm.ServerErrors,
		"rate_limited":  rm.TotalHits,
		"suspicious":    s.detector.SuspiciousCount(),
	}

	if code != http.StatusOK {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "checks", checks)
	}
	NewJSONResponse().Status(code).Body(map[string]any{
		"status":     status,
		"checks":     checks,
		"request_id": trace.GetRequestID(r.Context()),
	}).Write(w)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	query := r.URL.Query()
	rangeDays, err := QueryInt(query, "range", 0)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if rangeDays != 0 && !config.ValidRange(rangeDays) {
		BadRequestError(fmt.Sprintf("range must be one of 7, 30, 90, 365, got %d", rangeDays)).Write(w)
		return
	}

	scope := viewer.ScopeFor(query.Get("group_id"))
	snap, err := s.svc.Analytics.Snapshot(r.Context(), viewer, scope, rangeDays)
	if err != nil {
		s.logFailure(r, "analytics", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(snap.Display()).Write(w)
}

// logFailure logs unexpected service failures. Client errors are left to
// the access log.
func (s *Server) logFailure(r *http.Request, op string, err error) {
	if StatusFor(err) < http.StatusInternalServerError {
		return
	}
	ctx := r.Context()
	applog.FromContext(ctx).ErrorContext(ctx, "Request failed",
		applog.FieldOperation, op,
		applog.FieldError, err)
}
