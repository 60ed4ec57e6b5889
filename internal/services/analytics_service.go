package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pfm/internal/analytics"
	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/ports"
)

// ErrSuperseded is returned to a snapshot request that a newer request of
// the same viewer and scope replaced. Its result is discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

type AnalyticsConfig struct {
	DefaultRangeDays int
	FetchTimeout     time.Duration
	// DemoFallback serves sample records instead of an empty list when the
	// store cannot be read.
	DemoFallback bool
}

// AnalyticsService fetches a scope's records for a window ending today and
// composes the snapshot. Only the latest request per viewer and scope is
// allowed to complete.
type AnalyticsService struct {
	fetcher ports.TransactionFetcher
	members MembershipChecker
	config  AnalyticsConfig
	logger  *applog.Logger
	now     func() time.Time

	mu       sync.Mutex
	seq      uint64
	inflight map[string]inflightRequest
}

type inflightRequest struct {
	seq    uint64
	cancel context.CancelFunc
}

func NewAnalyticsService(fetcher ports.TransactionFetcher, members MembershipChecker, config AnalyticsConfig, logger *applog.Logger) *AnalyticsService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if config.DefaultRangeDays <= 0 {
		config.DefaultRangeDays = 30
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 10 * time.Second
	}
	return &AnalyticsService{
		fetcher:  fetcher,
		members:  members,
		config:   config,
		logger:   logger.WithComponent(applog.ComponentAnalytics),
		now:      time.Now,
		inflight: make(map[string]inflightRequest),
	}
}

// begin registers a request and cancels the one it replaces.
func (s *AnalyticsService) begin(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		prev.cancel()
	}
	s.seq++
	mine := s.seq
	s.inflight[key] = inflightRequest{seq: mine, cancel: cancel}
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if cur, ok := s.inflight[key]; ok && cur.seq == mine {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
		cancel()
	}
}

// superseded reports whether reqCtx was cancelled by a newer request rather
// than by the caller.
func superseded(parent, reqCtx context.Context) bool {
	return reqCtx.Err() != nil && parent.Err() == nil
}

// Snapshot computes the analytics of scope over the last rangeDays days.
// rangeDays <= 0 selects the configured default.
func (s *AnalyticsService) Snapshot(ctx context.Context, viewer Viewer, scope core.Scope, rangeDays int) (analytics.Snapshot, error) {
	if err := authorize(ctx, s.members, viewer, scope); err != nil {
		return analytics.Snapshot{}, err
	}
	if rangeDays <= 0 {
		rangeDays = s.config.DefaultRangeDays
	}

	reqCtx, done := s.begin(ctx, viewer.UserID+"|"+scope.Key())
	defer done()

	now := s.now()
	today := core.DateOf(now)
	start := today.AddDays(-rangeDays)

	fetchCtx, cancel := context.WithTimeout(reqCtx, s.config.FetchTimeout)
	txs, err := s.fetcher.FetchTransactions(fetchCtx, scope, start, today)
	cancel()

	var usesFallback, fetchFailed bool
	if err != nil {
		if superseded(ctx, reqCtx) {
			return analytics.Snapshot{}, ErrSuperseded
		}
		if ctx.Err() != nil {
			return analytics.Snapshot{}, ctx.Err()
		}
		s.logger.WarnContext(ctx, "Fetch failed, serving fallback data",
			"error", err,
			applog.FieldScope, scope.Key(),
			applog.FieldFallback, s.config.DemoFallback)
		fetchFailed = true
		usesFallback = s.config.DemoFallback
		txs = nil
		if usesFallback {
			txs = analytics.SampleTransactions(scope, today)
		}
	}

	snap := analytics.Compose(txs, analytics.Params{RangeDays: rangeDays, Scope: scope, Now: now})
	snap.UsesFallbackData = usesFallback
	snap.FetchFailed = fetchFailed

	if superseded(ctx, reqCtx) {
		return analytics.Snapshot{}, ErrSuperseded
	}

	s.logger.DebugContext(ctx, "Snapshot computed",
		applog.FieldScope, scope.Key(),
		applog.FieldRangeDays, rangeDays,
		applog.FieldRecords, len(txs))
	return snap, nil
}

// SnapshotForPeriod composes the snapshot of scope over [start, end] without
// an access check. Used by jobs that act on behalf of the system.
func (s *AnalyticsService) SnapshotForPeriod(ctx context.Context, scope core.Scope, start, end core.Date) (analytics.Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	txs, err := s.fetcher.FetchTransactions(fetchCtx, scope, start, end)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("fetch %s: %w", scope.Key(), err)
	}
	days := int(end.Sub(start.Time).Hours()/24) + 1
	return analytics.Compose(txs, analytics.Params{RangeDays: days, Scope: scope, Now: end.Time}), nil
}
