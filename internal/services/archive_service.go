package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/ports"
)

// ArchiveStores is what the archive job reads from and writes to.
type ArchiveStores interface {
	ports.OwnerLister
	ports.ArchiveStore
	ListGroups(ctx context.Context) ([]core.Group, error)
}

// ArchiveService stores a monthly snapshot for every group and every user
// with personal records.
type ArchiveService struct {
	stores      ArchiveStores
	analytics   *AnalyticsService
	concurrency int
	logger      *applog.Logger
	now         func() time.Time
}

func NewArchiveService(stores ArchiveStores, analytics *AnalyticsService, concurrency int, logger *applog.Logger) *ArchiveService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ArchiveService{
		stores:      stores,
		analytics:   analytics,
		concurrency: concurrency,
		logger:      logger.WithComponent(applog.ComponentArchive),
		now:         time.Now,
	}
}

// PreviousMonth returns the first and last day of the month before now.
func PreviousMonth(now time.Time) (start, end core.Date) {
	firstOfThis := core.NewDate(now.Year(), int(now.Month()), 1)
	end = firstOfThis.AddDays(-1)
	start = core.NewDate(end.Year(), int(end.Month()), 1)
	return start, end
}

// ArchiveResult summarises one run.
type ArchiveResult struct {
	Period   string
	Archived int
	Failed   int
}

// ArchivePreviousMonth archives the month before now. A failing scope is
// logged and counted; the others still run.
func (s *ArchiveService) ArchivePreviousMonth(ctx context.Context) (ArchiveResult, error) {
	start, end := PreviousMonth(s.now())
	return s.ArchivePeriod(ctx, start, end)
}

func (s *ArchiveService) ArchivePeriod(ctx context.Context, start, end core.Date) (ArchiveResult, error) {
	scopes, err := s.scopes(ctx)
	if err != nil {
		return ArchiveResult{}, err
	}

	res := ArchiveResult{Period: start.MonthKey()}
	var archived, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, scope := range scopes {
		g.Go(func() error {
			if err := s.archiveScope(gctx, scope, start, end, res.Period); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				atomic.AddInt64(&failed, 1)
				s.logger.ErrorContext(gctx, "Archive failed", "error", err,
					applog.FieldScope, scope.Key(), applog.FieldPeriod, res.Period)
				return nil
			}
			atomic.AddInt64(&archived, 1)
			return nil
		})
	}
	err = g.Wait()

	res.Archived, res.Failed = int(archived), int(failed)
	s.logger.InfoContext(ctx, "Archive run finished",
		applog.FieldPeriod, res.Period,
		"archived", res.Archived,
		"failed", res.Failed)
	if err != nil {
		return res, err
	}
	if res.Failed > 0 {
		return res, fmt.Errorf("archive %s: %d of %d scopes failed", res.Period, res.Failed, len(scopes))
	}
	return res, nil
}

func (s *ArchiveService) scopes(ctx context.Context) ([]core.Scope, error) {
	groups, err := s.stores.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	owners, err := s.stores.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}

	scopes := make([]core.Scope, 0, len(groups)+len(owners))
	for _, g := range groups {
		scopes = append(scopes, core.GroupScope(g.ID))
	}
	for _, o := range owners {
		scopes = append(scopes, core.PersonalScope(o))
	}
	return scopes, nil
}

func (s *ArchiveService) archiveScope(ctx context.Context, scope core.Scope, start, end core.Date, period string) error {
	snap, err := s.analytics.SnapshotForPeriod(ctx, scope, start, end)
	if err != nil {
		return err
	}
	body, err := json.Marshal(snap.Display())
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.stores.SaveArchive(ctx, core.Archive{
		ScopeKey:   scope.Key(),
		Period:     period,
		Snapshot:   body,
		ArchivedAt: s.now().UTC(),
	})
}

// Schedule registers the monthly run on c.
func (s *ArchiveService) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		s.logger.InfoContext(ctx, "Executing monthly archive")
		if _, err := s.ArchivePreviousMonth(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Monthly archive incomplete", "error", err)
		}
	})
}
