// Package scheduler runs periodic sync passes over all identities.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ViacheslavK/youtube-dashboards/internal/store"
	"github.com/ViacheslavK/youtube-dashboards/internal/syncer"
)

// Scheduler drives the sync loop. One pass reconciles and ingests each
// identity sequentially: the ingest step depends on the committed
// result of reconciliation, and a single writer keeps SQLite happy.
type Scheduler struct {
	store         *store.Store
	syncer        *syncer.Syncer
	interval      time.Duration
	retentionDays int
	logger        *slog.Logger
}

// New creates a scheduler.
func New(st *store.Store, sy *syncer.Syncer, interval time.Duration, retentionDays int, logger *slog.Logger) *Scheduler {
	if interval == 0 {
		interval = time.Hour
	}
	if retentionDays == 0 {
		retentionDays = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:         st,
		syncer:        sy,
		interval:      interval,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	s.logger.Info("scheduler: initial sync pass")
	s.syncAll(ctx)

	s.logger.Info("scheduler: running", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			s.syncAll(ctx)
		}
	}
}

func (s *Scheduler) syncAll(ctx context.Context) {
	idents, err := s.store.ListIdentities(ctx)
	if err != nil {
		s.logger.Error("scheduler: list identities", "err", err)
		return
	}

	totalNew := 0
	for i := range idents {
		result, err := s.syncer.SyncIdentity(ctx, &idents[i])
		if err != nil {
			s.logger.Error("scheduler: identity sync failed",
				"identity", idents[i].Name, "err", err)
			continue
		}
		totalNew += result.NewVideos
	}
	s.logger.Info("scheduler: pass complete",
		"identities", len(idents), "new_videos", totalNew)

	purged, err := s.store.PurgeResolvedErrors(ctx, s.retentionDays)
	if err != nil {
		s.logger.Error("scheduler: purge resolved errors", "err", err)
	} else if purged > 0 {
		s.logger.Info("scheduler: purged resolved errors", "count", purged)
	}
}
