// Package syncer aligns the local subscription/video cache with the
// external source, one identity at a time.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ViacheslavK/youtube-dashboards/internal/store"
	"github.com/ViacheslavK/youtube-dashboards/pkg/source"
)

// AdapterFunc yields a source adapter bound to one identity's
// credentials.
type AdapterFunc func(ctx context.Context, ident *store.Identity) (source.Adapter, error)

// Syncer runs reconciliation and ingestion passes.
type Syncer struct {
	store     *store.Store
	adapter   AdapterFunc
	maxVideos int
	logger    *slog.Logger
}

// New creates a syncer. maxVideos caps how many recent videos are
// requested per channel during ingestion.
func New(st *store.Store, adapter AdapterFunc, maxVideos int, logger *slog.Logger) *Syncer {
	if maxVideos <= 0 {
		maxVideos = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: st, adapter: adapter, maxVideos: maxVideos, logger: logger}
}

// ReconcileStats counts the outcome of one reconciliation pass.
type ReconcileStats struct {
	Activated   int
	Deactivated int
	Unchanged   int
	Added       int
}

// IdentityResult is the outcome of a full pass for one identity.
type IdentityResult struct {
	Reconcile ReconcileStats
	NewVideos int
}

// Reconcile brings the identity's cached subscription statuses into
// agreement with the fetched external channel list. Absence from the
// list is the only unsubscribe signal: active rows missing from it go
// inactive (dropping their cached videos), inactive rows present in it
// come back, and rows the user deleted are never touched. Channels not
// cached at all are inserted as active.
func (s *Syncer) Reconcile(ctx context.Context, identityID int64, channels []source.Channel) (ReconcileStats, error) {
	var stats ReconcileStats

	external := make(map[string]source.Channel, len(channels))
	for _, ch := range channels {
		external[ch.ExternalID] = ch
	}

	subs, err := s.store.ListSubscriptions(ctx, identityID, true)
	if err != nil {
		return stats, fmt.Errorf("reconcile identity %d: %w", identityID, err)
	}

	for _, sub := range subs {
		_, present := external[sub.ExternalChannelID]
		switch {
		case present && sub.Status == store.StatusInactive:
			if err := s.store.ReactivateSubscription(ctx, sub.ID); err != nil {
				return stats, err
			}
			stats.Activated++
		case present:
			stats.Unchanged++
		case sub.Status == store.StatusActive:
			if err := s.store.DeactivateSubscription(ctx, sub.ID); err != nil {
				return stats, err
			}
			s.logger.Info("subscription deactivated",
				"identity", identityID, "channel", sub.DisplayName)
			stats.Deactivated++
		}
		// Inactive rows still absent externally stay as they are.
	}

	for _, ch := range channels {
		_, created, err := s.store.AddSubscription(ctx, identityID, ch.ExternalID, ch.DisplayName, ch.Thumbnail)
		if err != nil {
			return stats, err
		}
		if created {
			stats.Added++
		}
	}

	return stats, nil
}

// SyncIdentity runs a full pass for one identity: fetch the external
// subscription list, reconcile statuses, then ingest recent videos for
// the resulting active set.
func (s *Syncer) SyncIdentity(ctx context.Context, ident *store.Identity) (IdentityResult, error) {
	var result IdentityResult

	adapter, err := s.adapter(ctx, ident)
	if err != nil {
		return result, fmt.Errorf("adapter for identity %s: %w", ident.Name, err)
	}

	channels, err := adapter.ListSubscriptions(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch subscriptions for %s: %w", ident.Name, err)
	}

	result.Reconcile, err = s.Reconcile(ctx, ident.ID, channels)
	if err != nil {
		return result, err
	}

	result.NewVideos, err = s.IngestVideos(ctx, ident, adapter)
	if err != nil {
		return result, err
	}

	s.logger.Info("identity synced", "identity", ident.Name,
		"activated", result.Reconcile.Activated,
		"deactivated", result.Reconcile.Deactivated,
		"added", result.Reconcile.Added,
		"new_videos", result.NewVideos)
	return result, nil
}
