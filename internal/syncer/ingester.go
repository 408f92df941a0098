package syncer

import (
	"context"
	"fmt"

	"github.com/ViacheslavK/youtube-dashboards/internal/store"
	"github.com/ViacheslavK/youtube-dashboards/pkg/source"
)

// IngestVideos pulls recent videos for each of the identity's active
// subscriptions and caches the ones not seen before. A failing
// subscription is recorded in the error log and skipped; it never
// aborts the rest of the batch. Returns the number of newly cached
// videos.
func (s *Syncer) IngestVideos(ctx context.Context, ident *store.Identity, adapter source.Adapter) (int, error) {
	subs, err := s.store.ListSubscriptions(ctx, ident.ID, false)
	if err != nil {
		return 0, fmt.Errorf("ingest for identity %d: %w", ident.ID, err)
	}

	newCount := 0
	for _, sub := range subs {
		videos, err := adapter.ListRecentVideos(ctx, sub.ExternalChannelID, s.maxVideos)
		if err != nil {
			s.recordFailure(ctx, ident.ID, sub, err)
			continue
		}

		for _, v := range videos {
			created, err := s.store.AddVideo(ctx, &store.Video{
				SubscriptionID:  sub.ID,
				ExternalVideoID: v.ExternalID,
				Title:           v.Title,
				Description:     v.Description,
				Thumbnail:       v.Thumbnail,
				PublishedAt:     v.PublishedAt,
				Duration:        v.Duration,
				ViewCount:       v.ViewCount,
			})
			if err != nil {
				s.recordFailure(ctx, ident.ID, sub, err)
				break
			}
			if created {
				newCount++
			}
		}
	}

	return newCount, nil
}

func (s *Syncer) recordFailure(ctx context.Context, identityID int64, sub store.Subscription, err error) {
	kind := source.Classify(err)
	subID := sub.ID
	s.store.LogSyncError(ctx, identityID, &subID, sub.DisplayName, string(kind), err.Error())
	s.logger.Warn("subscription sync failed",
		"identity", identityID, "channel", sub.DisplayName, "type", kind, "err", err)
}
