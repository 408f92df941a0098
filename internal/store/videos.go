package store

import (
	"context"
	"fmt"
	"time"
)

// AddVideo inserts a newly discovered video. A uniqueness conflict on
// (subscription_id, external_video_id) means the video is already
// cached; created is false and the stored row is left as-is.
func (s *Store) AddVideo(ctx context.Context, v *Video) (bool, error) {
	if v.DiscoveredAt.IsZero() {
		v.DiscoveredAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (subscription_id, external_video_id, title, description, thumbnail,
		                    published_at, duration, view_count, discovered_at, is_watched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(subscription_id, external_video_id) DO NOTHING
	`, v.SubscriptionID, v.ExternalVideoID, v.Title, v.Description, v.Thumbnail,
		v.PublishedAt, v.Duration, v.ViewCount, v.DiscoveredAt)
	if err != nil {
		return false, fmt.Errorf("add video %s: %w", v.ExternalVideoID, err)
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		v.ID, _ = res.LastInsertId()
	}
	return affected > 0, nil
}

// ListVideosByIdentity returns the identity's cached videos from active
// subscriptions, newest first. Watched rows are filtered out unless
// includeWatched is set.
func (s *Store) ListVideosByIdentity(ctx context.Context, identityID int64, includeWatched bool) ([]Video, error) {
	query := `
		SELECT v.* FROM videos v
		JOIN subscriptions s ON v.subscription_id = s.id
		WHERE s.identity_id = ? AND s.status = ?
	`
	args := []any{identityID, StatusActive}

	if !includeWatched {
		query += ` AND v.is_watched = 0`
	}
	query += ` ORDER BY v.published_at DESC`

	var videos []Video
	if err := s.db.SelectContext(ctx, &videos, query, args...); err != nil {
		return nil, fmt.Errorf("list videos for identity %d: %w", identityID, err)
	}
	return videos, nil
}

// CountVideosBySubscription reports how many videos a subscription
// currently has cached.
func (s *Store) CountVideosBySubscription(ctx context.Context, subscriptionID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM videos WHERE subscription_id = ?`, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("count videos for subscription %d: %w", subscriptionID, err)
	}
	return count, nil
}

// MarkVideoWatched flags a video as watched and stamps the time.
func (s *Store) MarkVideoWatched(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE videos SET is_watched = 1, watched_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark video %d watched: %w", id, err)
	}
	return nil
}

// ClearWatchedVideos removes all watched videos for an identity.
func (s *Store) ClearWatchedVideos(ctx context.Context, identityID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM videos WHERE id IN (
			SELECT v.id FROM videos v
			JOIN subscriptions s ON v.subscription_id = s.id
			WHERE s.identity_id = ? AND v.is_watched = 1
		)
	`, identityID)
	if err != nil {
		return 0, fmt.Errorf("clear watched videos for identity %d: %w", identityID, err)
	}
	return res.RowsAffected()
}
