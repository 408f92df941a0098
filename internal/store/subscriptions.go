package store

import (
	"context"
	"fmt"
	"time"
)

// AddSubscription inserts an active subscription for the identity. A
// uniqueness conflict on (identity_id, external_channel_id) means the
// subscription is already known (possibly inactive or deleted); the
// existing row is returned untouched and created is false.
func (s *Store) AddSubscription(ctx context.Context, identityID int64, externalChannelID, displayName, thumbnail string) (*Subscription, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (identity_id, external_channel_id, display_name, thumbnail, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity_id, external_channel_id) DO NOTHING
	`, identityID, externalChannelID, displayName, thumbnail, StatusActive, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("add subscription %s: %w", externalChannelID, err)
	}
	affected, _ := res.RowsAffected()

	var sub Subscription
	err = s.db.GetContext(ctx, &sub, `
		SELECT * FROM subscriptions
		WHERE identity_id = ? AND external_channel_id = ?
	`, identityID, externalChannelID)
	if err != nil {
		return nil, false, fmt.Errorf("get subscription %s: %w", externalChannelID, err)
	}
	return &sub, affected > 0, nil
}

// GetSubscription returns one subscription by id.
func (s *Store) GetSubscription(ctx context.Context, id int64) (*Subscription, error) {
	var sub Subscription
	err := s.db.GetContext(ctx, &sub, `SELECT * FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get subscription %d: %w", id, err)
	}
	return &sub, nil
}

// ListSubscriptions returns the identity's subscriptions, always
// excluding rows the user removed. Inactive rows are included only
// when includeInactive is set.
func (s *Store) ListSubscriptions(ctx context.Context, identityID int64, includeInactive bool) ([]Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE identity_id = ? AND status != ?`
	args := []any{identityID, StatusDeleted}

	if !includeInactive {
		query += ` AND status = ?`
		args = append(args, StatusActive)
	}
	query += ` ORDER BY id`

	var subs []Subscription
	if err := s.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, fmt.Errorf("list subscriptions for identity %d: %w", identityID, err)
	}
	return subs, nil
}

// DeactivateSubscription marks an active subscription inactive and
// drops its cached videos. The status change and the cascade delete
// commit together.
func (s *Store) DeactivateSubscription(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deactivate subscription %d: %w", id, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE subscriptions SET status = ?, deactivated_at = ?
		WHERE id = ? AND status = ?
	`, StatusInactive, time.Now().UTC(), id, StatusActive)
	if err != nil {
		return fmt.Errorf("deactivate subscription %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE subscription_id = ?`, id); err != nil {
		return fmt.Errorf("delete videos for subscription %d: %w", id, err)
	}

	return tx.Commit()
}

// ReactivateSubscription returns an inactive subscription to active and
// clears its deactivation timestamp. Deleted rows are never touched.
func (s *Store) ReactivateSubscription(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = ?, deactivated_at = NULL
		WHERE id = ? AND status = ?
	`, StatusActive, id, StatusInactive)
	if err != nil {
		return fmt.Errorf("reactivate subscription %d: %w", id, err)
	}
	return nil
}

// MarkSubscriptionDeleted records a user's manual removal. The row is
// kept for history and wins over automated re-discovery.
func (s *Store) MarkSubscriptionDeleted(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = ? WHERE id = ?`, StatusDeleted, id)
	if err != nil {
		return fmt.Errorf("mark subscription %d deleted: %w", id, err)
	}
	return nil
}
