package store

import (
	"context"
	"fmt"
	"time"
)

// maxErrorMessageLen bounds stored error messages.
const maxErrorMessageLen = 500

// LogSyncError appends a failure record. It never fails the caller: a
// logging problem is reported to the process log and swallowed.
func (s *Store) LogSyncError(ctx context.Context, identityID int64, subscriptionID *int64, channelName, errorType, message string) {
	if len(message) > maxErrorMessageLen {
		message = message[:maxErrorMessageLen]
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_errors (identity_id, subscription_id, channel_name, error_type, error_message, occurred_at, resolved)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, identityID, subscriptionID, channelName, errorType, message, time.Now().UTC())
	if err != nil {
		s.logger.Error("write sync error record failed",
			"identity", identityID, "channel", channelName, "err", err)
	}
}

// ListUnresolvedErrors returns unresolved failures newest first,
// scoped to one identity when identityID is non-zero.
func (s *Store) ListUnresolvedErrors(ctx context.Context, identityID int64) ([]SyncError, error) {
	query := `SELECT * FROM sync_errors WHERE resolved = 0`
	var args []any

	if identityID != 0 {
		query += ` AND identity_id = ?`
		args = append(args, identityID)
	}
	query += ` ORDER BY occurred_at DESC, id DESC`

	var errs []SyncError
	if err := s.db.SelectContext(ctx, &errs, query, args...); err != nil {
		return nil, fmt.Errorf("list unresolved errors: %w", err)
	}
	return errs, nil
}

// MarkErrorResolved flips a failure record to resolved. Resolving an
// already-resolved row is a no-op.
func (s *Store) MarkErrorResolved(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_errors SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark error %d resolved: %w", id, err)
	}
	return nil
}

// PurgeResolvedErrors deletes resolved records older than the given
// number of days and reports how many were removed.
func (s *Store) PurgeResolvedErrors(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_errors WHERE resolved = 1 AND occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge resolved errors: %w", err)
	}
	return res.RowsAffected()
}
