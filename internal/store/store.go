package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SubscriptionStatus is the lifecycle state of a subscription.
// "deleted" is terminal: automated reconciliation never moves a
// subscription out of it.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusInactive SubscriptionStatus = "inactive"
	StatusDeleted  SubscriptionStatus = "deleted"
)

// Identity is one independently authenticated account being tracked.
type Identity struct {
	ID                int64     `db:"id"`
	Name              string    `db:"name"`
	ExternalAccountID string    `db:"external_account_id"`
	CredentialRef     string    `db:"credential_ref"`
	Color             string    `db:"color"`
	OrderPos          int       `db:"order_pos"`
	SlotIndex         *int      `db:"slot_index"`
	CreatedAt         time.Time `db:"created_at"`
}

// Subscription ties an identity to an external channel.
type Subscription struct {
	ID                int64              `db:"id"`
	IdentityID        int64              `db:"identity_id"`
	ExternalChannelID string             `db:"external_channel_id"`
	DisplayName       string             `db:"display_name"`
	Thumbnail         string             `db:"thumbnail"`
	Status            SubscriptionStatus `db:"status"`
	DeactivatedAt     *time.Time         `db:"deactivated_at"`
	CreatedAt         time.Time          `db:"created_at"`
}

// Video is one cached upload belonging to a subscription.
type Video struct {
	ID              int64      `db:"id"`
	SubscriptionID  int64      `db:"subscription_id"`
	ExternalVideoID string     `db:"external_video_id"`
	Title           string     `db:"title"`
	Description     string     `db:"description"`
	Thumbnail       string     `db:"thumbnail"`
	PublishedAt     time.Time  `db:"published_at"`
	Duration        string     `db:"duration"`
	ViewCount       int64      `db:"view_count"`
	DiscoveredAt    time.Time  `db:"discovered_at"`
	IsWatched       bool       `db:"is_watched"`
	WatchedAt       *time.Time `db:"watched_at"`
}

// SyncError is one durable record of a reconciliation or ingestion
// failure. Rows are append-only; only the resolved flag is mutated.
type SyncError struct {
	ID             int64     `db:"id"`
	IdentityID     int64     `db:"identity_id"`
	SubscriptionID *int64    `db:"subscription_id"`
	ChannelName    string    `db:"channel_name"`
	ErrorType      string    `db:"error_type"`
	ErrorMessage   string    `db:"error_message"`
	OccurredAt     time.Time `db:"occurred_at"`
	Resolved       bool      `db:"resolved"`
}

// Store is the SQLite-backed subscription/video cache.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and
// configures WAL mode. It does not create the schema; run the
// migration engine before using the accessors.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store{db: db, logger: logger}, nil
}

// DB exposes the underlying connection for the migration engine.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}
