package migrate

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Registry is the ordered set of schema migrations assembled at
// startup. Append new units here after generating them with
// CreateTemplate.
func Registry() []Unit {
	return []Unit{
		{Name: "001_initial_schema", Upgrade: upgradeInitialSchema},
		{Name: "002_add_subscription_status", Upgrade: upgradeSubscriptionStatus},
		{Name: "003_add_sync_errors", Upgrade: upgradeSyncErrors},
	}
}

func execAll(tx *sqlx.Tx, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

// tableHasColumn reports whether the column already exists, so a
// re-run of a partially applied batch can skip its ALTERs.
func tableHasColumn(tx *sqlx.Tx, table, column string) (bool, error) {
	rows, err := tx.Queryx(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func upgradeInitialSchema(tx *sqlx.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS identities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			external_account_id TEXT UNIQUE,
			credential_ref TEXT,
			color TEXT DEFAULT '#3b82f6',
			order_pos INTEGER,
			slot_index INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			identity_id INTEGER NOT NULL,
			external_channel_id TEXT NOT NULL,
			display_name TEXT NOT NULL,
			thumbnail TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (identity_id) REFERENCES identities(id),
			UNIQUE(identity_id, external_channel_id)
		)`,

		`CREATE TABLE IF NOT EXISTS videos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subscription_id INTEGER NOT NULL,
			external_video_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			thumbnail TEXT,
			published_at TIMESTAMP NOT NULL,
			duration TEXT,
			view_count INTEGER,
			discovered_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			is_watched BOOLEAN DEFAULT 0,
			watched_at TIMESTAMP,
			FOREIGN KEY (subscription_id) REFERENCES subscriptions(id),
			UNIQUE(subscription_id, external_video_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_videos_watched
			ON videos(is_watched, published_at DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_videos_subscription
			ON videos(subscription_id, published_at DESC)`,
	})
}

func upgradeSubscriptionStatus(tx *sqlx.Tx) error {
	hasStatus, err := tableHasColumn(tx, "subscriptions", "status")
	if err != nil {
		return err
	}
	if !hasStatus {
		_, err := tx.Exec(`ALTER TABLE subscriptions
			ADD COLUMN status TEXT NOT NULL DEFAULT 'active'`)
		if err != nil {
			return fmt.Errorf("add status column: %w", err)
		}
	}

	hasDeactivated, err := tableHasColumn(tx, "subscriptions", "deactivated_at")
	if err != nil {
		return err
	}
	if !hasDeactivated {
		_, err := tx.Exec(`ALTER TABLE subscriptions
			ADD COLUMN deactivated_at TIMESTAMP`)
		if err != nil {
			return fmt.Errorf("add deactivated_at column: %w", err)
		}
	}

	return execAll(tx, []string{
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_status
			ON subscriptions(identity_id, status)`,
	})
}

func upgradeSyncErrors(tx *sqlx.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS sync_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			identity_id INTEGER,
			subscription_id INTEGER,
			channel_name TEXT,
			error_type TEXT NOT NULL,
			error_message TEXT NOT NULL,
			occurred_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			resolved BOOLEAN DEFAULT 0,
			FOREIGN KEY (identity_id) REFERENCES identities(id),
			FOREIGN KEY (subscription_id) REFERENCES subscriptions(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sync_errors_unresolved
			ON sync_errors(resolved, occurred_at DESC)`,
	})
}
