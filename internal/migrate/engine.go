// Package migrate evolves the cache schema through an ordered registry
// of versioned migration units, recording each applied version in the
// schema_version ledger.
package migrate

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Unit is a single schema-change step. Its Name carries the version as
// a zero-padded numeric prefix ("003_add_sync_errors"); names whose
// prefix does not parse as an integer are skipped during discovery.
// Upgrade must tolerate re-running against a schema it has already
// shaped (check for tables/columns before altering): a batch can stop
// partway and be re-invoked later.
type Unit struct {
	Name      string
	Upgrade   func(tx *sqlx.Tx) error
	Downgrade func(tx *sqlx.Tx) error // reserved for future rollback support
}

// Migration is a discovered unit paired with its parsed version.
type Migration struct {
	Version int
	Unit    Unit
}

// Applied is one ledger row.
type Applied struct {
	Version   int       `db:"version"`
	Name      string    `db:"name"`
	AppliedAt time.Time `db:"applied_at"`
}

// Engine applies registered migrations to a store exactly once each.
// Concurrent invocations against the same database are not safe; the
// caller serializes runs.
type Engine struct {
	db     *sqlx.DB
	units  []Unit
	logger *slog.Logger
}

// NewEngine builds an engine over the given registry and creates the
// ledger table if it does not exist yet.
func NewEngine(db *sqlx.DB, units []Unit, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create schema_version table: %w", err)
	}

	return &Engine{db: db, units: units, logger: logger}, nil
}

// parseVersion extracts the numeric prefix of a unit name. The second
// return is false for names that carry no parseable version.
func parseVersion(name string) (int, bool) {
	prefix := name
	if idx := strings.IndexByte(name, '_'); idx >= 0 {
		prefix = name[:idx]
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// shortName strips the version prefix for ledger display.
func shortName(version int, name string) string {
	return strings.TrimPrefix(name, fmt.Sprintf("%03d_", version))
}

// Available returns all registered migrations sorted ascending by
// version.
func (e *Engine) Available() []Migration {
	var migrations []Migration
	for _, u := range e.units {
		v, ok := parseVersion(u.Name)
		if !ok {
			continue
		}
		migrations = append(migrations, Migration{Version: v, Unit: u})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations
}

// CurrentVersion is the highest version recorded in the ledger, or 0
// for a fresh store.
func (e *Engine) CurrentVersion() (int, error) {
	var version int
	err := e.db.Get(&version, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err != nil {
		return 0, fmt.Errorf("current schema version: %w", err)
	}
	return version, nil
}

// Pending returns the migrations above the current version, capped at
// target when target is non-zero.
func (e *Engine) Pending(target int) ([]Migration, error) {
	current, err := e.CurrentVersion()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range e.Available() {
		if m.Version <= current {
			continue
		}
		if target != 0 && m.Version > target {
			continue
		}
		pending = append(pending, m)
	}
	return pending, nil
}

// Apply runs one migration: the schema change and its ledger row
// commit in the same transaction, or neither does.
func (e *Engine) Apply(m Migration) error {
	tx, err := e.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin migration %03d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if err := m.Unit.Upgrade(tx); err != nil {
		return fmt.Errorf("apply migration %03d (%s): %w", m.Version, m.Unit.Name, err)
	}

	_, err = tx.Exec(`INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)`,
		m.Version, shortName(m.Version, m.Unit.Name), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record migration %03d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %03d: %w", m.Version, err)
	}
	return nil
}

// Migrate applies pending migrations in ascending order up to target
// (0 = latest), stopping at the first failure. It reports how many
// migrations succeeded out of how many were pending, plus the failure
// that stopped the batch, if any.
func (e *Engine) Migrate(target int) (applied, attempted int, err error) {
	pending, err := e.Pending(target)
	if err != nil {
		return 0, 0, err
	}

	for _, m := range pending {
		if err := e.Apply(m); err != nil {
			e.logger.Error("migration failed, stopping batch",
				"version", m.Version, "name", m.Unit.Name, "err", err)
			return applied, len(pending), err
		}
		e.logger.Info("migration applied", "version", m.Version, "name", m.Unit.Name)
		applied++
	}
	return applied, len(pending), nil
}

// History returns the ledger ordered by version.
func (e *Engine) History() ([]Applied, error) {
	var history []Applied
	err := e.db.Select(&history,
		`SELECT version, name, applied_at FROM schema_version ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("migration history: %w", err)
	}
	return history, nil
}
