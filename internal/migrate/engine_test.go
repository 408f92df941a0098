package migrate

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTableUnit(name, table string) Unit {
	return Unit{
		Name: name,
		Upgrade: func(tx *sqlx.Tx) error {
			_, err := tx.Exec(`CREATE TABLE ` + table + ` (id INTEGER PRIMARY KEY)`)
			return err
		},
	}
}

func TestMigrateFreshStore(t *testing.T) {
	db := newTestDB(t)
	engine, err := NewEngine(db, Registry(), testLogger())
	require.NoError(t, err)

	applied, attempted, err := engine.Migrate(0)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
	assert.Equal(t, 3, attempted)

	current, err := engine.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, current)

	pending, err := engine.Pending(0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// The full registry leaves the complete schema behind.
	var tables []string
	err = db.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)
	assert.Equal(t, []string{"identities", "schema_version", "subscriptions", "sync_errors", "videos"}, tables)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	engine, err := NewEngine(db, Registry(), testLogger())
	require.NoError(t, err)

	_, _, err = engine.Migrate(0)
	require.NoError(t, err)

	applied, attempted, err := engine.Migrate(0)
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.Zero(t, attempted)

	history, err := engine.History()
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestMigrateStopsAtTarget(t *testing.T) {
	db := newTestDB(t)
	engine, err := NewEngine(db, Registry(), testLogger())
	require.NoError(t, err)

	applied, attempted, err := engine.Migrate(1)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, attempted)

	current, err := engine.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, current)

	pending, err := engine.Pending(0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 2, pending[0].Version)
	assert.Equal(t, 3, pending[1].Version)
}

func TestMigrateStopsAtFirstFailure(t *testing.T) {
	units := []Unit{
		createTableUnit("001_create_a", "a"),
		{Name: "002_boom", Upgrade: func(tx *sqlx.Tx) error {
			return errors.New("boom")
		}},
		createTableUnit("003_create_c", "c"),
	}

	db := newTestDB(t)
	engine, err := NewEngine(db, units, testLogger())
	require.NoError(t, err)

	applied, attempted, err := engine.Migrate(0)
	require.Error(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 3, attempted)

	// The store sits at the last good version; nothing after the
	// failure ran.
	current, err := engine.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, current)

	pending, err := engine.Pending(0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 2, pending[0].Version)
	assert.Equal(t, 3, pending[1].Version)

	history, err := engine.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "create_a", history[0].Name)
}

func TestApplyRollsBackLedgerWithSchema(t *testing.T) {
	db := newTestDB(t)
	engine, err := NewEngine(db, nil, testLogger())
	require.NoError(t, err)

	failing := Migration{
		Version: 1,
		Unit: Unit{
			Name: "001_partial",
			Upgrade: func(tx *sqlx.Tx) error {
				if _, err := tx.Exec(`CREATE TABLE partial (id INTEGER)`); err != nil {
					return err
				}
				return errors.New("after ddl")
			},
		},
	}

	require.Error(t, engine.Apply(failing))

	// Neither the table nor the ledger row survived the rollback.
	var count int
	require.NoError(t, db.Get(&count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'partial'`))
	assert.Zero(t, count)

	current, err := engine.CurrentVersion()
	require.NoError(t, err)
	assert.Zero(t, current)
}

func TestAvailableSkipsUnparseableNames(t *testing.T) {
	units := []Unit{
		createTableUnit("002_second", "b"),
		{Name: "bogus_no_version"},
		createTableUnit("001_first", "a"),
		{Name: "-1_negative"},
	}

	db := newTestDB(t)
	engine, err := NewEngine(db, units, testLogger())
	require.NoError(t, err)

	available := engine.Available()
	require.Len(t, available, 2)
	assert.Equal(t, 1, available[0].Version)
	assert.Equal(t, 2, available[1].Version)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		version int
		ok      bool
	}{
		{"001_initial_schema", 1, true},
		{"042_add_widgets", 42, true},
		{"7", 7, true},
		{"bogus_name", 0, false},
		{"_leading_underscore", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := parseVersion(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.version, v)
		})
	}
}

func TestReRunningAppliedUnitsIsSafe(t *testing.T) {
	// Simulates a schema shaped by an earlier run whose ledger row was
	// lost: upgrades guard their ALTERs, so re-applying must not fail.
	db := newTestDB(t)
	engine, err := NewEngine(db, Registry(), testLogger())
	require.NoError(t, err)

	_, _, err = engine.Migrate(0)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM schema_version`)
	require.NoError(t, err)

	applied, _, err := engine.Migrate(0)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
}
