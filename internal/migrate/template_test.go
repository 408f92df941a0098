package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTemplateAllocatesNextVersion(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateTemplate(dir, "add_widgets", 0, Registry())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "004_add_widgets.go"), path)

	stub, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(stub), "upgradeAddWidgets")
	assert.Contains(t, string(stub), `"004_add_widgets"`)
}

func TestCreateTemplateExplicitVersion(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateTemplate(dir, "backfill", 10, Registry())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "010_backfill.go"), path)
}

func TestCreateTemplateRejectsTakenVersion(t *testing.T) {
	_, err := CreateTemplate(t.TempDir(), "clash", 2, Registry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002")
}

func TestCreateTemplateRejectsExistingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := CreateTemplate(dir, "add_widgets", 4, Registry())
	require.NoError(t, err)

	_, err = CreateTemplate(dir, "add_widgets", 4, Registry())
	require.Error(t, err)
}

func TestCamelCase(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"add_user_settings", "AddUserSettings"},
		{"backfill", "Backfill"},
		{"drop-old-index", "DropOldIndex"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, camelCase(tt.in))
	}
}
