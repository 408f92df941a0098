package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const stubTemplate = `package migrate

import "github.com/jmoiron/sqlx"

// %[1]s
//
// Fill in the schema change and append the unit to Registry():
//
//	{Name: "%[2]s", Upgrade: upgrade%[1]s}
func upgrade%[1]s(tx *sqlx.Tx) error {
	// _, err := tx.Exec(` + "`ALTER TABLE ...`" + `)
	return nil
}

// downgrade%[1]s is reserved for future rollback support.
func downgrade%[1]s(tx *sqlx.Tx) error {
	return nil
}
`

// CreateTemplate writes a stub migration unit into dir. When version
// is zero the next free version (highest registered + 1) is allocated.
// It fails if a unit or file with that version already exists; the
// generated unit still has to be added to Registry by hand.
func CreateTemplate(dir, name string, version int, units []Unit) (string, error) {
	if version == 0 {
		for _, u := range units {
			if v, ok := parseVersion(u.Name); ok && v >= version {
				version = v
			}
		}
		version++
	} else {
		for _, u := range units {
			if v, ok := parseVersion(u.Name); ok && v == version {
				return "", fmt.Errorf("migration version %03d already exists (%s)", version, u.Name)
			}
		}
	}

	unitName := fmt.Sprintf("%03d_%s", version, name)
	path := filepath.Join(dir, unitName+".go")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("migration file already exists: %s", path)
	}

	stub := fmt.Sprintf(stubTemplate, camelCase(name), unitName)
	if err := os.WriteFile(path, []byte(stub), 0o644); err != nil {
		return "", fmt.Errorf("write migration template: %w", err)
	}
	return path, nil
}

// camelCase turns "add_user_settings" into "AddUserSettings".
func camelCase(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
