// Package migrations embeds the SQL schema for each supported store.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

// FS holds the migration files, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dialects supported by Up.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Up returns the contents of every up migration for dialect, in file name order.
// Every statement is written to be safely re-applied.
func Up(dialect string) ([]string, error) {
	names, err := fs.Glob(FS, dialect+"/*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list %s migrations: %w", dialect, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	sort.Strings(names)

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		data, err := FS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		scripts = append(scripts, string(data))
	}
	return scripts, nil
}
