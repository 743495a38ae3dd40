package repositories

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

//go:embed migrations
var migrationFiles embed.FS

// readMigrations returns the migrations of a dialect in file name order.
func readMigrations(dialect string) ([]string, error) {
	dir := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(migrationFiles, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}
	migrations := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		migrationPath := path.Join(dir, entry.Name())
		migration, err := fs.ReadFile(migrationFiles, migrationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", migrationPath, err)
		}
		migrations = append(migrations, string(migration))
	}
	return migrations, nil
}
