package auth

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsDir returns the migrations rooted at their directory, the
// layout the persistence client expects.
func MigrationsDir() (fs.FS, error) {
	return fs.Sub(GetMigrationsFS(), "data/sql/migrations")
}
