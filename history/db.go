// Package history persists batch-run records to a local SQLite database.
// It is purely additive observability: compile semantics never depend on
// it, and a missing or broken history database only costs the record.
package history

import (
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/forge/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

// Open opens (creating if needed) the history database at path and brings
// its schema up to date.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating history directory for %s", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening history database %s", path)
	}

	// WAL mode so history writes from workers never block each other.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "setting busy timeout")
	}

	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debugw("history database opened", "path", path)
	return db, nil
}

// Migrate runs all pending migrations in version order.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	entries, err := migrations.ReadDir("sqlite/migrations")
	if err != nil {
		return errors.Wrap(err, "reading migrations")
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, filename := range files {
		version := strings.Split(filename, "_")[0]

		var applied bool
		err := db.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version,
		).Scan(&applied)
		if err != nil {
			// schema_migrations is created by migration 000 itself.
			if version != "000" {
				return errors.Wrapf(err, "schema_migrations missing before migration %s", filename)
			}
		} else if applied {
			continue
		}

		script, err := migrations.ReadFile("sqlite/migrations/" + filename)
		if err != nil {
			return errors.Wrapf(err, "reading migration %s", filename)
		}
		if _, err := db.Exec(string(script)); err != nil {
			return errors.Wrapf(err, "applying migration %s", filename)
		}
		if _, err := db.Exec(
			"INSERT OR IGNORE INTO schema_migrations (version) VALUES (?)", version,
		); err != nil {
			return errors.Wrapf(err, "recording migration %s", filename)
		}

		logger.Debugw("applied migration", "file", filename)
	}
	return nil
}
