//go:build cgo_sqlite

package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // CGO-enabled alternative driver

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// OpenCGO opens the metadata store through the CGO-enabled mattn driver
// instead of the default pure-Go modernc.org/sqlite, for platforms where
// CGO is available and its driver's performance characteristics are
// preferred. Same schema, same Store surface.
func OpenCGO(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, ragerr.DependencyUnavailableError("cannot create metadata store directory", err)
		}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, ragerr.DependencyUnavailableError("cannot open metadata store", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ragerr.DependencyUnavailableError("cannot connect to metadata store", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
