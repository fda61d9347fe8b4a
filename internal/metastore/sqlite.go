package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go driver, no CGO

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// SQLiteStore implements Store over modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) a SQLite-backed metadata store at path,
// applying WAL mode, foreign-key enforcement, and a busy timeout so
// concurrent readers and the single writer don't collide.
func Open(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, ragerr.DependencyUnavailableError("cannot create metadata store directory", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ragerr.DependencyUnavailableError("cannot open metadata store", err)
	}

	// SQLite serializes writes; one connection avoids "database is locked".
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

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return ragerr.InternalError("metadata store migration failed", err)
		}
	}
	s.logger.Debug("metastore_migrated")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS programs (
		program_id    INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL UNIQUE,
		active        INTEGER NOT NULL DEFAULT 1,
		display_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		doc_id                   TEXT PRIMARY KEY,
		filename                 TEXT NOT NULL,
		doc_type                 TEXT NOT NULL,
		year                     INTEGER NOT NULL DEFAULT 0,
		programs                 TEXT NOT NULL DEFAULT '[]',
		tags                     TEXT NOT NULL DEFAULT '[]',
		outcome                  TEXT NOT NULL DEFAULT '',
		sensitivity_confirmed_at TEXT NOT NULL,
		is_sensitive             INTEGER NOT NULL DEFAULT 0,
		created_by               TEXT NOT NULL DEFAULT '',
		chunk_count              INTEGER NOT NULL DEFAULT 0,
		created_at               TEXT NOT NULL,
		updated_at               TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS document_programs (
		doc_id       TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
		program_name TEXT NOT NULL REFERENCES programs(name) ON DELETE RESTRICT,
		PRIMARY KEY (doc_id, program_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_year ON documents(year)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents(doc_type)`,
	`CREATE TABLE IF NOT EXISTS writing_styles (
		style_id    TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		owner_id    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		conversation_id TEXT PRIMARY KEY,
		principal_id    TEXT NOT NULL,
		context         TEXT NOT NULL DEFAULT '{}',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		message_id      TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
		role            TEXT NOT NULL,
		text            TEXT NOT NULL,
		citations       TEXT NOT NULL DEFAULT '[]',
		created_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS outputs (
		output_id       TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
		funder          TEXT NOT NULL DEFAULT '',
		amount          REAL NOT NULL DEFAULT 0,
		date            TEXT,
		text            TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS generation_links (
		output_id       TEXT NOT NULL REFERENCES outputs(output_id) ON DELETE CASCADE,
		conversation_id TEXT NOT NULL,
		message_id      TEXT NOT NULL,
		PRIMARY KEY (output_id, message_id)
	)`,
}
