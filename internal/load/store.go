// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package load materializes the extraction log into a relational SQLite
// database. It is a downstream consumer of the log store: it replays
// extraction files in chronological order, keeps its own checkpoint of
// the last commit it fully applied, and maintains book rows derived
// from item fields.
package load

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/readings-engine/internal/extraction"
	"github.com/pdiddy/readings-engine/pkg/types"
)

// Store manages the readings SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the database at cfg.Path, creating the
// schema if it does not exist.
func NewStore(cfg types.DatabaseConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			author_first_name TEXT NOT NULL DEFAULT '',
			author_last_name TEXT NOT NULL DEFAULT '',
			date_read TEXT,
			source_file TEXT,
			UNIQUE(title, author_first_name, author_last_name)
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			book_id INTEGER NOT NULL REFERENCES books(id),
			section TEXT,
			content TEXT NOT NULL,
			source_file TEXT,
			date_read TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_book_id ON items(book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_section ON items(section)`,
		`CREATE TABLE IF NOT EXISTS replay_status (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_commit_hash TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='items_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE items_fts USING fts5(content, content=items, content_rowid=rowid)`,
			`CREATE TRIGGER items_ai AFTER INSERT ON items BEGIN
				INSERT INTO items_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
			`CREATE TRIGGER items_ad AFTER DELETE ON items BEGIN
				INSERT INTO items_fts(items_fts, rowid, content) VALUES('delete', old.rowid, old.content);
			END`,
			`CREATE TRIGGER items_au AFTER UPDATE ON items BEGIN
				INSERT INTO items_fts(items_fts, rowid, content) VALUES('delete', old.rowid, old.content);
				INSERT INTO items_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Checkpoint returns the commit hash of the last extraction file fully
// applied to the database, or "" when nothing has been applied yet.
func (s *Store) Checkpoint(ctx context.Context) (string, error) {
	var commit string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_commit_hash FROM replay_status WHERE id = 1`,
	).Scan(&commit)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading replay checkpoint: %w", err)
	}
	return commit, nil
}

// SyncSummary holds counts from one Sync run.
type SyncSummary struct {
	Applied int // extraction files applied
	Added   int
	Updated int
	Deleted int
}

// Sync replays extraction files recorded after the database's
// checkpoint, applying each file inside one transaction and advancing
// the checkpoint only when its file is fully applied, so a crash leaves
// the database resumable at a file boundary.
func (s *Store) Sync(ctx context.Context, logStore *extraction.Store, w io.Writer) (SyncSummary, error) {
	checkpoint, err := s.Checkpoint(ctx)
	if err != nil {
		return SyncSummary{}, err
	}

	files, err := logStore.ExtractionsSince(checkpoint)
	if err != nil {
		return SyncSummary{}, err
	}

	var summary SyncSummary
	for _, ef := range files {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		counts, err := s.applyExtraction(ctx, ef)
		if err != nil {
			return summary, fmt.Errorf("applying extraction %s: %w",
				shortHash(ef.Metadata.GitCommitHash), err)
		}
		summary.Applied++
		summary.Added += counts.Added
		summary.Updated += counts.Updated
		summary.Deleted += counts.Deleted

		fmt.Fprintf(w, "applied %s (%d add, %d update, %d delete)\n",
			shortHash(ef.Metadata.GitCommitHash), counts.Added, counts.Updated, counts.Deleted)
	}

	if summary.Applied == 0 {
		fmt.Fprintln(w, "database up to date")
	} else {
		fmt.Fprintf(w, "\napplied %d extraction file(s): %d add, %d update, %d delete\n",
			summary.Applied, summary.Added, summary.Updated, summary.Deleted)
	}
	return summary, nil
}

func (s *Store) applyExtraction(ctx context.Context, ef *types.ExtractionFile) (SyncSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var counts SyncSummary
	for _, item := range ef.Items {
		switch item.Operation {
		case types.OpAdd, types.OpUpdate:
			if err := upsertItem(ctx, tx, item); err != nil {
				return SyncSummary{}, err
			}
			if item.Operation == types.OpAdd {
				counts.Added++
			} else {
				counts.Updated++
			}
		case types.OpDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, item.ID); err != nil {
				return SyncSummary{}, fmt.Errorf("deleting item %s: %w", item.ID, err)
			}
			counts.Deleted++
		default:
			return SyncSummary{}, fmt.Errorf("unknown operation %q for item %s", item.Operation, item.ID)
		}
	}

	// Title and author corrections arrive as delete/add pairs, which can
	// strand book rows with no remaining items. Collect them here.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM books WHERE id NOT IN (SELECT DISTINCT book_id FROM items)`,
	); err != nil {
		return SyncSummary{}, fmt.Errorf("collecting orphan books: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO replay_status (id, last_commit_hash) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET last_commit_hash=excluded.last_commit_hash`,
		ef.Metadata.GitCommitHash,
	); err != nil {
		return SyncSummary{}, fmt.Errorf("advancing checkpoint: %w", err)
	}

	return counts, tx.Commit()
}

func upsertItem(ctx context.Context, tx *sql.Tx, item types.Item) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO books (title, author_first_name, author_last_name, date_read, source_file)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(title, author_first_name, author_last_name) DO UPDATE SET
			date_read=excluded.date_read, source_file=excluded.source_file`,
		item.BookTitle, item.AuthorFirstName, item.AuthorLastName,
		nullable(item.DateRead), item.SourceFile,
	); err != nil {
		return fmt.Errorf("upserting book %q: %w", item.BookTitle, err)
	}

	var bookID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM books WHERE title = ? AND author_first_name = ? AND author_last_name = ?`,
		item.BookTitle, item.AuthorFirstName, item.AuthorLastName,
	).Scan(&bookID); err != nil {
		return fmt.Errorf("resolving book %q: %w", item.BookTitle, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO items (id, book_id, section, content, source_file, date_read)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			book_id=excluded.book_id, section=excluded.section,
			content=excluded.content, source_file=excluded.source_file,
			date_read=excluded.date_read`,
		item.ID, bookID, item.Section, item.Content, item.SourceFile, nullable(item.DateRead),
	); err != nil {
		return fmt.Errorf("upserting item %s: %w", item.ID, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func shortHash(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
