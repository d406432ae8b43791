// Package store keeps a local catalogue of processed documents in SQLite:
// one row per document plus its outline headings, so outlines can be listed,
// fetched and deduplicated by content hash across restarts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = errors.New("document not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	title         TEXT,
	content_hash  TEXT NOT NULL,
	block_count   INTEGER NOT NULL,
	heading_count INTEGER NOT NULL,
	blocks_json   TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_content_hash ON documents(content_hash);
CREATE TABLE IF NOT EXISTS headings (
	doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	seq    INTEGER NOT NULL,
	level  TEXT NOT NULL,
	text   TEXT NOT NULL,
	page   INTEGER NOT NULL,
	PRIMARY KEY (doc_id, seq)
);`

// Store is a SQLite-backed document catalogue.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Summary is one row of List.
type Summary struct {
	ID           string    `json:"doc_id"`
	Filename     string    `json:"filename"`
	Title        string    `json:"title"`
	ContentHash  string    `json:"content_hash"`
	BlockCount   int       `json:"block_count"`
	HeadingCount int       `json:"heading_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	log.Info("opening document store", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Pragmas and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name identifies the store in job progress.
func (s *Store) Name() string { return "sqlite" }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save inserts or replaces a document and its headings.
func (s *Store) Save(ctx context.Context, doc *doctree.Document) error {
	blocks := doc.Blocks
	if blocks == nil {
		blocks = []doctree.Block{}
	}
	blocksJSON, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("marshal blocks: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var title sql.NullString
	if doc.Outline.HasTitle() {
		title = sql.NullString{String: doc.Outline.Title, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, title, content_hash, block_count, heading_count, blocks_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			title = excluded.title,
			content_hash = excluded.content_hash,
			block_count = excluded.block_count,
			heading_count = excluded.heading_count,
			blocks_json = excluded.blocks_json,
			created_at = excluded.created_at`,
		doc.ID, doc.Filename, title, doc.ContentHash, len(doc.Blocks), len(doc.Outline.Entries),
		string(blocksJSON), doc.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM headings WHERE doc_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("clear headings: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO headings (doc_id, seq, level, text, page) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare headings: %w", err)
	}
	defer stmt.Close()
	for i, e := range doc.Outline.Entries {
		if _, err := stmt.ExecContext(ctx, doc.ID, i, e.Level.String(), e.Text, e.Page); err != nil {
			return fmt.Errorf("insert heading %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("document saved", "doc_id", doc.ID, "headings", len(doc.Outline.Entries))
	return nil
}

// Get loads a document with its blocks and outline.
func (s *Store) Get(ctx context.Context, id string) (*doctree.Document, error) {
	var (
		doc        doctree.Document
		title      sql.NullString
		blocksJSON string
		created    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, title, content_hash, blocks_json, created_at
		FROM documents WHERE id = ?`, id).
		Scan(&doc.ID, &doc.Filename, &title, &doc.ContentHash, &blocksJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	doc.Outline.Title = title.String
	if doc.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(blocksJSON), &doc.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT level, text, page FROM headings WHERE doc_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query headings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			level string
			e     doctree.HeadingEntry
		)
		if err := rows.Scan(&level, &e.Text, &e.Page); err != nil {
			return nil, fmt.Errorf("scan heading: %w", err)
		}
		if e.Level, err = doctree.ParseLevel(level); err != nil {
			return nil, err
		}
		e.Block = -1
		doc.Outline.Entries = append(doc.Outline.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns document summaries, newest first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, title, content_hash, block_count, heading_count, created_at
		FROM documents ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			title   sql.NullString
			created string
		)
		if err := rows.Scan(&sum.ID, &sum.Filename, &title, &sum.ContentHash, &sum.BlockCount, &sum.HeadingCount, &created); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		sum.Title = title.String
		if sum.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a document and its headings.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByHash returns the id of a document with the given content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE content_hash = ? ORDER BY created_at LIMIT 1`, hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find by hash: %w", err)
	}
	return id, true, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}
