// Package sqlite provides the default SQLite-backed cache store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/screenshot"
)

// Store implements cache.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

var _ cache.Store = (*Store)(nil)

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function to the migrations slice in migrate below.
const currentSchemaVersion = 1

// NewStore opens (or creates) the cache database at dbPath and migrates it
// to the current schema. dbPath can be ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache schema: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("initializing schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("cache schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 migrates v0 to v1, and so on.
	migrations := []func() error{
		s.migrateV1,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration to v%d: %w", i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("updating schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed (
		screenshot_id TEXT PRIMARY KEY,
		marked_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS results (
		id            TEXT PRIMARY KEY,
		position      INTEGER NOT NULL,
		screenshot_id TEXT NOT NULL,
		status        TEXT NOT NULL,
		content_type  TEXT NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		creator       TEXT NOT NULL DEFAULT '',
		message       TEXT NOT NULL DEFAULT '',
		link          TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_screenshot ON results(screenshot_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating initial schema: %w", err)
	}
	return nil
}

// MarkProcessed adds an id to the processed set, write-through. Idempotent.
func (s *Store) MarkProcessed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed (screenshot_id) VALUES (?)`, id)
	if err != nil {
		return fmt.Errorf("marking %s processed: %w", id, err)
	}
	return nil
}

// IsProcessed reports whether an id is in the processed set.
func (s *Store) IsProcessed(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed WHERE screenshot_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking processed %s: %w", id, err)
	}
	return true, nil
}

// LoadProcessedSet returns the full processed set. Read errors yield an
// empty set: a lost cache only costs reprocessing.
func (s *Store) LoadProcessedSet(ctx context.Context) (map[string]bool, error) {
	set := make(map[string]bool)

	rows, err := s.db.QueryContext(ctx, `SELECT screenshot_id FROM processed`)
	if err != nil {
		return set, nil
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		set[id] = true
	}
	if err := rows.Err(); err != nil {
		return make(map[string]bool), nil
	}

	return set, nil
}

// SaveResults replaces the stored result collection in one transaction.
func (s *Store) SaveResults(ctx context.Context, records []screenshot.ResultRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning results transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("clearing previous results: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (id, position, screenshot_id, status, content_type, title, creator, message, link, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing results insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ID, i, rec.ScreenshotID, string(rec.Status), string(rec.ContentType),
			rec.Title, rec.Creator, rec.Message, rec.Link, rec.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("inserting result %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing results: %w", err)
	}
	return nil
}

// LoadResults returns the last saved result collection in saved order.
// Corrupt rows are skipped and read errors yield an empty collection.
func (s *Store) LoadResults(ctx context.Context) ([]screenshot.ResultRecord, error) {
	records := make([]screenshot.ResultRecord, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, screenshot_id, status, content_type, title, creator, message, link, created_at
		FROM results ORDER BY position`)
	if err != nil {
		return records, nil
	}
	defer rows.Close()

	for rows.Next() {
		var rec screenshot.ResultRecord
		var status, contentType string
		var createdAt time.Time
		if err := rows.Scan(&rec.ID, &rec.ScreenshotID, &status, &contentType,
			&rec.Title, &rec.Creator, &rec.Message, &rec.Link, &createdAt); err != nil {
			continue
		}

		rec.Status = screenshot.Status(status)
		if !rec.Status.IsValid() {
			continue
		}
		rec.ContentType = screenshot.ParseContentType(contentType)
		rec.CreatedAt = createdAt.UTC()

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return []screenshot.ResultRecord{}, nil
	}

	return records, nil
}

// RemoveProcessed deletes ids from the processed set.
func (s *Store) RemoveProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM processed WHERE screenshot_id IN (` + placeholders(len(ids)) + `)`
	if _, err := s.db.ExecContext(ctx, query, toArgs(ids)...); err != nil {
		return fmt.Errorf("removing processed ids: %w", err)
	}
	return nil
}

// RemoveResults deletes result records by screenshot id.
func (s *Store) RemoveResults(ctx context.Context, screenshotIDs []string) error {
	if len(screenshotIDs) == 0 {
		return nil
	}

	query := `DELETE FROM results WHERE screenshot_id IN (` + placeholders(len(screenshotIDs)) + `)`
	if _, err := s.db.ExecContext(ctx, query, toArgs(screenshotIDs)...); err != nil {
		return fmt.Errorf("removing results: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
