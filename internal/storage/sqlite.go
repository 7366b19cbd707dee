package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/youyaku/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		error_kind TEXT NOT NULL DEFAULT '',
		length TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		token_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_created_at ON summaries(created_at);
	CREATE INDEX IF NOT EXISTS idx_summaries_source ON summaries(source);
	`
	_, err := db.Exec(schema)
	return err
}

const recordColumns = `id, title, text, summary, success, error, error_kind, length, mode, source, token_count, created_at`

// SaveRecord inserts rec, replacing any record with the same id. An empty ID
// is filled with a new UUID and a zero CreatedAt with the current time.
func (s *SQLiteStorage) SaveRecord(ctx context.Context, rec *models.SummaryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO summaries (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Text, rec.Summary, rec.Success, rec.Error, string(rec.ErrorKind),
		string(rec.Length), string(rec.Mode), rec.Source, rec.TokenCount, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.ID, err)
	}
	return nil
}

// GetRecord returns a record by ID, or ErrNotFound.
func (s *SQLiteStorage) GetRecord(ctx context.Context, id string) (*models.SummaryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM summaries WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecords returns records with offset and limit, newest first.
func (s *SQLiteStorage) ListRecords(ctx context.Context, offset, limit int) ([]*models.SummaryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM summaries
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.SummaryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DeleteRecord removes a record by ID, or returns ErrNotFound.
func (s *SQLiteStorage) DeleteRecord(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM summaries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CountRecords returns the number of stored records.
func (s *SQLiteStorage) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM summaries`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.SummaryRecord, error) {
	var (
		rec                     models.SummaryRecord
		errorKind, length, mode string
	)
	err := sc.Scan(&rec.ID, &rec.Title, &rec.Text, &rec.Summary, &rec.Success, &rec.Error,
		&errorKind, &length, &mode, &rec.Source, &rec.TokenCount, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.ErrorKind = models.FailureKind(errorKind)
	rec.Length = models.LengthCategory(length)
	rec.Mode = models.Mode(mode)
	return &rec, nil
}
