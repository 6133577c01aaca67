package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/resumatch/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
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

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS resumes (
		id TEXT PRIMARY KEY,
		file_path TEXT,
		content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_resumes_created_at ON resumes(created_at);

	CREATE TABLE IF NOT EXISTS ledger (
		position INTEGER PRIMARY KEY,
		external_id TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_external_id ON ledger(external_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// SaveResume inserts a resume or replaces the text and path of an existing one.
func (s *SQLiteStorage) SaveResume(ctx context.Context, resume *models.Resume) error {
	now := time.Now()
	if resume.CreatedAt.IsZero() {
		resume.CreatedAt = now
	}
	resume.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resumes (id, file_path, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   file_path = excluded.file_path,
		   content = excluded.content,
		   updated_at = excluded.updated_at`,
		resume.ID, resume.FilePath, resume.Content, resume.CreatedAt, resume.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save resume %s: %w", resume.ID, err)
	}
	return nil
}

// GetResume returns a resume by ID.
func (s *SQLiteStorage) GetResume(ctx context.Context, id string) (*models.Resume, error) {
	var r models.Resume
	var filePath sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_path, content, created_at, updated_at
		 FROM resumes WHERE id = ?`, id,
	).Scan(&r.ID, &filePath, &r.Content, &r.CreatedAt, &r.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	r.FilePath = filePath.String
	return &r, nil
}

// ResumeExists reports whether a resume with id is stored.
func (s *SQLiteStorage) ResumeExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM resumes WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListResumes returns resumes newest first.
func (s *SQLiteStorage) ListResumes(ctx context.Context, offset, limit int) ([]*models.Resume, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_path, content, created_at, updated_at
		 FROM resumes ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resumes []*models.Resume
	for rows.Next() {
		var r models.Resume
		var filePath sql.NullString
		if err := rows.Scan(&r.ID, &filePath, &r.Content, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.FilePath = filePath.String
		resumes = append(resumes, &r)
	}
	return resumes, rows.Err()
}

// CountResumes returns the total number of resumes.
func (s *SQLiteStorage) CountResumes(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resumes`).Scan(&count)
	return count, err
}

// LoadLedger returns the external ids ordered by position.
// A gap in positions means the table was edited by hand and is reported as an error.
func (s *SQLiteStorage) LoadLedger(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT position, external_id FROM ledger ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var pos int
		var id string
		if err := rows.Scan(&pos, &id); err != nil {
			return nil, err
		}
		if pos != len(ids) {
			return nil, fmt.Errorf("ledger position gap: expected %d, found %d", len(ids), pos)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppendLedger stores ids at positions start, start+1, ... in one transaction.
// Positions already present are left untouched.
func (s *SQLiteStorage) AppendLedger(ctx context.Context, start int, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO ledger (position, external_id) VALUES (?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, start+i, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
