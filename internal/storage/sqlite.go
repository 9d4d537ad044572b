package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docimg/internal/fileid"
	"github.com/hyperjump/docimg/internal/models"
)

// SQLiteHistory implements History using SQLite.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// NewSQLiteHistory opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteHistory(dbPath string) (*SQLiteHistory, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
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

	return &SQLiteHistory{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		output_dir TEXT NOT NULL,
		inputs TEXT NOT NULL,
		inputs_failed INTEGER NOT NULL DEFAULT 0,
		documents_processed INTEGER NOT NULL DEFAULT 0,
		documents_with_images INTEGER NOT NULL DEFAULT 0,
		images_extracted INTEGER NOT NULL DEFAULT 0,
		failures TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		path TEXT NOT NULL,
		kind TEXT NOT NULL,
		base_name TEXT,
		matched INTEGER NOT NULL DEFAULT 0,
		written INTEGER NOT NULL DEFAULT 0,
		files TEXT,
		skipped INTEGER NOT NULL DEFAULT 0,
		skip_reason TEXT,
		errors TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_documents_run_id ON documents(run_id, position);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordRun inserts a run and its documents in one transaction.
func (s *SQLiteHistory) RecordRun(ctx context.Context, summary *models.RunSummary) error {
	inputsJSON, err := json.Marshal(summary.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}
	failuresJSON, err := json.Marshal(summary.Failures)
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, output_dir, inputs, inputs_failed,
		 documents_processed, documents_with_images, images_extracted, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.StartedAt, summary.FinishedAt, summary.OutputDir, string(inputsJSON),
		summary.InputsFailed, summary.DocumentsProcessed, summary.DocumentsWithImages,
		summary.ImagesExtracted, string(failuresJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, run_id, position, path, kind, base_name, matched, written,
		 files, skipped, skip_reason, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range summary.Documents {
		filesJSON, err := json.Marshal(d.Files)
		if err != nil {
			return fmt.Errorf("failed to marshal files: %w", err)
		}
		errorsJSON, err := json.Marshal(d.Errors)
		if err != nil {
			return fmt.Errorf("failed to marshal errors: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			fileid.DocumentID(summary.RunID, d.Path), summary.RunID, i, d.Path, string(d.Kind),
			d.BaseName, d.Matched, d.Written, string(filesJSON), d.Skipped, d.SkipReason,
			string(errorsJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert document %s: %w", d.Path, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, started_at, finished_at, output_dir, inputs, inputs_failed,
	documents_processed, documents_with_images, images_extracted, failures`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.RunSummary, error) {
	var run models.RunSummary
	var inputsJSON string
	var failuresJSON sql.NullString
	if err := row.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &run.OutputDir, &inputsJSON,
		&run.InputsFailed, &run.DocumentsProcessed, &run.DocumentsWithImages, &run.ImagesExtracted,
		&failuresJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(inputsJSON), &run.Inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
	}
	if failuresJSON.Valid && failuresJSON.String != "" {
		if err := json.Unmarshal([]byte(failuresJSON.String), &run.Failures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failures: %w", err)
		}
	}
	return &run, nil
}

// GetRun returns a run by id with its documents in processing order.
func (s *SQLiteHistory) GetRun(ctx context.Context, id string) (*models.RunSummary, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, kind, base_name, matched, written, files, skipped, skip_reason, errors
		 FROM documents WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d models.DocumentResult
		var kind string
		var baseName, filesJSON, skipReason, errorsJSON sql.NullString
		if err := rows.Scan(&d.Path, &kind, &baseName, &d.Matched, &d.Written, &filesJSON,
			&d.Skipped, &skipReason, &errorsJSON); err != nil {
			return nil, err
		}
		d.Kind = models.ContainerKind(kind)
		d.BaseName = baseName.String
		d.SkipReason = skipReason.String
		if filesJSON.Valid {
			_ = json.Unmarshal([]byte(filesJSON.String), &d.Files)
		}
		if errorsJSON.Valid {
			_ = json.Unmarshal([]byte(errorsJSON.String), &d.Errors)
		}
		run.Documents = append(run.Documents, &d)
	}
	return run, rows.Err()
}

// ListRuns returns runs newest first with offset and limit. Documents are not loaded.
func (s *SQLiteHistory) ListRuns(ctx context.Context, offset, limit int) ([]*models.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountRuns returns the number of recorded runs.
func (s *SQLiteHistory) CountRuns(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// SizeBytes returns the on-disk size of the database including its WAL files.
func (s *SQLiteHistory) SizeBytes() (int64, error) {
	return DiskUsageBytes(s.path, s.path+"-wal", s.path+"-shm")
}

// Close closes the database.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
