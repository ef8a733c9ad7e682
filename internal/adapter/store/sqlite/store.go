// Package sqlite implements the submissions store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
	"github.com/ZGSQ-QIANG/scholarship/internal/store"
)

// Store implements store.Submissions using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates the submissions table if it doesn't exist.
func (s *Store) createSchema() error {
	schema := `
	-- One row per verification job; files and results are stored as JSON
	-- documents since the pipeline only ever reads them whole.
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		files_json TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		current_step TEXT NOT NULL DEFAULT '',
		results_json TEXT,
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Create inserts a new pending submission.
func (s *Store) Create(ctx context.Context, id string, files []domain.FileRef) (domain.Submission, error) {
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("failed to encode files: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO submissions (id, files_json, status, progress, current_step, results_json, error, created_at, updated_at)
		VALUES (?, ?, ?, 0, '', NULL, '', ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query, id, string(filesJSON), string(domain.StatusPending), now.Unix(), now.Unix())
	if err != nil {
		return domain.Submission{}, fmt.Errorf("failed to create submission: %w", err)
	}

	return domain.Submission{
		ID:        id,
		Files:     files,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Get retrieves a submission by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.Submission, error) {
	query := `
		SELECT id, files_json, status, progress, current_step, results_json, error, created_at, updated_at
		FROM submissions
		WHERE id = ?
	`

	sub, err := scanSubmission(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Submission{}, store.ErrNotFound
		}
		return domain.Submission{}, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// Update applies a partial update; nil fields in partial leave the stored
// column untouched.
func (s *Store) Update(ctx context.Context, id string, partial store.Partial) error {
	var sets []string
	var args []any

	if partial.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*partial.Status))
	}
	if partial.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *partial.Progress)
	}
	if partial.CurrentStep != nil {
		sets = append(sets, "current_step = ?")
		args = append(args, *partial.CurrentStep)
	}
	if partial.Files != nil {
		filesJSON, err := json.Marshal(*partial.Files)
		if err != nil {
			return fmt.Errorf("failed to encode files: %w", err)
		}
		sets = append(sets, "files_json = ?")
		args = append(args, string(filesJSON))
	}
	if partial.Results != nil {
		resultsJSON, err := json.Marshal(*partial.Results)
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		sets = append(sets, "results_json = ?")
		args = append(args, string(resultsJSON))
	}
	if partial.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *partial.Error)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().Unix())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE submissions SET %s WHERE id = ?", strings.Join(sets, ", "))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// ListRecent retrieves the most recent submissions, limited by the given count.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.Submission, error) {
	query := `
		SELECT id, files_json, status, progress, current_step, results_json, error, created_at, updated_at
		FROM submissions
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return subs, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (domain.Submission, error) {
	var sub domain.Submission
	var status, filesJSON string
	var resultsJSON sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(
		&sub.ID,
		&filesJSON,
		&status,
		&sub.Progress,
		&sub.CurrentStep,
		&resultsJSON,
		&sub.Error,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Submission{}, err
	}

	sub.Status = domain.SubmissionStatus(status)
	sub.CreatedAt = time.Unix(createdAt, 0)
	sub.UpdatedAt = time.Unix(updatedAt, 0)

	if err := json.Unmarshal([]byte(filesJSON), &sub.Files); err != nil {
		return domain.Submission{}, fmt.Errorf("failed to decode files: %w", err)
	}
	if resultsJSON.Valid && resultsJSON.String != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &sub.Results); err != nil {
			return domain.Submission{}, fmt.Errorf("failed to decode results: %w", err)
		}
	}

	return sub, nil
}

var _ store.Submissions = (*Store)(nil)
