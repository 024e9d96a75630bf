package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrRunNotFound is returned when a run_id has no matching run_history row.
var ErrRunNotFound = errors.New("ledger: run not found")

// Store records and retrieves run_history rows. Every write is best-effort:
// per SPEC_FULL.md, a ledger failure is logged and swallowed, never escalated
// to a pipeline failure, mirroring the teacher's "audit logging is
// best-effort" stance in its own persistent key store.
type Store struct {
	conn   *Connection
	logger *slog.Logger
}

// NewStore wraps a Connection with an optional logger. A nil logger falls
// back to slog.Default.
func NewStore(conn *Connection, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{conn: conn, logger: logger}
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	return s.conn.Close()
}

// RecordStart inserts a "running" row for a newly started pipeline run.
// Failures are logged and swallowed: see the Store doc comment.
func (s *Store) RecordStart(ctx context.Context, run Run) {
	query := `
		INSERT INTO run_history (run_id, release, config_hash, commit_sha, started_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := s.conn.ExecContext(ctx, query,
		run.RunID, run.Release, run.ConfigHash, run.CommitSHA, run.StartedAt, StatusRunning,
	); err != nil {
		s.logger.Error("ledger: failed to record run start",
			slog.String("run_id", run.RunID), slog.String("error", err.Error()))
	}
}

// RecordFinish updates a run_history row with its terminal status, row
// count, and artifact checksums. Failures are logged and swallowed.
func (s *Store) RecordFinish(ctx context.Context, run Run) {
	checksumsJSON, err := json.Marshal(run.Checksums)
	if err != nil {
		s.logger.Error("ledger: failed to marshal checksums",
			slog.String("run_id", run.RunID), slog.String("error", err.Error()))

		return
	}

	query := `
		UPDATE run_history
		SET finished_at = $1, status = $2, row_count = $3, checksums = $4, error_detail = $5
		WHERE run_id = $6
	`

	if _, err := s.conn.ExecContext(ctx, query,
		run.FinishedAt, run.Status, run.RowCount, checksumsJSON, run.ErrorDetail, run.RunID,
	); err != nil {
		s.logger.Error("ledger: failed to record run finish",
			slog.String("run_id", run.RunID), slog.String("error", err.Error()))
	}
}

// FindByRunID retrieves one run_history row by run id, for the operator
// HTTP surface's GET /runs/{run_id}. Unlike the write path, read failures
// are returned to the caller rather than swallowed.
func (s *Store) FindByRunID(ctx context.Context, runID string) (*Run, error) {
	query := `
		SELECT run_id, release, config_hash, commit_sha, started_at, finished_at, status, row_count, checksums, error_detail
		FROM run_history
		WHERE run_id = $1
	`

	var (
		run           Run
		finishedAt    sql.NullTime
		checksumsJSON []byte
		errorDetail   sql.NullString
	)

	err := s.conn.QueryRowContext(ctx, query, runID).Scan(
		&run.RunID, &run.Release, &run.ConfigHash, &run.CommitSHA,
		&run.StartedAt, &finishedAt, &run.Status, &run.RowCount, &checksumsJSON, &errorDetail,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrRunNotFound
	case err != nil:
		return nil, fmt.Errorf("ledger: find run %q: %w", runID, err)
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	run.ErrorDetail = errorDetail.String

	if len(checksumsJSON) > 0 {
		if err := json.Unmarshal(checksumsJSON, &run.Checksums); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal checksums for run %q: %w", runID, err)
		}
	}

	return &run, nil
}
