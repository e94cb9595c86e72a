package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	baseRepo "github.com/DonTee-Why/algo-drill-sub000/pkg/repository"
)

// TestRunRepository persists harness invocations. Rows are append-only.
type TestRunRepository interface {
	Create(ctx context.Context, tx db.Transaction, run *model.TestRun) error
	ListBySession(ctx context.Context, sessionID string, opts baseRepo.ListOptions) ([]model.TestRun, error)
}

// MySQLTestRunRepository implements TestRunRepository with MySQL.
type MySQLTestRunRepository struct {
	db db.Database
}

// NewTestRunRepository creates a test run repository.
func NewTestRunRepository(database db.Database) TestRunRepository {
	return &MySQLTestRunRepository{db: database}
}

const testRunColumns = "run_id, session_id, language, source_code, source_key, result, cpu_time_ms, memory_kb, stderr_truncated, is_submission, created_at"

// Create inserts a test run record.
func (r *MySQLTestRunRepository) Create(ctx context.Context, tx db.Transaction, run *model.TestRun) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.RunID == "" {
		return errors.New("runID is required")
	}
	if run.SessionID == "" {
		return errors.New("sessionID is required")
	}
	if run.Language == "" {
		return errors.New("language is required")
	}

	result, err := json.Marshal(run.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO drill_test_runs
		(run_id, session_id, language, source_code, source_key, result, cpu_time_ms, memory_kb, stderr_truncated, is_submission)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		run.RunID,
		run.SessionID,
		run.Language,
		run.SourceCode,
		run.SourceKey,
		result,
		run.CPUTimeMs,
		run.MemoryKB,
		run.StderrTruncated,
		run.IsSubmission,
	)
	return err
}

// ListBySession returns a session's test runs, oldest first by default.
func (r *MySQLTestRunRepository) ListBySession(ctx context.Context, sessionID string, opts baseRepo.ListOptions) ([]model.TestRun, error) {
	if sessionID == "" {
		return nil, errors.New("sessionID is required")
	}

	opts = opts.Normalize()
	query := "SELECT " + testRunColumns + " FROM drill_test_runs WHERE session_id = ?" +
		" ORDER BY created_at " + opts.Direction() + ", run_id " + opts.Direction() +
		" LIMIT ? OFFSET ?"
	rows, err := r.db.Query(ctx, query, sessionID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []model.TestRun
	for rows.Next() {
		var (
			run    model.TestRun
			result []byte
		)
		if err := rows.Scan(
			&run.RunID,
			&run.SessionID,
			&run.Language,
			&run.SourceCode,
			&run.SourceKey,
			&result,
			&run.CPUTimeMs,
			&run.MemoryKB,
			&run.StderrTruncated,
			&run.IsSubmission,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(result) > 0 {
			if err := json.Unmarshal(result, &run.Result); err != nil {
				return nil, err
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
