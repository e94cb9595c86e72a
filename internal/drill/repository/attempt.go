package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	baseRepo "github.com/DonTee-Why/algo-drill-sub000/pkg/repository"
)

// AttemptRepository defines attempt persistence operations. Attempts
// are append-only: there is no update or delete.
type AttemptRepository interface {
	Create(ctx context.Context, tx db.Transaction, attempt *model.Attempt) error
	ListBySession(ctx context.Context, sessionID string, opts baseRepo.ListOptions) ([]model.Attempt, error)
}

// MySQLAttemptRepository implements AttemptRepository with MySQL.
type MySQLAttemptRepository struct {
	db db.Database
}

// NewAttemptRepository creates an attempt repository.
func NewAttemptRepository(database db.Database) AttemptRepository {
	return &MySQLAttemptRepository{db: database}
}

const attemptColumns = "attempt_id, session_id, stage, payload, rubric_scores, coach_msg, created_at"

// Create inserts an attempt record.
func (r *MySQLAttemptRepository) Create(ctx context.Context, tx db.Transaction, attempt *model.Attempt) error {
	if attempt == nil {
		return errors.New("attempt is nil")
	}
	if attempt.AttemptID == "" {
		return errors.New("attemptID is required")
	}
	if attempt.SessionID == "" {
		return errors.New("sessionID is required")
	}
	if !attempt.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", attempt.Stage)
	}

	scores, err := json.Marshal(attempt.RubricScores)
	if err != nil {
		return fmt.Errorf("encode rubric scores failed: %w", err)
	}
	payload := attempt.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	query := `
		INSERT INTO drill_attempts
		(attempt_id, session_id, stage, payload, rubric_scores, coach_msg)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		attempt.AttemptID,
		attempt.SessionID,
		attempt.Stage.String(),
		[]byte(payload),
		scores,
		attempt.CoachMsg,
	)
	return err
}

// ListBySession returns a session's attempts, oldest first by default.
func (r *MySQLAttemptRepository) ListBySession(ctx context.Context, sessionID string, opts baseRepo.ListOptions) ([]model.Attempt, error) {
	if sessionID == "" {
		return nil, errors.New("sessionID is required")
	}

	opts = opts.Normalize()
	query := "SELECT " + attemptColumns + " FROM drill_attempts WHERE session_id = ?" +
		" ORDER BY created_at " + opts.Direction() + ", attempt_id " + opts.Direction() +
		" LIMIT ? OFFSET ?"
	rows, err := r.db.Query(ctx, query, sessionID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var attempts []model.Attempt
	for rows.Next() {
		var (
			attempt model.Attempt
			stage   string
			payload []byte
			scores  []byte
		)
		if err := rows.Scan(
			&attempt.AttemptID,
			&attempt.SessionID,
			&stage,
			&payload,
			&scores,
			&attempt.CoachMsg,
			&attempt.CreatedAt,
		); err != nil {
			return nil, err
		}
		parsed, err := model.ParseStage(stage)
		if err != nil {
			return nil, err
		}
		attempt.Stage = parsed
		attempt.Payload = json.RawMessage(payload)
		if len(scores) > 0 {
			if err := json.Unmarshal(scores, &attempt.RubricScores); err != nil {
				return nil, fmt.Errorf("decode rubric scores failed: %w", err)
			}
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}
