// Package repository persists drill sessions, attempts, and test runs
// in MySQL. Sessions are read-cached; attempts and test runs are
// append-only.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/cache"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
)

const (
	defaultSessionCacheTTL      = 10 * time.Minute
	defaultSessionCacheEmptyTTL = 1 * time.Minute
	sessionCacheKeyPrefix       = "drill:session:"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepository defines session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, sessionID string) (*model.Session, error)
	// GetForUpdate loads the session inside tx with a row lock, so
	// concurrent submissions for the same session serialize.
	GetForUpdate(ctx context.Context, tx db.Transaction, sessionID string) (*model.Session, error)
	Update(ctx context.Context, tx db.Transaction, session *model.Session) error
}

// MySQLSessionRepository implements SessionRepository with MySQL.
type MySQLSessionRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewSessionRepository creates a session repository with defaults.
func NewSessionRepository(database db.Database, cacheClient cache.Cache) SessionRepository {
	return NewSessionRepositoryWithTTL(database, cacheClient, defaultSessionCacheTTL, defaultSessionCacheEmptyTTL)
}

// NewSessionRepositoryWithTTL creates a session repository with custom TTLs.
func NewSessionRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) SessionRepository {
	if ttl <= 0 {
		ttl = defaultSessionCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultSessionCacheEmptyTTL
	}
	return &MySQLSessionRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

const sessionColumns = "session_id, user_id, problem_id, stage, language, scores, hints_used, timers, revealed_langs, revealed_at, created_at, updated_at"

// Create inserts a session record.
func (r *MySQLSessionRepository) Create(ctx context.Context, session *model.Session) error {
	if session == nil {
		return errors.New("session is nil")
	}
	if session.SessionID == "" {
		return errors.New("sessionID is required")
	}
	if session.UserID <= 0 {
		return errors.New("userID is required")
	}
	if session.ProblemID <= 0 {
		return errors.New("problemID is required")
	}
	if !session.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", session.Stage)
	}

	scores, hints, timers, langs, err := marshalSessionJSON(session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO drill_sessions
		(session_id, user_id, problem_id, stage, language, scores, hints_used, timers, revealed_langs, revealed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(
		ctx,
		query,
		session.SessionID,
		session.UserID,
		session.ProblemID,
		session.Stage.String(),
		session.Language,
		scores,
		hints,
		timers,
		langs,
		session.RevealedAt,
	)
	return err
}

// GetByID retrieves a session, serving from cache when possible.
func (r *MySQLSessionRepository) GetByID(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, errors.New("sessionID is required")
	}
	if r.cache != nil {
		session, err := cache.GetWithCached[*model.Session](
			ctx,
			r.cache,
			sessionCacheKey(sessionID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(s *model.Session) bool { return s == nil },
			marshalCached[*model.Session],
			unmarshalCached[*model.Session],
			func(ctx context.Context) (*model.Session, error) {
				s, err := r.getFromDB(ctx, nil, sessionID, false)
				if err != nil {
					if errors.Is(err, ErrSessionNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return s, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, ErrSessionNotFound
		}
		return session, nil
	}
	return r.getFromDB(ctx, nil, sessionID, false)
}

// GetForUpdate loads the session with SELECT ... FOR UPDATE inside tx.
func (r *MySQLSessionRepository) GetForUpdate(ctx context.Context, tx db.Transaction, sessionID string) (*model.Session, error) {
	if tx == nil {
		return nil, errors.New("transaction is required")
	}
	if sessionID == "" {
		return nil, errors.New("sessionID is required")
	}
	return r.getFromDB(ctx, tx, sessionID, true)
}

func (r *MySQLSessionRepository) getFromDB(ctx context.Context, tx db.Transaction, sessionID string, forUpdate bool) (*model.Session, error) {
	query := "SELECT " + sessionColumns + " FROM drill_sessions WHERE session_id = ? LIMIT 1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	row := db.GetQuerier(r.db, tx).QueryRow(ctx, query, sessionID)
	session := &model.Session{}
	var (
		stage  string
		scores []byte
		hints  []byte
		timers []byte
		langs  []byte
	)
	if err := row.Scan(
		&session.SessionID,
		&session.UserID,
		&session.ProblemID,
		&stage,
		&session.Language,
		&scores,
		&hints,
		&timers,
		&langs,
		&session.RevealedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	parsed, err := model.ParseStage(stage)
	if err != nil {
		return nil, err
	}
	session.Stage = parsed

	if err := unmarshalSessionJSON(session, scores, hints, timers, langs); err != nil {
		return nil, err
	}
	return session, nil
}

// Update persists session mutations inside tx and invalidates the read
// cache once committed state is visible.
func (r *MySQLSessionRepository) Update(ctx context.Context, tx db.Transaction, session *model.Session) error {
	if session == nil {
		return errors.New("session is nil")
	}
	if session.SessionID == "" {
		return errors.New("sessionID is required")
	}
	if !session.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", session.Stage)
	}

	scores, hints, timers, langs, err := marshalSessionJSON(session)
	if err != nil {
		return err
	}

	query := `
		UPDATE drill_sessions
		SET stage = ?, language = ?, scores = ?, hints_used = ?, timers = ?, revealed_langs = ?, revealed_at = ?
		WHERE session_id = ?
	`
	result, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		session.Stage.String(),
		session.Language,
		scores,
		hints,
		timers,
		langs,
		session.RevealedAt,
		session.SessionID,
	)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrSessionNotFound
	}

	if r.cache != nil {
		_ = r.cache.Del(ctx, sessionCacheKey(session.SessionID))
	}
	return nil
}

func marshalSessionJSON(session *model.Session) (scores, hints, timers, langs []byte, err error) {
	if scores, err = json.Marshal(orEmptyScores(session.Scores)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode scores failed: %w", err)
	}
	if hints, err = json.Marshal(orEmptyHints(session.HintsUsed)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode hints failed: %w", err)
	}
	if timers, err = json.Marshal(orEmptyTimers(session.Timers)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode timers failed: %w", err)
	}
	if langs, err = json.Marshal(orEmptyLangs(session.RevealedLangs)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode revealed langs failed: %w", err)
	}
	return scores, hints, timers, langs, nil
}

func unmarshalSessionJSON(session *model.Session, scores, hints, timers, langs []byte) error {
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &session.Scores); err != nil {
			return fmt.Errorf("decode scores failed: %w", err)
		}
	}
	if len(hints) > 0 {
		if err := json.Unmarshal(hints, &session.HintsUsed); err != nil {
			return fmt.Errorf("decode hints failed: %w", err)
		}
	}
	if len(timers) > 0 {
		if err := json.Unmarshal(timers, &session.Timers); err != nil {
			return fmt.Errorf("decode timers failed: %w", err)
		}
	}
	if len(langs) > 0 {
		if err := json.Unmarshal(langs, &session.RevealedLangs); err != nil {
			return fmt.Errorf("decode revealed langs failed: %w", err)
		}
	}
	return nil
}

func orEmptyScores(m map[model.Stage]model.ScoreMap) map[model.Stage]model.ScoreMap {
	if m == nil {
		return map[model.Stage]model.ScoreMap{}
	}
	return m
}

func orEmptyHints(m map[model.Stage]int) map[model.Stage]int {
	if m == nil {
		return map[model.Stage]int{}
	}
	return m
}

func orEmptyTimers(m map[model.Stage]int64) map[model.Stage]int64 {
	if m == nil {
		return map[model.Stage]int64{}
	}
	return m
}

func orEmptyLangs(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sessionCacheKey(sessionID string) string {
	return sessionCacheKeyPrefix + sessionID
}

func marshalCached[T any](value T) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalCached[T any](data string) (T, error) {
	var zero T
	if data == "" || data == cache.NullCacheValue {
		return zero, nil
	}
	var value T
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return zero, err
	}
	return value, nil
}
