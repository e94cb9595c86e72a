package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/cache"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
)

const (
	defaultProblemCacheTTL      = 30 * time.Minute
	defaultProblemCacheEmptyTTL = 5 * time.Minute
	problemCacheKeyPrefix       = "problem:"
	signatureCacheKeyPrefix     = "problem:signature:"
	testCasesCacheKeyPrefix     = "problem:tests:"
)

var (
	ErrProblemNotFound   = errors.New("problem not found")
	ErrSignatureNotFound = errors.New("signature not found")
)

// Problem is the authored problem statement metadata.
type Problem struct {
	ProblemID  int64     `json:"problem_id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Difficulty string    `json:"difficulty"`
	Statement  string    `json:"statement"`
	CreatedAt  time.Time `json:"created_at"`
}

// Signature declares the expected function shape for one language.
type Signature struct {
	ProblemID    int64    `json:"problem_id"`
	Language     string   `json:"language"`
	FunctionName string   `json:"function_name"`
	Params       []string `json:"params"`
	Returns      string   `json:"returns"`
}

// TestCase is one authored fixture, ordered by Ord.
type TestCase struct {
	ProblemID int64  `json:"problem_id"`
	Ord       int    `json:"ord"`
	Input     string `json:"input"`
	Expected  string `json:"expected"`
	IsEdge    bool   `json:"is_edge"`
	Weight    int    `json:"weight"`
}

// ProblemRepository provides read access to authored problems and fixtures.
type ProblemRepository interface {
	GetProblem(ctx context.Context, problemID int64) (*Problem, error)
	// GetSignature returns the function signature for a language,
	// or ErrSignatureNotFound when none is authored.
	GetSignature(ctx context.Context, problemID int64, language string) (*Signature, error)
	// ListTestCases returns the ordered fixtures for a problem.
	// An empty slice means no fixtures are authored.
	ListTestCases(ctx context.Context, problemID int64) ([]TestCase, error)
}

// MySQLProblemRepository implements ProblemRepository with MySQL plus a
// read-through cache.
type MySQLProblemRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewProblemRepository creates a problem repository with default cache TTLs.
func NewProblemRepository(database db.Database, cacheClient cache.Cache) *MySQLProblemRepository {
	return NewProblemRepositoryWithTTL(database, cacheClient, defaultProblemCacheTTL, defaultProblemCacheEmptyTTL)
}

// NewProblemRepositoryWithTTL creates a problem repository with custom TTLs.
func NewProblemRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) *MySQLProblemRepository {
	if ttl <= 0 {
		ttl = defaultProblemCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultProblemCacheEmptyTTL
	}
	return &MySQLProblemRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

const problemColumns = "problem_id, slug, title, difficulty, statement, created_at"

// GetProblem retrieves a problem by id.
func (r *MySQLProblemRepository) GetProblem(ctx context.Context, problemID int64) (*Problem, error) {
	if problemID <= 0 {
		return nil, errors.New("problemID is required")
	}
	if r.cache != nil {
		problem, err := cache.GetWithCached[*Problem](
			ctx,
			r.cache,
			problemCacheKey(problemID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(p *Problem) bool { return p == nil },
			marshalJSON[*Problem],
			unmarshalJSON[*Problem],
			func(ctx context.Context) (*Problem, error) {
				p, err := r.getProblemFromDB(ctx, problemID)
				if err != nil {
					if errors.Is(err, ErrProblemNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return p, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if problem == nil {
			return nil, ErrProblemNotFound
		}
		return problem, nil
	}
	return r.getProblemFromDB(ctx, problemID)
}

func (r *MySQLProblemRepository) getProblemFromDB(ctx context.Context, problemID int64) (*Problem, error) {
	query := "SELECT " + problemColumns + " FROM problems WHERE problem_id = ? LIMIT 1"
	row := r.db.QueryRow(ctx, query, problemID)
	problem := &Problem{}
	if err := row.Scan(
		&problem.ProblemID,
		&problem.Slug,
		&problem.Title,
		&problem.Difficulty,
		&problem.Statement,
		&problem.CreatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	return problem, nil
}

// GetSignature retrieves the function signature for a problem and language.
func (r *MySQLProblemRepository) GetSignature(ctx context.Context, problemID int64, language string) (*Signature, error) {
	if problemID <= 0 {
		return nil, errors.New("problemID is required")
	}
	if language == "" {
		return nil, errors.New("language is required")
	}
	if r.cache != nil {
		sig, err := cache.GetWithCached[*Signature](
			ctx,
			r.cache,
			signatureCacheKey(problemID, language),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(s *Signature) bool { return s == nil },
			marshalJSON[*Signature],
			unmarshalJSON[*Signature],
			func(ctx context.Context) (*Signature, error) {
				s, err := r.getSignatureFromDB(ctx, problemID, language)
				if err != nil {
					if errors.Is(err, ErrSignatureNotFound) {
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
		if sig == nil {
			return nil, ErrSignatureNotFound
		}
		return sig, nil
	}
	return r.getSignatureFromDB(ctx, problemID, language)
}

func (r *MySQLProblemRepository) getSignatureFromDB(ctx context.Context, problemID int64, language string) (*Signature, error) {
	query := "SELECT problem_id, language, function_name, params, returns FROM problem_signatures WHERE problem_id = ? AND language = ? LIMIT 1"
	row := r.db.QueryRow(ctx, query, problemID, language)
	sig := &Signature{}
	var params []byte
	if err := row.Scan(&sig.ProblemID, &sig.Language, &sig.FunctionName, &params, &sig.Returns); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSignatureNotFound
		}
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &sig.Params); err != nil {
			return nil, fmt.Errorf("decode signature params failed: %w", err)
		}
	}
	return sig, nil
}

// ListTestCases retrieves the ordered fixtures for a problem.
func (r *MySQLProblemRepository) ListTestCases(ctx context.Context, problemID int64) ([]TestCase, error) {
	if problemID <= 0 {
		return nil, errors.New("problemID is required")
	}
	if r.cache != nil {
		cases, err := cache.GetWithCached[[]TestCase](
			ctx,
			r.cache,
			testCasesCacheKey(problemID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(cs []TestCase) bool { return len(cs) == 0 },
			marshalJSON[[]TestCase],
			unmarshalJSON[[]TestCase],
			func(ctx context.Context) ([]TestCase, error) {
				return r.listTestCasesFromDB(ctx, problemID)
			},
		)
		if err != nil {
			return nil, err
		}
		return cases, nil
	}
	return r.listTestCasesFromDB(ctx, problemID)
}

func (r *MySQLProblemRepository) listTestCasesFromDB(ctx context.Context, problemID int64) ([]TestCase, error) {
	query := "SELECT problem_id, ord, input, expected, is_edge, weight FROM problem_test_cases WHERE problem_id = ? ORDER BY ord ASC"
	rows, err := r.db.Query(ctx, query, problemID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cases []TestCase
	for rows.Next() {
		var tc TestCase
		if err := rows.Scan(&tc.ProblemID, &tc.Ord, &tc.Input, &tc.Expected, &tc.IsEdge, &tc.Weight); err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

func problemCacheKey(problemID int64) string {
	return fmt.Sprintf("%s%d", problemCacheKeyPrefix, problemID)
}

func signatureCacheKey(problemID int64, language string) string {
	return fmt.Sprintf("%s%d:%s", signatureCacheKeyPrefix, problemID, language)
}

func testCasesCacheKey(problemID int64) string {
	return fmt.Sprintf("%s%d", testCasesCacheKeyPrefix, problemID)
}

func marshalJSON[T any](value T) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalJSON[T any](data string) (T, error) {
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
