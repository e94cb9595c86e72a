package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/cache"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/engine"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/repository"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/service"
	problemrepo "github.com/DonTee-Why/algo-drill-sub000/internal/problem/repository"
	appErr "github.com/DonTee-Why/algo-drill-sub000/pkg/errors"
	baseRepo "github.com/DonTee-Why/algo-drill-sub000/pkg/repository"
)

type fakeTx struct{}

func (f *fakeTx) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return nil, nil
}
func (f *fakeTx) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row { return nil }
func (f *fakeTx) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	return nil, nil
}
func (f *fakeTx) Commit() error   { return nil }
func (f *fakeTx) Rollback() error { return nil }

type fakeDB struct{}

func (f *fakeDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return nil, nil
}
func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row { return nil }
func (f *fakeDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	return nil, nil
}
func (f *fakeDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return fn(&fakeTx{})
}
func (f *fakeDB) BeginTx(ctx context.Context, opts *db.TxOptions) (db.Transaction, error) {
	return &fakeTx{}, nil
}
func (f *fakeDB) Ping(ctx context.Context) error { return nil }
func (f *fakeDB) Close() error                   { return nil }

type fakeSessionRepo struct {
	sessions map[string]*model.Session
}

func newFakeSessionRepo(sessions ...*model.Session) *fakeSessionRepo {
	repo := &fakeSessionRepo{sessions: make(map[string]*model.Session)}
	for _, s := range sessions {
		repo.sessions[s.SessionID] = s
	}
	return repo
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *model.Session) error {
	f.sessions[session.SessionID] = session
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, sessionID string) (*model.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionRepo) GetForUpdate(ctx context.Context, tx db.Transaction, sessionID string) (*model.Session, error) {
	return f.GetByID(ctx, sessionID)
}

func (f *fakeSessionRepo) Update(ctx context.Context, tx db.Transaction, session *model.Session) error {
	copied := *session
	f.sessions[session.SessionID] = &copied
	return nil
}

type fakeAttemptRepo struct {
	attempts []model.Attempt
}

func (f *fakeAttemptRepo) Create(ctx context.Context, tx db.Transaction, attempt *model.Attempt) error {
	f.attempts = append(f.attempts, *attempt)
	return nil
}

func (f *fakeAttemptRepo) ListBySession(ctx context.Context, sessionID string, opts baseRepo.ListOptions) ([]model.Attempt, error) {
	return f.attempts, nil
}

type fakeTestRunRepo struct {
	runs []model.TestRun
}

func (f *fakeTestRunRepo) Create(ctx context.Context, tx db.Transaction, run *model.TestRun) error {
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeTestRunRepo) ListBySession(ctx context.Context, sessionID string, opts baseRepo.ListOptions) ([]model.TestRun, error) {
	return f.runs, nil
}

type fakeProblemRepo struct {
	problems map[int64]*problemrepo.Problem
}

func (f *fakeProblemRepo) GetProblem(ctx context.Context, problemID int64) (*problemrepo.Problem, error) {
	p, ok := f.problems[problemID]
	if !ok {
		return nil, problemrepo.ErrProblemNotFound
	}
	return p, nil
}

func (f *fakeProblemRepo) GetSignature(ctx context.Context, problemID int64, language string) (*problemrepo.Signature, error) {
	return nil, problemrepo.ErrSignatureNotFound
}

func (f *fakeProblemRepo) ListTestCases(ctx context.Context, problemID int64) ([]problemrepo.TestCase, error) {
	return nil, nil
}

type fakeRunner struct {
	result *model.ExecutionResult
	calls  int
}

func (f *fakeRunner) RunCode(ctx context.Context, tx db.Transaction, session *model.Session, language, sourceCode string, isSubmission bool) (*model.ExecutionResult, error) {
	f.calls++
	return f.result, nil
}

// fakeCache keeps SetNX keys until their TTL is force-expired.
type fakeCache struct {
	keys map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{keys: make(map[string]bool)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("missing")
}
func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}
func (f *fakeCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}
func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}
func (f *fakeCache) Exists(ctx context.Context, keys ...string) (int64, error) { return 0, nil }
func (f *fakeCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}
func (f *fakeCache) TTL(ctx context.Context, key string) (time.Duration, error) { return 0, nil }
func (f *fakeCache) Incr(ctx context.Context, key string) (int64, error)        { return 0, nil }
func (f *fakeCache) Ping(ctx context.Context) error                             { return nil }
func (f *fakeCache) Close() error                                               { return nil }

var _ cache.Cache = (*fakeCache)(nil)

func newTestService(t *testing.T, sessions *fakeSessionRepo, runner *fakeRunner, c cache.Cache) *service.DrillService {
	t.Helper()
	attempts := &fakeAttemptRepo{}
	testRuns := &fakeTestRunRepo{}
	problems := &fakeProblemRepo{problems: map[int64]*problemrepo.Problem{
		42: {ProblemID: 42, Slug: "two-sum", Title: "Two Sum"},
	}}

	machine, err := engine.NewMachine(&fakeDB{}, sessions, attempts, engine.NewFactory(runner), nil)
	if err != nil {
		t.Fatalf("create machine failed: %v", err)
	}

	svc, err := service.NewDrillService(service.Config{
		Machine:     machine,
		Runner:      runner,
		SessionRepo: sessions,
		AttemptRepo: attempts,
		TestRunRepo: testRuns,
		ProblemRepo: problems,
		Cache:       c,
		Languages:   []string{"python", "go"},
	})
	if err != nil {
		t.Fatalf("create service failed: %v", err)
	}
	return svc
}

func TestStartSession(t *testing.T) {
	t.Parallel()
	sessions := newFakeSessionRepo()
	svc := newTestService(t, sessions, &fakeRunner{}, newFakeCache())

	session, err := svc.StartSession(context.Background(), service.StartInput{
		UserID:    1,
		ProblemID: 42,
		Language:  "python",
	})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if session.Stage != model.StageClarify {
		t.Fatalf("expected new session on clarify, got %s", session.Stage)
	}
	if session.SessionID == "" {
		t.Fatal("expected session id assigned")
	}
	if _, ok := sessions.sessions[session.SessionID]; !ok {
		t.Fatal("expected session persisted")
	}
}

func TestStartSessionValidation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, newFakeSessionRepo(), &fakeRunner{}, newFakeCache())

	tests := []struct {
		name  string
		input service.StartInput
		code  appErr.ErrorCode
	}{
		{name: "missing user", input: service.StartInput{ProblemID: 42, Language: "python"}, code: appErr.ValidationFailed},
		{name: "missing problem", input: service.StartInput{UserID: 1, Language: "python"}, code: appErr.ValidationFailed},
		{name: "missing language", input: service.StartInput{UserID: 1, ProblemID: 42}, code: appErr.ValidationFailed},
		{name: "unsupported language", input: service.StartInput{UserID: 1, ProblemID: 42, Language: "cobol"}, code: appErr.LanguageNotSupported},
		{name: "unknown problem", input: service.StartInput{UserID: 1, ProblemID: 99, Language: "python"}, code: appErr.ProblemNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.StartSession(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if appErr.GetCode(err) != tt.code {
				t.Fatalf("expected code %d, got %v", tt.code, err)
			}
		})
	}
}

func TestSubmitStageMismatch(t *testing.T) {
	t.Parallel()
	session := &model.Session{
		SessionID: "sess-1",
		UserID:    1,
		ProblemID: 42,
		Stage:     model.StageClarify,
		Language:  "python",
	}
	svc := newTestService(t, newFakeSessionRepo(session), &fakeRunner{}, newFakeCache())

	_, err := svc.Submit(context.Background(), "sess-1", "brute_force", []byte(`{"code":"x"}`))
	if err == nil {
		t.Fatal("expected stage mismatch error")
	}
	if appErr.GetCode(err) != appErr.InvalidParams {
		t.Fatalf("expected InvalidParams, got %v", err)
	}

	_, err = svc.Submit(context.Background(), "sess-1", "review", []byte(`{}`))
	if err == nil || appErr.GetCode(err) != appErr.UnknownStage {
		t.Fatalf("expected UnknownStage, got %v", err)
	}
}

func TestRunTestsThrottle(t *testing.T) {
	t.Parallel()
	session := &model.Session{
		SessionID: "sess-1",
		UserID:    1,
		ProblemID: 42,
		Stage:     model.StageBruteForce,
		Language:  "python",
	}
	runner := &fakeRunner{result: &model.ExecutionResult{Compiled: true}}
	svc := newTestService(t, newFakeSessionRepo(session), runner, newFakeCache())

	if _, err := svc.RunTests(context.Background(), "sess-1", "", "def twoSum(nums, target): ..."); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("expected 1 harness call, got %d", runner.calls)
	}

	_, err := svc.RunTests(context.Background(), "sess-1", "", "def twoSum(nums, target): ...")
	if err == nil {
		t.Fatal("expected throttle error")
	}
	if appErr.GetCode(err) != appErr.RunTooFrequently {
		t.Fatalf("expected RunTooFrequently, got %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("expected throttled run to skip harness, got %d calls", runner.calls)
	}
}

func TestRunTestsCodeTooLarge(t *testing.T) {
	t.Parallel()
	session := &model.Session{
		SessionID: "sess-1",
		UserID:    1,
		ProblemID: 42,
		Stage:     model.StageBruteForce,
		Language:  "python",
	}
	svc := newTestService(t, newFakeSessionRepo(session), &fakeRunner{result: &model.ExecutionResult{}}, newFakeCache())

	_, err := svc.RunTests(context.Background(), "sess-1", "", strings.Repeat("x", 65*1024))
	if err == nil {
		t.Fatal("expected code size error")
	}
	if appErr.GetCode(err) != appErr.CodeTooLarge {
		t.Fatalf("expected CodeTooLarge, got %v", err)
	}
}

func TestRunTestsSessionNotFound(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, newFakeSessionRepo(), &fakeRunner{}, newFakeCache())

	_, err := svc.RunTests(context.Background(), "missing", "", "code")
	if err == nil || appErr.GetCode(err) != appErr.SessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
}
