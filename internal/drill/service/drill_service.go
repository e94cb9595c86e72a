// Package service exposes the drill session operations behind the HTTP
// surface: session start, stage submission, trial runs, and reads.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/cache"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/engine"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/repository"
	problemrepo "github.com/DonTee-Why/algo-drill-sub000/internal/problem/repository"
	appErr "github.com/DonTee-Why/algo-drill-sub000/pkg/errors"
	baseRepo "github.com/DonTee-Why/algo-drill-sub000/pkg/repository"
	"github.com/DonTee-Why/algo-drill-sub000/pkg/utils/logger"
)

const (
	runThrottleKeyPrefix = "drill:run:throttle:"
	defaultRunInterval   = 3 * time.Second
	defaultMaxCodeBytes  = 64 * 1024
	runThrottleMarker    = "running"
	defaultStartLanguage = "python"
)

// Config holds drill service dependencies and settings.
type Config struct {
	Machine     *engine.Machine
	Runner      engine.CodeRunner
	SessionRepo repository.SessionRepository
	AttemptRepo repository.AttemptRepository
	TestRunRepo repository.TestRunRepository
	ProblemRepo problemrepo.ProblemRepository
	Cache       cache.Cache

	// Languages lists the languages sessions may be started in.
	Languages []string
	// RunInterval is the minimum gap between trial runs per session.
	RunInterval  time.Duration
	MaxCodeBytes int
}

// DrillService coordinates drill sessions.
type DrillService struct {
	machine     *engine.Machine
	runner      engine.CodeRunner
	sessionRepo repository.SessionRepository
	attemptRepo repository.AttemptRepository
	testRunRepo repository.TestRunRepository
	problemRepo problemrepo.ProblemRepository
	cache       cache.Cache

	languages    map[string]bool
	runInterval  time.Duration
	maxCodeBytes int
}

// StartInput describes a session start request.
type StartInput struct {
	UserID    int64
	ProblemID int64
	Language  string
}

// NewDrillService creates a drill service.
func NewDrillService(cfg Config) (*DrillService, error) {
	if cfg.Machine == nil {
		return nil, fmt.Errorf("stage machine is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("code runner is required")
	}
	if cfg.SessionRepo == nil {
		return nil, fmt.Errorf("session repository is required")
	}
	if cfg.AttemptRepo == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if cfg.TestRunRepo == nil {
		return nil, fmt.Errorf("test run repository is required")
	}
	if cfg.ProblemRepo == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.RunInterval <= 0 {
		cfg.RunInterval = defaultRunInterval
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}

	languages := make(map[string]bool, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		languages[lang] = true
	}
	if len(languages) == 0 {
		languages[defaultStartLanguage] = true
	}

	return &DrillService{
		machine:      cfg.Machine,
		runner:       cfg.Runner,
		sessionRepo:  cfg.SessionRepo,
		attemptRepo:  cfg.AttemptRepo,
		testRunRepo:  cfg.TestRunRepo,
		problemRepo:  cfg.ProblemRepo,
		cache:        cfg.Cache,
		languages:    languages,
		runInterval:  cfg.RunInterval,
		maxCodeBytes: cfg.MaxCodeBytes,
	}, nil
}

// StartSession creates a fresh session on the clarify stage.
func (s *DrillService) StartSession(ctx context.Context, input StartInput) (*model.Session, error) {
	if input.UserID <= 0 {
		return nil, appErr.ValidationError("user_id", "required")
	}
	if input.ProblemID <= 0 {
		return nil, appErr.ValidationError("problem_id", "required")
	}
	if input.Language == "" {
		return nil, appErr.ValidationError("language", "required")
	}
	if !s.languages[input.Language] {
		return nil, appErr.New(appErr.LanguageNotSupported).WithDetail("language", input.Language)
	}

	if _, err := s.problemRepo.GetProblem(ctx, input.ProblemID); err != nil {
		if errors.Is(err, problemrepo.ErrProblemNotFound) {
			return nil, appErr.New(appErr.ProblemNotFound)
		}
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}

	now := time.Now()
	session := &model.Session{
		SessionID: uuid.NewString(),
		UserID:    input.UserID,
		ProblemID: input.ProblemID,
		Stage:     model.StageClarify,
		Language:  input.Language,
		Scores:    make(map[model.Stage]model.ScoreMap),
		HintsUsed: make(map[model.Stage]int),
		Timers:    make(map[model.Stage]int64),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, appErr.Wrap(err, appErr.SessionCreateFailed)
	}
	return session, nil
}

// Submit processes a stage submission. The stage parameter, when set,
// must match the session's current stage; it guards clients that fell
// behind the session state.
func (s *DrillService) Submit(ctx context.Context, sessionID, stage string, payload json.RawMessage) (*model.StageResult, error) {
	if sessionID == "" {
		return nil, appErr.ValidationError("session_id", "required")
	}
	if len(payload) == 0 {
		return nil, appErr.New(appErr.MalformedPayload).WithMessage("payload is required")
	}
	if stage != "" {
		claimed, err := model.ParseStage(stage)
		if err != nil {
			return nil, appErr.New(appErr.UnknownStage).WithDetail("stage", stage)
		}
		session, err := s.getSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session.Stage != claimed {
			return nil, appErr.New(appErr.InvalidParams).
				WithMessagef("session is on stage %s, not %s", session.Stage, claimed)
		}
	}
	return s.machine.Process(ctx, sessionID, payload)
}

// RunTests executes code against the problem's fixtures without
// affecting session state.
func (s *DrillService) RunTests(ctx context.Context, sessionID, language, code string) (*model.ExecutionResult, error) {
	if sessionID == "" {
		return nil, appErr.ValidationError("session_id", "required")
	}
	if code == "" {
		return nil, appErr.ValidationError("code", "required")
	}
	if len(code) > s.maxCodeBytes {
		return nil, appErr.New(appErr.CodeTooLarge).
			WithDetail("max_bytes", s.maxCodeBytes)
	}

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = session.Language
	}

	if err := s.acquireRunSlot(ctx, sessionID); err != nil {
		return nil, err
	}

	result, err := s.runner.RunCode(ctx, nil, session, language, code, false)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.TestRunSaveFailed)
	}
	return result, nil
}

// GetSession returns the session by id.
func (s *DrillService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, appErr.ValidationError("session_id", "required")
	}
	return s.getSession(ctx, sessionID)
}

// ListAttempts returns the session's attempt history, oldest first by default.
func (s *DrillService) ListAttempts(ctx context.Context, sessionID string, opts baseRepo.ListOptions) ([]model.Attempt, error) {
	if sessionID == "" {
		return nil, appErr.ValidationError("session_id", "required")
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	attempts, err := s.attemptRepo.ListBySession(ctx, sessionID, opts)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return attempts, nil
}

// ListTestRuns returns the session's execution history, oldest first by default.
func (s *DrillService) ListTestRuns(ctx context.Context, sessionID string, opts baseRepo.ListOptions) ([]model.TestRun, error) {
	if sessionID == "" {
		return nil, appErr.ValidationError("session_id", "required")
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	runs, err := s.testRunRepo.ListBySession(ctx, sessionID, opts)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return runs, nil
}

func (s *DrillService) getSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, appErr.New(appErr.SessionNotFound)
		}
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return session, nil
}

// acquireRunSlot throttles trial runs per session. A cache outage fails
// open: execution history still records every run.
func (s *DrillService) acquireRunSlot(ctx context.Context, sessionID string) error {
	if s.cache == nil {
		return nil
	}
	acquired, err := s.cache.SetNX(ctx, runThrottleKeyPrefix+sessionID, runThrottleMarker, s.runInterval)
	if err != nil {
		logger.Warn(ctx, "run throttle check failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil
	}
	if !acquired {
		return appErr.New(appErr.RunTooFrequently)
	}
	return nil
}
