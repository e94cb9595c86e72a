// Package engine drives stage submissions: it dispatches to per-stage
// handlers, records attempts, and advances the session, all inside one
// transaction per submission.
package engine

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	"github.com/DonTee-Why/algo-drill-sub000/pkg/utils/logger"
)

// retryCoachMsg is shown when evaluation itself failed rather than the
// learner's submission falling short.
const retryCoachMsg = "Something went wrong while evaluating your submission. Your work was saved, please try again."

// StageHandler evaluates one submission for its stage. Evaluate runs
// inside the machine's transaction; tx is passed through so impure
// handlers (the code stages) can persist execution records atomically
// with the attempt.
type StageHandler interface {
	Evaluate(ctx context.Context, tx db.Transaction, session *model.Session, payload json.RawMessage) (*model.StageResult, error)
}

// CodeRunner executes candidate code and normalizes the outcome. It is
// the only impure dependency of any handler.
type CodeRunner interface {
	RunCode(ctx context.Context, tx db.Transaction, session *model.Session, language, sourceCode string, isSubmission bool) (*model.ExecutionResult, error)
}

// safeEvaluate contains every evaluation failure at the handler
// boundary. A broken evaluator degrades the submission to a failing
// result with a retry message; it never crashes the machine or corrupts
// a transition.
func safeEvaluate(ctx context.Context, tx db.Transaction, handler StageHandler, session *model.Session, payload json.RawMessage) (result *model.StageResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "stage evaluation panicked",
				zap.String("session_id", session.SessionID),
				zap.String("stage", session.Stage.String()),
				zap.Any("panic", r))
			result = failedResult(session.Stage)
		}
	}()

	result, err := handler.Evaluate(ctx, tx, session, payload)
	if err != nil {
		logger.Warn(ctx, "stage evaluation failed",
			zap.String("session_id", session.SessionID),
			zap.String("stage", session.Stage.String()),
			zap.Error(err))
		return failedResult(session.Stage)
	}
	if result == nil {
		logger.Error(ctx, "stage evaluation returned no result",
			zap.String("session_id", session.SessionID),
			zap.String("stage", session.Stage.String()))
		return failedResult(session.Stage)
	}
	return result
}

// failedResult is the safe default committed when evaluation broke.
func failedResult(stage model.Stage) *model.StageResult {
	return &model.StageResult{
		RubricScores: model.ScoreMap{},
		Passed:       false,
		NextStage:    model.StagePtr(stage),
		CoachMsg:     retryCoachMsg,
	}
}
