package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/rubric"
)

// codeStageHandler runs submitted code through the harness and scores
// the outcome with both evaluators. It advances only when the signature
// matched and every test passed.
type codeStageHandler struct {
	runner   CodeRunner
	auto     *rubric.AutoEvaluator
	coach    *rubric.CoachEvaluator
	passMsg  string
	optimize bool
}

func newBruteForceHandler(runner CodeRunner, auto *rubric.AutoEvaluator, coach *rubric.CoachEvaluator) *codeStageHandler {
	return &codeStageHandler{
		runner:  runner,
		auto:    auto,
		coach:   coach,
		passMsg: "All tests pass. Now optimize it.",
	}
}

func newOptimizeHandler(runner CodeRunner, auto *rubric.AutoEvaluator, coach *rubric.CoachEvaluator) *codeStageHandler {
	return &codeStageHandler{
		runner:   runner,
		auto:     auto,
		coach:    coach,
		passMsg:  "All tests pass on the optimized solution. Session complete.",
		optimize: true,
	}
}

func (h *codeStageHandler) Evaluate(ctx context.Context, tx db.Transaction, session *model.Session, payload json.RawMessage) (*model.StageResult, error) {
	language, code, err := h.decode(payload)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = session.Language
	}
	if strings.TrimSpace(code) == "" {
		return &model.StageResult{
			RubricScores: h.zeroScores(),
			Passed:       false,
			NextStage:    model.StagePtr(session.Stage),
			CoachMsg:     "Submit your solution code before moving on.",
		}, nil
	}

	result, err := h.runner.RunCode(ctx, tx, session, language, code, true)
	if err != nil {
		return nil, err
	}

	scores := h.auto.EvaluateExecution(result)
	for name, score := range h.coach.EvaluateExecution(result) {
		scores[name] = score
	}

	passed := result.SignatureOK && result.AllPassed()
	stageResult := &model.StageResult{
		RubricScores: scores,
		Passed:       passed,
		TestResults:  result,
	}
	if passed {
		stageResult.NextStage = model.StagePtr(session.Stage.Next())
		stageResult.CoachMsg = h.passMsg
	} else {
		stageResult.NextStage = model.StagePtr(session.Stage)
		stageResult.CoachMsg = coachMsgFor(result)
	}
	return stageResult, nil
}

func (h *codeStageHandler) decode(payload json.RawMessage) (language, code string, err error) {
	if h.optimize {
		var p model.OptimizePayload
		if err := model.DecodePayload(payload, &p); err != nil {
			return "", "", fmt.Errorf("malformed optimize payload: %w", err)
		}
		return p.Language, p.Code, nil
	}
	var p model.CodePayload
	if err := model.DecodePayload(payload, &p); err != nil {
		return "", "", fmt.Errorf("malformed code payload: %w", err)
	}
	return p.Language, p.Code, nil
}

func (h *codeStageHandler) zeroScores() model.ScoreMap {
	return model.ScoreMap{
		rubric.CriterionCompiles:    {Score: 0, By: model.ByAuto},
		rubric.CriterionSignature:   {Score: 0, By: model.ByAuto},
		rubric.CriterionCorrectness: {Score: 0, By: model.ByCoach},
	}
}

// coachMsgFor picks corrective feedback from the failure category.
func coachMsgFor(result *model.ExecutionResult) string {
	switch {
	case result == nil:
		return retryCoachMsg
	case result.Error != "":
		return "Your code could not be run: " + result.Error
	case result.CompileError != "":
		return "Your code did not compile. Fix the errors and resubmit."
	case result.TimedOut():
		return "Your solution timed out. Look for an approach with better time complexity."
	case result.RuntimeError != "":
		return "Your code crashed while running the tests. Check the error output and resubmit."
	case !result.SignatureOK:
		return "Your function does not match the expected name and parameters."
	default:
		return "Some tests are still failing. Walk through the failing cases and resubmit."
	}
}
