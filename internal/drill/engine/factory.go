package engine

import (
	"context"
	"encoding/json"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/rubric"
	appErr "github.com/DonTee-Why/algo-drill-sub000/pkg/errors"
)

// doneHandler reports a fixed score for the terminal stage. The machine
// rejects submissions on completed sessions, so this is unreachable in
// normal operation.
type doneHandler struct{}

func (h *doneHandler) Evaluate(ctx context.Context, tx db.Transaction, session *model.Session, payload json.RawMessage) (*model.StageResult, error) {
	return &model.StageResult{
		RubricScores: model.ScoreMap{
			"done": {Score: 1, By: model.ByAuto},
		},
		Passed:    true,
		NextStage: model.StagePtr(model.StageDone),
	}, nil
}

// Factory resolves the handler for a stage. The handler set is fixed at
// construction; the stage enum is closed, so resolution is total and an
// unmapped stage is a programming error.
type Factory struct {
	handlers map[model.Stage]StageHandler
}

// NewFactory builds handlers for all six stages.
func NewFactory(runner CodeRunner) *Factory {
	auto := rubric.NewAutoEvaluator()
	coach := rubric.NewCoachEvaluator()
	return &Factory{
		handlers: map[model.Stage]StageHandler{
			model.StageClarify:    newClarifyHandler(auto),
			model.StageApproach:   newApproachHandler(),
			model.StagePseudocode: newPseudocodeHandler(),
			model.StageBruteForce: newBruteForceHandler(runner, auto, coach),
			model.StageOptimize:   newOptimizeHandler(runner, auto, coach),
			model.StageDone:       &doneHandler{},
		},
	}
}

// For returns the handler for stage.
func (f *Factory) For(stage model.Stage) (StageHandler, error) {
	handler, ok := f.handlers[stage]
	if !ok {
		return nil, appErr.New(appErr.UnknownStage).WithDetail("stage", stage.String())
	}
	return handler, nil
}
