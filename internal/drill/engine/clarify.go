package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/rubric"
)

const (
	clarifyPassMsg = "Good clarification. Move on to describing your approach."
	clarifyFailMsg = "Spell out the inputs and outputs, the constraints, and at least two worked examples, including the edge cases you expect."
)

// clarifyHandler scores the learner's problem clarification with the
// heuristic evaluator and gates advancement on the rubric total.
type clarifyHandler struct {
	auto      *rubric.AutoEvaluator
	threshold int
}

func newClarifyHandler(auto *rubric.AutoEvaluator) *clarifyHandler {
	return &clarifyHandler{auto: auto, threshold: rubric.ClarifyPassThreshold}
}

func (h *clarifyHandler) Evaluate(ctx context.Context, tx db.Transaction, session *model.Session, payload json.RawMessage) (*model.StageResult, error) {
	var clarify model.ClarifyPayload
	if err := model.DecodePayload(payload, &clarify); err != nil {
		return nil, fmt.Errorf("malformed clarify payload: %w", err)
	}

	scores := h.auto.EvaluateClarify(clarify)
	total := scores.Total()

	if total < h.threshold {
		return &model.StageResult{
			RubricScores: scores,
			Passed:       false,
			NextStage:    model.StagePtr(session.Stage),
			CoachMsg:     clarifyFailMsg,
		}, nil
	}
	return &model.StageResult{
		RubricScores: scores,
		Passed:       true,
		NextStage:    model.StagePtr(session.Stage.Next()),
		CoachMsg:     clarifyPassMsg,
	}, nil
}
