package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
)

// textStageHandler is the permissive placeholder for the free-text
// stages. It records a fixed score and passes unconditionally; real
// scoring for these stages is a known gap.
type textStageHandler struct {
	criterion string
	score     int
	coachMsg  string
}

func newApproachHandler() *textStageHandler {
	return &textStageHandler{
		criterion: "approach",
		score:     3,
		coachMsg:  "Approach recorded. Sketch it as pseudocode next.",
	}
}

func newPseudocodeHandler() *textStageHandler {
	return &textStageHandler{
		criterion: "pseudocode",
		score:     3,
		coachMsg:  "Pseudocode recorded. Now write the brute force solution.",
	}
}

func (h *textStageHandler) Evaluate(ctx context.Context, tx db.Transaction, session *model.Session, payload json.RawMessage) (*model.StageResult, error) {
	var text model.TextPayload
	if err := model.DecodePayload(payload, &text); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", h.criterion, err)
	}

	return &model.StageResult{
		RubricScores: model.ScoreMap{
			h.criterion: {Score: h.score, By: model.ByAuto},
		},
		Passed:    true,
		NextStage: model.StagePtr(session.Stage.Next()),
		CoachMsg:  h.coachMsg,
	}, nil
}
