package rubric

import (
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
)

// CoachEvaluator scores from executed-test outcomes. Correctness is all
// or nothing: full points only when at least one test ran and none
// failed.
type CoachEvaluator struct{}

// NewCoachEvaluator creates the outcome-based evaluator.
func NewCoachEvaluator() *CoachEvaluator {
	return &CoachEvaluator{}
}

// EvaluateExecution derives the coach-tagged correctness score from a
// normalized execution result.
func (e *CoachEvaluator) EvaluateExecution(result *model.ExecutionResult) model.ScoreMap {
	score := 0
	if result != nil && result.Summary.Total > 0 && result.Summary.Failed == 0 {
		score = correctnessPoints
	}
	return model.ScoreMap{
		CriterionCorrectness: {Score: score, By: model.ByCoach},
	}
}
