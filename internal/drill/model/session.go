package model

import "time"

// Evaluator provenance tags for criterion scores.
const (
	ByAuto  = "auto"
	ByCoach = "coach"
)

// CriterionScore is one scored rubric criterion tagged with its provenance.
type CriterionScore struct {
	Score int    `json:"score"`
	By    string `json:"by"`
}

// ScoreMap maps criterion name to its score.
type ScoreMap map[string]CriterionScore

// Total sums all criterion scores.
func (m ScoreMap) Total() int {
	total := 0
	for _, c := range m {
		total += c.Score
	}
	return total
}

// Clone returns a shallow copy of the score map.
func (m ScoreMap) Clone() ScoreMap {
	if m == nil {
		return nil
	}
	out := make(ScoreMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Session is one learner's run at one problem. State is mutated only by the
// stage machine's commit step; deletion is owned by the session-management
// collaborator, never by this engine.
type Session struct {
	SessionID     string             `json:"session_id"`
	UserID        int64              `json:"user_id"`
	ProblemID     int64              `json:"problem_id"`
	Stage         Stage              `json:"stage"`
	Language      string             `json:"language"`
	Scores        map[Stage]ScoreMap `json:"scores"`
	HintsUsed     map[Stage]int      `json:"hints_used"`
	Timers        map[Stage]int64    `json:"timers"` // elapsed ms per stage
	RevealedLangs []string           `json:"revealed_langs"`
	RevealedAt    *time.Time         `json:"revealed_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Completed reports whether the session reached the terminal stage.
func (s *Session) Completed() bool {
	return s.Stage.Terminal()
}

// StageResult is the outcome of evaluating one stage submission.
type StageResult struct {
	RubricScores ScoreMap         `json:"rubric_scores"`
	Passed       bool             `json:"passed"`
	NextStage    *Stage           `json:"next_stage,omitempty"`
	TestResults  *ExecutionResult `json:"test_results,omitempty"`
	CoachMsg     string           `json:"coach_msg,omitempty"`
}

// StagePtr is a convenience for building StageResult literals.
func StagePtr(s Stage) *Stage {
	return &s
}
