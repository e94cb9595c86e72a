package rubric

import (
	"regexp"
	"strings"

	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
)

var (
	exampleLabelRe  = regexp.MustCompile(`(?i)example\s*\d+`)
	numberedLineRe  = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)
	bulletLineRe    = regexp.MustCompile(`(?m)^\s*[-*•]\s`)
	edgeKeywords    = []string{"edge", "corner", "empty", "null", "zero", "negative", "boundary", "extreme", "special"}
	maxFallbackHits = 3
)

// AutoEvaluator scores submissions with static heuristics. It inspects
// only the learner's text or the normalized execution outcome, never
// the sandbox itself.
type AutoEvaluator struct{}

// NewAutoEvaluator creates the heuristic evaluator.
func NewAutoEvaluator() *AutoEvaluator {
	return &AutoEvaluator{}
}

// EvaluateClarify scores the three clarify fields independently and
// tags every criterion as auto-scored.
func (e *AutoEvaluator) EvaluateClarify(payload model.ClarifyPayload) model.ScoreMap {
	return model.ScoreMap{
		CriterionInputsOutputs: {Score: scoreText(payload.InputsOutputs), By: model.ByAuto},
		CriterionConstraints:   {Score: scoreText(payload.Constraints), By: model.ByAuto},
		CriterionExamples:      {Score: scoreExamples(payload.Examples), By: model.ByAuto},
	}
}

// EvaluateExecution scores compile and signature outcomes as two
// independent criteria.
func (e *AutoEvaluator) EvaluateExecution(result *model.ExecutionResult) model.ScoreMap {
	scores := model.ScoreMap{
		CriterionCompiles:  {Score: 0, By: model.ByAuto},
		CriterionSignature: {Score: 0, By: model.ByAuto},
	}
	if result == nil {
		return scores
	}
	if result.Compiled {
		scores[CriterionCompiles] = model.CriterionScore{Score: compilesPoints, By: model.ByAuto}
	}
	if result.SignatureOK {
		scores[CriterionSignature] = model.CriterionScore{Score: signaturePoints, By: model.ByAuto}
	}
	return scores
}

// scoreText rates free text 0-3 by length alone.
func scoreText(text string) int {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return 0
	case len(trimmed) < 10:
		return 1
	case len(trimmed) < 30:
		return 2
	default:
		return 3
	}
}

// scoreExamples rates the examples field 0-6: presence by length,
// detected example count, and edge-case vocabulary, summed and capped.
func scoreExamples(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	score := 0
	if len(trimmed) >= 30 {
		score += 2
	} else {
		score++
	}

	switch count := countExamples(trimmed); {
	case count >= 2:
		score += 2
	case count >= 1:
		score++
	}

	if containsEdgeKeyword(trimmed) {
		score += 2
	}

	if score > 6 {
		return 6
	}
	return score
}

// countExamples takes the maximum hit count across three independent
// pattern heuristics. Only when all three find nothing does it fall
// back to counting non-blank lines, capped so prose alone cannot
// masquerade as many examples.
func countExamples(text string) int {
	count := len(exampleLabelRe.FindAllString(text, -1))
	if n := len(numberedLineRe.FindAllString(text, -1)); n > count {
		count = n
	}
	if n := len(bulletLineRe.FindAllString(text, -1)); n > count {
		count = n
	}
	if count > 0 {
		return count
	}

	lines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	if lines > maxFallbackHits {
		return maxFallbackHits
	}
	return lines
}

func containsEdgeKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range edgeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
