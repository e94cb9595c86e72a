package rubric_test

import (
	"strings"
	"testing"

	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/rubric"
)

func TestEvaluateClarifyTextScoring(t *testing.T) {
	t.Parallel()
	auto := rubric.NewAutoEvaluator()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace only", text: "   \n\t", want: 0},
		{name: "under ten chars", text: "integers", want: 1},
		{name: "under thirty chars", text: "array of sorted integers", want: 2},
		{name: "thirty chars or more", text: "an array of sorted integers and a target value", want: 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scores := auto.EvaluateClarify(model.ClarifyPayload{InputsOutputs: tt.text})
			got := scores[rubric.CriterionInputsOutputs]
			if got.Score != tt.want {
				t.Fatalf("expected score %d, got %d", tt.want, got.Score)
			}
			if got.By != model.ByAuto {
				t.Fatalf("expected auto tag, got %q", got.By)
			}
		})
	}
}

func TestEvaluateClarifyExamplesScoring(t *testing.T) {
	t.Parallel()
	auto := rubric.NewAutoEvaluator()

	tests := []struct {
		name     string
		examples string
		want     int
	}{
		{name: "empty", examples: "", want: 0},
		// 1 for presence, 1 for the single-line fallback count.
		{name: "short with no list pattern", examples: "[1,2]", want: 2},
		// 2 presence + 2 example count + 2 edge keyword, capped at 6.
		{
			name:     "labeled examples with edge keyword",
			examples: "Example 1: input [1,2,3] gives 6. Example 2: input [] gives null.",
			want:     6,
		},
		{
			name:     "numbered list",
			examples: "1. nums=[1,2], target=3 -> true\n2. nums=[5], target=5 -> true",
			want:     4,
		},
		{
			name:     "bullet list",
			examples: "- nums=[2,7], target=9 -> [0,1]\n- nums=[3,3], target=6 -> [0,1]",
			want:     4,
		},
		{
			name:     "prose fallback capped",
			examples: "first case here\nsecond case here\nthird case here\nfourth case here",
			want:     4,
		},
		// 1 presence + 1 fallback line + 2 for the "empty" keyword.
		{name: "edge keyword alone", examples: "think about the empty case", want: 4},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scores := auto.EvaluateClarify(model.ClarifyPayload{Examples: tt.examples})
			if got := scores[rubric.CriterionExamples].Score; got != tt.want {
				t.Fatalf("expected score %d, got %d", tt.want, got)
			}
		})
	}
}

func TestEvaluateClarifyThresholdScenarios(t *testing.T) {
	t.Parallel()
	auto := rubric.NewAutoEvaluator()

	empty := auto.EvaluateClarify(model.ClarifyPayload{})
	if got := empty.Total(); got != 0 {
		t.Fatalf("expected empty payload total 0, got %d", got)
	}

	long := strings.Repeat("detail ", 5) // 35 chars
	full := auto.EvaluateClarify(model.ClarifyPayload{
		InputsOutputs: long,
		Constraints:   long,
		Examples:      "Example 1: [1,2] -> 3. Example 2: [] -> 0. Watch the edge cases.",
	})
	if got := full.Total(); got < 10 {
		t.Fatalf("expected strong payload total >= 10, got %d", got)
	}
	if got := full.Total(); got > 12 {
		t.Fatalf("expected total capped at 12, got %d", got)
	}
}

func TestEvaluateExecutionScoring(t *testing.T) {
	t.Parallel()
	auto := rubric.NewAutoEvaluator()

	tests := []struct {
		name          string
		result        *model.ExecutionResult
		wantCompiles  int
		wantSignature int
	}{
		{name: "nil result", result: nil, wantCompiles: 0, wantSignature: 0},
		{
			name:          "compiled with matching signature",
			result:        &model.ExecutionResult{Compiled: true, SignatureOK: true},
			wantCompiles:  3,
			wantSignature: 3,
		},
		{
			name:          "compile failed but signature matched statically",
			result:        &model.ExecutionResult{Compiled: false, SignatureOK: true},
			wantCompiles:  0,
			wantSignature: 3,
		},
		{
			name:          "compiled with wrong signature",
			result:        &model.ExecutionResult{Compiled: true, SignatureOK: false},
			wantCompiles:  3,
			wantSignature: 0,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scores := auto.EvaluateExecution(tt.result)
			if got := scores[rubric.CriterionCompiles].Score; got != tt.wantCompiles {
				t.Fatalf("expected compiles %d, got %d", tt.wantCompiles, got)
			}
			if got := scores[rubric.CriterionSignature].Score; got != tt.wantSignature {
				t.Fatalf("expected signature %d, got %d", tt.wantSignature, got)
			}
			for name, score := range scores {
				if score.By != model.ByAuto {
					t.Fatalf("expected %s tagged auto, got %q", name, score.By)
				}
			}
		})
	}
}
