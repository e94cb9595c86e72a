package rubric_test

import (
	"testing"

	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/rubric"
)

func TestCoachEvaluateExecution(t *testing.T) {
	t.Parallel()
	coach := rubric.NewCoachEvaluator()

	tests := []struct {
		name   string
		result *model.ExecutionResult
		want   int
	}{
		{name: "nil result", result: nil, want: 0},
		{
			name: "all tests pass",
			result: &model.ExecutionResult{
				Compiled:    true,
				SignatureOK: true,
				Summary:     model.ExecutionSummary{Passed: 3, Failed: 0, Total: 3},
			},
			want: 3,
		},
		{
			name: "one failure zeroes the score",
			result: &model.ExecutionResult{
				Compiled:    true,
				SignatureOK: true,
				Summary:     model.ExecutionSummary{Passed: 2, Failed: 1, Total: 3},
			},
			want: 0,
		},
		{
			name:   "no tests executed",
			result: &model.ExecutionResult{Compiled: true, SignatureOK: true},
			want:   0,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scores := coach.EvaluateExecution(tt.result)
			got, ok := scores[rubric.CriterionCorrectness]
			if !ok {
				t.Fatal("expected correctness criterion")
			}
			if got.Score != tt.want {
				t.Fatalf("expected correctness %d, got %d", tt.want, got.Score)
			}
			if got.By != model.ByCoach {
				t.Fatalf("expected coach tag, got %q", got.By)
			}
		})
	}
}
