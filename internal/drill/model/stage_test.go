package model_test

import (
	"testing"

	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
)

func TestStageOrder(t *testing.T) {
	t.Parallel()
	want := []model.Stage{
		model.StageClarify,
		model.StageApproach,
		model.StagePseudocode,
		model.StageBruteForce,
		model.StageOptimize,
		model.StageDone,
	}
	got := model.Stages()
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(got))
	}
	for i, stage := range want {
		if got[i] != stage {
			t.Fatalf("expected stage %d to be %s, got %s", i, stage, got[i])
		}
		if got[i].Index() != i {
			t.Fatalf("expected %s index %d, got %d", stage, i, got[i].Index())
		}
	}

	// Callers get their own copy, not a view of the package ordering.
	got[0] = model.StageDone
	if again := model.Stages(); again[0] != model.StageClarify {
		t.Fatalf("expected Stages() to return a fresh copy, got %s first", again[0])
	}
}

func TestStageNext(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   model.Stage
		want model.Stage
	}{
		{name: "clarify", in: model.StageClarify, want: model.StageApproach},
		{name: "approach", in: model.StageApproach, want: model.StagePseudocode},
		{name: "pseudocode", in: model.StagePseudocode, want: model.StageBruteForce},
		{name: "brute force", in: model.StageBruteForce, want: model.StageOptimize},
		{name: "optimize", in: model.StageOptimize, want: model.StageDone},
		{name: "done is terminal", in: model.StageDone, want: model.StageDone},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.in.Next(); got != tt.want {
				t.Fatalf("expected next of %s to be %s, got %s", tt.in, tt.want, got)
			}
		})
	}
}

func TestParseStage(t *testing.T) {
	t.Parallel()
	for _, stage := range model.Stages() {
		parsed, err := model.ParseStage(stage.String())
		if err != nil {
			t.Fatalf("parse %s failed: %v", stage, err)
		}
		if parsed != stage {
			t.Fatalf("expected %s, got %s", stage, parsed)
		}
	}

	if _, err := model.ParseStage("review"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
	if model.Stage("review").Valid() {
		t.Fatal("expected unknown stage to be invalid")
	}
}

func TestStageTerminal(t *testing.T) {
	t.Parallel()
	for _, stage := range model.Stages() {
		if got, want := stage.Terminal(), stage == model.StageDone; got != want {
			t.Fatalf("expected %s terminal=%v, got %v", stage, want, got)
		}
	}
}

func TestScoreMapTotal(t *testing.T) {
	t.Parallel()
	scores := model.ScoreMap{
		"inputs_outputs": {Score: 3, By: model.ByAuto},
		"constraints":    {Score: 2, By: model.ByAuto},
		"examples":       {Score: 4, By: model.ByAuto},
	}
	if got := scores.Total(); got != 9 {
		t.Fatalf("expected total 9, got %d", got)
	}

	clone := scores.Clone()
	clone["examples"] = model.CriterionScore{Score: 6, By: model.ByAuto}
	if scores["examples"].Score != 4 {
		t.Fatal("clone mutation leaked into original")
	}
}

func TestExecutionResultHelpers(t *testing.T) {
	t.Parallel()
	success := model.ExecutionResult{
		Compiled:    true,
		SignatureOK: true,
		Summary:     model.ExecutionSummary{Passed: 3, Failed: 0, Total: 3},
	}
	if !success.Executed() || !success.AllPassed() {
		t.Fatal("expected successful run to be executed with all tests passing")
	}

	timeout := model.ExecutionResult{
		Compiled:     true,
		RuntimeError: model.TimeoutMarker + " run exceeded 3s",
	}
	if !timeout.TimedOut() {
		t.Fatal("expected timeout run to report TimedOut")
	}
	if timeout.AllPassed() {
		t.Fatal("expected timeout run to not report AllPassed")
	}

	runtime := model.ExecutionResult{Compiled: true, RuntimeError: "index out of range"}
	if runtime.TimedOut() {
		t.Fatal("expected plain runtime error to not report TimedOut")
	}
}
