package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
)

func TestProcessContainsPanickingEvaluator(t *testing.T) {
	t.Parallel()
	session := clarifySession()
	session.SessionID = "sess-panic"
	session.Stage = model.StageBruteForce

	runner := &fakeRunner{panics: true}
	sessions := newFakeSessionRepo(session)
	attempts := &fakeAttemptRepo{}
	machine := newTestMachine(t, sessions, attempts, runner, &fakePublisher{})

	payload := mustJSON(t, map[string]string{"code": "def twoSum(nums, target): ..."})
	result, err := machine.Process(context.Background(), "sess-panic", payload)
	if err != nil {
		t.Fatalf("expected panic to be contained, got error: %v", err)
	}
	if result.Passed {
		t.Fatal("expected contained failure to not pass")
	}
	if result.CoachMsg == "" {
		t.Fatal("expected retry message on contained failure")
	}
	if got := sessions.sessions["sess-panic"].Stage; got != model.StageBruteForce {
		t.Fatalf("expected stage unchanged after contained panic, got %s", got)
	}
	if len(attempts.attempts) != 1 {
		t.Fatalf("expected attempt still recorded, got %d", len(attempts.attempts))
	}
}

func TestProcessContainsRunnerError(t *testing.T) {
	t.Parallel()
	session := clarifySession()
	session.SessionID = "sess-err"
	session.Stage = model.StageOptimize

	runner := &fakeRunner{err: errors.New("save test run failed: disk full")}
	sessions := newFakeSessionRepo(session)
	attempts := &fakeAttemptRepo{}
	machine := newTestMachine(t, sessions, attempts, runner, &fakePublisher{})

	payload := mustJSON(t, map[string]string{"code": "def twoSum(nums, target): ...", "time_complexity": "O(n)"})
	result, err := machine.Process(context.Background(), "sess-err", payload)
	if err != nil {
		t.Fatalf("expected runner error to be contained, got: %v", err)
	}
	if result.Passed {
		t.Fatal("expected contained failure to not pass")
	}
	if got := sessions.sessions["sess-err"].Stage; got != model.StageOptimize {
		t.Fatalf("expected stage unchanged, got %s", got)
	}
	if len(attempts.attempts) != 1 {
		t.Fatalf("expected attempt recorded, got %d", len(attempts.attempts))
	}
}

func TestProcessContainsMalformedPayload(t *testing.T) {
	t.Parallel()
	sessions := newFakeSessionRepo(clarifySession())
	attempts := &fakeAttemptRepo{}
	machine := newTestMachine(t, sessions, attempts, &fakeRunner{}, &fakePublisher{})

	result, err := machine.Process(context.Background(), "sess-clarify", json.RawMessage(`{"inputs_outputs": 12`))
	if err != nil {
		t.Fatalf("expected malformed payload to be contained, got: %v", err)
	}
	if result.Passed {
		t.Fatal("expected malformed payload to fail")
	}
	if result.CoachMsg == "" {
		t.Fatal("expected retry message")
	}
	if got := sessions.sessions["sess-clarify"].Stage; got != model.StageClarify {
		t.Fatalf("expected stage unchanged, got %s", got)
	}
	if len(attempts.attempts) != 1 {
		t.Fatalf("expected attempt recorded for malformed payload, got %d", len(attempts.attempts))
	}
}

func TestProcessTextStages(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		stage model.Stage
		next  model.Stage
	}{
		{name: "approach", stage: model.StageApproach, next: model.StagePseudocode},
		{name: "pseudocode", stage: model.StagePseudocode, next: model.StageBruteForce},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			session := clarifySession()
			session.SessionID = "sess-" + tt.name
			session.Stage = tt.stage

			sessions := newFakeSessionRepo(session)
			attempts := &fakeAttemptRepo{}
			machine := newTestMachine(t, sessions, attempts, &fakeRunner{}, &fakePublisher{})

			result, err := machine.Process(context.Background(), session.SessionID, mustJSON(t, map[string]string{"text": "use a hash map"}))
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if !result.Passed {
				t.Fatalf("expected %s stub to pass, got %+v", tt.stage, result)
			}
			if got := sessions.sessions[session.SessionID].Stage; got != tt.next {
				t.Fatalf("expected advance to %s, got %s", tt.next, got)
			}
			if len(attempts.attempts) != 1 {
				t.Fatalf("expected 1 attempt, got %d", len(attempts.attempts))
			}
		})
	}
}
