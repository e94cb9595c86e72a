package model

import "strings"

// TimeoutMarker prefixes runtime errors caused by a timeout or resource-limit
// kill so callers can tell them apart from ordinary runtime failures.
const TimeoutMarker = "Timeout:"

// TestCaseStatus is the outcome of one executed test case.
type TestCaseStatus string

const (
	TestPassed  TestCaseStatus = "passed"
	TestFailed  TestCaseStatus = "failed"
	TestErrored TestCaseStatus = "error"
)

// TestCaseResult is the outcome of one fixture executed against the
// candidate's code.
type TestCaseResult struct {
	Status   TestCaseStatus `json:"status"`
	Input    string         `json:"input"`
	Expected string         `json:"expected"`
	Actual   string         `json:"actual,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ExecutionSummary aggregates per-case outcomes.
// Total == Passed + Failed whenever the run compiled with a matching
// signature; otherwise all counts are zero.
type ExecutionSummary struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// ExecutionResult is the normalized outcome of one sandbox invocation.
// Exactly one failure category is populated: CompileError, RuntimeError
// (timeout runs carry the TimeoutMarker prefix), or Error for
// transport/local failures. A fully successful run populates Tests and
// Summary and leaves all three error fields empty.
type ExecutionResult struct {
	Compiled     bool             `json:"compiled"`
	SignatureOK  bool             `json:"signature_ok"`
	CompileError string           `json:"compile_error,omitempty"`
	RuntimeError string           `json:"runtime_error,omitempty"`
	Error        string           `json:"error,omitempty"`
	Tests        []TestCaseResult `json:"tests,omitempty"`
	Summary      ExecutionSummary `json:"summary"`
}

// TimedOut reports whether the run was killed by a time or resource limit.
func (r *ExecutionResult) TimedOut() bool {
	return strings.HasPrefix(r.RuntimeError, TimeoutMarker)
}

// Executed reports whether the sandbox actually ran the candidate's tests.
func (r *ExecutionResult) Executed() bool {
	return r.Compiled && r.CompileError == "" && r.RuntimeError == "" && r.Error == ""
}

// AllPassed reports whether at least one test ran and none failed.
func (r *ExecutionResult) AllPassed() bool {
	return r.Executed() && r.Summary.Total > 0 && r.Summary.Failed == 0 && r.Summary.Passed == r.Summary.Total
}
