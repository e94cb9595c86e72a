package model

import (
	"encoding/json"
	"time"
)

// Attempt is an immutable, append-only record of one stage submission.
// Attempts are written once per processed submission regardless of outcome
// and are never mutated or deleted; together they form the audit trail of a
// session.
type Attempt struct {
	AttemptID    string          `json:"attempt_id"`
	SessionID    string          `json:"session_id"`
	Stage        Stage           `json:"stage"` // stage at submission time
	Payload      json.RawMessage `json:"payload"`
	RubricScores ScoreMap        `json:"rubric_scores"`
	CoachMsg     string          `json:"coach_msg,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TestRun records one harness invocation, submission or trial. Persisted on
// every harness branch so execution history survives failures.
type TestRun struct {
	RunID           string          `json:"run_id"`
	SessionID       string          `json:"session_id"`
	Language        string          `json:"language"`
	SourceCode      string          `json:"source_code"`
	SourceKey       string          `json:"source_key,omitempty"`
	Result          ExecutionResult `json:"result"`
	CPUTimeMs       int64           `json:"cpu_time_ms"`
	MemoryKB        int64           `json:"memory_kb"`
	StderrTruncated bool            `json:"stderr_truncated"`
	IsSubmission    bool            `json:"is_submission"`
	CreatedAt       time.Time       `json:"created_at"`
}
