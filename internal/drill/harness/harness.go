// Package harness executes candidate code in the external sandbox and
// normalizes its heterogeneous responses into a stable ExecutionResult.
// No code ever executes locally; malformed sandbox output degrades to a
// classified failure instead of an error.
package harness

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DonTee-Why/algo-drill-sub000/internal/common/db"
	"github.com/DonTee-Why/algo-drill-sub000/internal/common/storage"
	"github.com/DonTee-Why/algo-drill-sub000/internal/drill/model"
	problemrepo "github.com/DonTee-Why/algo-drill-sub000/internal/problem/repository"
	"github.com/DonTee-Why/algo-drill-sub000/pkg/utils/logger"
)

const (
	errNoSignature = "No signature found"
	errNoTests     = "No tests found"

	maxStderrBytes = 4096
)

// TestRunStore persists execution records. Create participates in the
// caller's transaction when tx is non-nil.
type TestRunStore interface {
	Create(ctx context.Context, tx db.Transaction, run *model.TestRun) error
}

// FixtureProvider supplies signatures and test fixtures for problems.
type FixtureProvider interface {
	GetSignature(ctx context.Context, problemID int64, language string) (*problemrepo.Signature, error)
	ListTestCases(ctx context.Context, problemID int64) ([]problemrepo.TestCase, error)
}

// harnessStdin is the fixture bundle piped to the sandboxed runner.
type harnessStdin struct {
	Function string            `json:"function"`
	Params   []string          `json:"params"`
	Returns  string            `json:"returns"`
	Tests    []harnessTestCase `json:"tests"`
}

type harnessTestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	IsEdge   bool   `json:"is_edge"`
	Weight   int    `json:"weight"`
}

// runReport is the structured summary the runner prints on stdout.
type runReport struct {
	Tests   []model.TestCaseResult `json:"tests"`
	Summary model.ExecutionSummary `json:"summary"`
}

// Harness runs candidate code against a problem's fixtures via the
// sandbox and records every invocation as a TestRun.
type Harness struct {
	sandbox       SandboxClient
	fixtures      FixtureProvider
	runs          TestRunStore
	archive       storage.ObjectStorage
	archiveBucket string
	cfg           SandboxConfig
	versions      map[string]string
}

// Config holds harness settings.
type Config struct {
	Sandbox SandboxConfig `yaml:"sandbox"`
	// LanguageVersions maps a language name to the sandbox runtime
	// version requested for it.
	LanguageVersions map[string]string `yaml:"language_versions"`
	// ArchiveBucket is the object storage bucket submitted source is
	// archived to.
	ArchiveBucket string `yaml:"archive_bucket"`
}

// NewHarness creates a harness. The archive storage is optional; when
// present, submitted source is archived and the object key recorded on
// the TestRun.
func NewHarness(sandbox SandboxClient, fixtures FixtureProvider, runs TestRunStore, archive storage.ObjectStorage, cfg Config) (*Harness, error) {
	if sandbox == nil {
		return nil, fmt.Errorf("sandbox client is required")
	}
	if fixtures == nil {
		return nil, fmt.Errorf("fixture provider is required")
	}
	if runs == nil {
		return nil, fmt.Errorf("test run store is required")
	}
	cfg.Sandbox.SetDefaults()
	if cfg.ArchiveBucket == "" {
		cfg.ArchiveBucket = "drill-sources"
	}
	return &Harness{
		sandbox:       sandbox,
		fixtures:      fixtures,
		runs:          runs,
		archive:       archive,
		archiveBucket: cfg.ArchiveBucket,
		cfg:           cfg.Sandbox,
		versions:      cfg.LanguageVersions,
	}, nil
}

// RunCode executes sourceCode against the session problem's fixtures and
// returns the normalized result. Sandbox-side failures are expressed as
// result fields, never as errors; the returned error is reserved for
// local persistence failures. A TestRun row is written on every branch.
func (h *Harness) RunCode(ctx context.Context, tx db.Transaction, session *model.Session, language, sourceCode string, isSubmission bool) (*model.ExecutionResult, error) {
	result := &model.ExecutionResult{}
	var cpuTimeMs, memoryKB int64
	stderrTruncated := false

	sig, sigErr := h.fixtures.GetSignature(ctx, session.ProblemID, language)
	switch {
	case sigErr != nil && isMissingFixture(sigErr, problemrepo.ErrSignatureNotFound):
		result.Error = errNoSignature
	case sigErr != nil:
		result.Error = fmt.Sprintf("fixture lookup failed: %v", sigErr)
	default:
		result.SignatureOK = signatureMatches(sourceCode, sig)

		cases, err := h.fixtures.ListTestCases(ctx, session.ProblemID)
		if err != nil {
			result.Error = fmt.Sprintf("fixture lookup failed: %v", err)
		} else if len(cases) == 0 {
			result.Error = errNoTests
		} else {
			resp, err := h.sandbox.Execute(ctx, h.buildRequest(language, sourceCode, sig, cases))
			if err != nil {
				// Transport failure, including caller-level timeout.
				result.Compiled = false
				result.Error = err.Error()
			} else {
				cpuTimeMs = resp.Run.CPUTime
				memoryKB = resp.Run.Memory / 1024
				stderrTruncated = h.classify(resp, result)
			}
		}
	}

	run := &model.TestRun{
		RunID:           uuid.NewString(),
		SessionID:       session.SessionID,
		Language:        language,
		SourceCode:      sourceCode,
		Result:          *result,
		CPUTimeMs:       cpuTimeMs,
		MemoryKB:        memoryKB,
		StderrTruncated: stderrTruncated,
		IsSubmission:    isSubmission,
		CreatedAt:       time.Now(),
	}
	run.SourceKey = h.archiveSource(ctx, language, sourceCode)

	if err := h.runs.Create(ctx, tx, run); err != nil {
		logger.Error(ctx, "save test run failed",
			zap.String("session_id", session.SessionID),
			zap.Error(err))
		return result, fmt.Errorf("save test run failed: %w", err)
	}
	return result, nil
}

func (h *Harness) buildRequest(language, sourceCode string, sig *problemrepo.Signature, cases []problemrepo.TestCase) *ExecuteRequest {
	stdin := harnessStdin{
		Function: sig.FunctionName,
		Params:   sig.Params,
		Returns:  sig.Returns,
		Tests:    make([]harnessTestCase, 0, len(cases)),
	}
	for _, tc := range cases {
		stdin.Tests = append(stdin.Tests, harnessTestCase{
			Input:    tc.Input,
			Expected: tc.Expected,
			IsEdge:   tc.IsEdge,
			Weight:   tc.Weight,
		})
	}
	stdinJSON, _ := json.Marshal(stdin)

	req := &ExecuteRequest{
		Language:         language,
		Version:          h.version(language),
		Files:            []ExecuteFile{{Name: sourceFileName(language), Content: sourceCode}},
		Stdin:            string(stdinJSON),
		CompileTimeoutMs: h.cfg.CompileTimeout.Milliseconds(),
		RunTimeoutMs:     h.cfg.RunTimeout.Milliseconds(),
	}
	if h.cfg.RunMemoryLimitMB > 0 {
		req.RunMemoryBytes = h.cfg.RunMemoryLimitMB * 1024 * 1024
	}
	return req
}

// classify folds the sandbox response into result, populating exactly
// one failure category. It reports whether captured stderr was
// truncated.
func (h *Harness) classify(resp *ExecuteResponse, result *model.ExecutionResult) bool {
	truncated := false

	if resp.Compile != nil && !exitedCleanly(resp.Compile) {
		result.Compiled = false
		msg := resp.Compile.Stderr
		if msg == "" {
			msg = resp.Compile.Stdout
		}
		result.CompileError, truncated = capStderr(msg)
		return truncated
	}
	result.Compiled = true

	if timedOut(&resp.Run) {
		detail := resp.Run.Status
		if detail == "" {
			detail = "killed by signal " + resp.Run.Signal
		}
		result.RuntimeError = model.TimeoutMarker + " " + detail
		return false
	}

	// No exit code, no signal, no status means the run outcome is
	// missing from the response, not that the program misbehaved.
	if resp.Run.Code == nil && resp.Run.Signal == "" && resp.Run.Status == "" {
		result.Compiled = false
		result.Error = "malformed sandbox response: missing run outcome"
		return false
	}

	if !exitedCleanly(&resp.Run) {
		msg := resp.Run.Stderr
		if msg == "" {
			msg = fmt.Sprintf("process exited abnormally (signal %q)", resp.Run.Signal)
		}
		result.RuntimeError, truncated = capStderr(msg)
		return truncated
	}

	var report runReport
	if err := json.Unmarshal([]byte(resp.Run.Stdout), &report); err != nil {
		result.Compiled = false
		result.Error = fmt.Sprintf("unreadable run output: %v", err)
		return false
	}
	result.Tests = report.Tests
	result.Summary = report.Summary
	return false
}

func (h *Harness) version(language string) string {
	if v, ok := h.versions[language]; ok && v != "" {
		return v
	}
	return "*"
}

// archiveSource stores the submitted source in object storage keyed by
// content hash. Archival is best effort; failures are logged and the
// run proceeds without a source key.
func (h *Harness) archiveSource(ctx context.Context, language, sourceCode string) string {
	if h.archive == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(sourceCode))
	key := fmt.Sprintf("source/%s/%s%s", language, hex.EncodeToString(sum[:]), sourceFileExt(language))
	reader := io.NopCloser(bytes.NewReader([]byte(sourceCode)))
	if err := h.archive.PutObject(ctx, h.archiveBucket, key, reader, int64(len(sourceCode)), "text/plain"); err != nil {
		logger.Warn(ctx, "archive source failed",
			zap.String("key", key),
			zap.Error(err))
		return ""
	}
	return key
}

func exitedCleanly(out *StageOutput) bool {
	return out.Signal == "" && out.Code != nil && *out.Code == 0
}

// timedOut reports whether the run was ended by the sandbox's time or
// resource limits rather than by the program itself.
func timedOut(run *StageOutput) bool {
	switch strings.ToLower(run.Status) {
	case "to", "timeout", "time_limit_exceeded":
		return true
	}
	switch run.Signal {
	case "SIGKILL", "SIGXCPU":
		return true
	}
	return false
}

func capStderr(s string) (string, bool) {
	if len(s) <= maxStderrBytes {
		return s, false
	}
	return s[:maxStderrBytes], true
}

func isMissingFixture(err, sentinel error) bool {
	return errors.Is(err, sentinel)
}

// signatureMatches checks function name and arity with plain string
// matching so it works even when compilation failed.
func signatureMatches(source string, sig *problemrepo.Signature) bool {
	if sig == nil || sig.FunctionName == "" {
		return false
	}
	idx := strings.Index(source, sig.FunctionName)
	for idx >= 0 {
		rest := source[idx+len(sig.FunctionName):]
		trimmed := strings.TrimLeft(rest, " \t")
		if strings.HasPrefix(trimmed, "(") {
			if arityMatches(trimmed, len(sig.Params)) {
				return true
			}
		}
		next := strings.Index(rest, sig.FunctionName)
		if next < 0 {
			break
		}
		idx += len(sig.FunctionName) + next
	}
	return false
}

// arityMatches counts top-level commas in the parenthesized list that
// starts text and compares against the expected parameter count.
func arityMatches(text string, want int) bool {
	depth := 0
	commas := 0
	empty := true
	for _, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if empty {
					return want == 0
				}
				return commas == want-1
			}
		case ',':
			if depth == 1 {
				commas++
			}
		default:
			if depth >= 1 && !isSpaceRune(r) {
				empty = false
			}
		}
	}
	return false
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func sourceFileName(language string) string {
	switch language {
	case "python", "python3":
		return "main.py"
	case "javascript", "node":
		return "main.js"
	case "typescript":
		return "main.ts"
	case "go", "golang":
		return "main.go"
	case "java":
		return "Main.java"
	case "cpp", "c++":
		return "main.cpp"
	case "c":
		return "main.c"
	default:
		return "main.txt"
	}
}

func sourceFileExt(language string) string {
	name := sourceFileName(language)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
