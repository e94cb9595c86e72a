package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultExecutePath = "/api/v2/execute"

// ExecuteFile is one source file shipped to the sandbox.
type ExecuteFile struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// ExecuteRequest is the sandbox wire request.
type ExecuteRequest struct {
	Language           string        `json:"language"`
	Version            string        `json:"version"`
	Files              []ExecuteFile `json:"files"`
	Stdin              string        `json:"stdin,omitempty"`
	Args               []string      `json:"args,omitempty"`
	CompileTimeoutMs   int64         `json:"compile_timeout_ms,omitempty"`
	RunTimeoutMs       int64         `json:"run_timeout_ms,omitempty"`
	CompileCPUMs       int64         `json:"compile_cpu_ms,omitempty"`
	RunCPUMs           int64         `json:"run_cpu_ms,omitempty"`
	CompileMemoryBytes int64         `json:"compile_memory_bytes,omitempty"`
	RunMemoryBytes     int64         `json:"run_memory_bytes,omitempty"`
}

// StageOutput is the sandbox's report for one phase. Code is nil when the
// sandbox omits an exit code, which happens on signal kills.
type StageOutput struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Code   *int   `json:"code"`
	Signal string `json:"signal"`
	Status string `json:"status,omitempty"`
	// CPUTime is milliseconds, Memory is bytes.
	CPUTime int64 `json:"cpu_time"`
	Memory  int64 `json:"memory"`
}

// ExecuteResponse is the sandbox wire response. Compile is absent for
// interpreted languages.
type ExecuteResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Compile  *StageOutput `json:"compile,omitempty"`
	Run      StageOutput  `json:"run"`
}

// SandboxClient executes untrusted code remotely.
type SandboxClient interface {
	Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error)
}

// SandboxConfig holds sandbox connection settings.
type SandboxConfig struct {
	BaseURL string `yaml:"base_url"`
	// RequestTimeout bounds the whole HTTP call. It layers above the
	// sandbox's own compile/run timeouts so a hung sandbox cannot hang
	// the caller.
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	CompileTimeout     time.Duration `yaml:"compile_timeout"`
	RunTimeout         time.Duration `yaml:"run_timeout"`
	RunMemoryLimitMB   int64         `yaml:"run_memory_limit_mb"`
	MaxSourceSizeBytes int64         `yaml:"max_source_size_bytes"`
}

// SetDefaults fills unset sandbox settings.
func (c *SandboxConfig) SetDefaults() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.CompileTimeout <= 0 {
		c.CompileTimeout = 10 * time.Second
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 3 * time.Second
	}
	if c.MaxSourceSizeBytes <= 0 {
		c.MaxSourceSizeBytes = 64 * 1024
	}
}

// HTTPSandboxClient talks to the sandbox over HTTP.
type HTTPSandboxClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPSandboxClient creates a sandbox client.
func NewHTTPSandboxClient(cfg SandboxConfig) (*HTTPSandboxClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sandbox base URL is required")
	}
	cfg.SetDefaults()
	return &HTTPSandboxClient{
		baseURL: cfg.BaseURL,
		timeout: cfg.RequestTimeout,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// Execute submits an execution request and decodes the response.
// Non-2xx statuses and undecodable bodies are returned as errors so the
// caller can classify them as transport failures.
func (c *HTTPSandboxClient) Execute(ctx context.Context, execReq *ExecuteRequest) (*ExecuteResponse, error) {
	body, err := json.Marshal(execReq)
	if err != nil {
		return nil, fmt.Errorf("encode execute request failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+defaultExecutePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build execute request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sandbox response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sandbox returned status %d: %s", resp.StatusCode, truncate(string(respBody), 256))
	}

	var execResp ExecuteResponse
	if err := json.Unmarshal(respBody, &execResp); err != nil {
		return nil, fmt.Errorf("decode sandbox response failed: %w", err)
	}
	return &execResp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
