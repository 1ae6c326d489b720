// Package sandbox implements the bounded, not-secure code-execution
// facility described in spec §4.C: a user-authored asynchronous function
// body is run with a parsed-JSON input, an outbound-HTTP capability, and a
// read view of the process environment as its only three free names.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Timeout is the hard per-call deadline named in spec §4.C and §5.
const Timeout = 30 * time.Second

// Executor runs custom tool bodies through a generated Node.js subprocess.
// Node was chosen because no JS-interpreter library is available anywhere
// in the surrounding example pack — subprocess execution is the only idiom
// the corpus demonstrates for "run some code with a deadline and capture a
// result" (see DESIGN.md).
type Executor struct {
	// WorkspaceRoot is where scratch directories are created. Empty uses
	// the OS default temp directory.
	WorkspaceRoot string

	// NodeBinary overrides the "node" executable looked up on PATH.
	NodeBinary string
}

// NewExecutor returns an Executor with default settings.
func NewExecutor() *Executor {
	return &Executor{NodeBinary: "node"}
}

// Execute runs code — the body of an asynchronous function — against input,
// racing it against Timeout. It never returns a Go error for a problem with
// the user's code: per spec §4.C, compile failures, runtime throws, and
// timeouts are all encoded into the returned string.
func (e *Executor) Execute(ctx context.Context, code string, input json.RawMessage) (string, error) {
	node := e.NodeBinary
	if node == "" {
		node = "node"
	}

	workspace, err := os.MkdirTemp(e.WorkspaceRoot, "envoy-sandbox-*")
	if err != nil {
		return "", fmt.Errorf("prepare sandbox workspace: %w", err)
	}
	defer os.RemoveAll(workspace)

	script, err := renderScript(code, input)
	if err != nil {
		return fmt.Sprintf("Error: %s", err.Error()), nil
	}
	scriptPath := filepath.Join(workspace, "tool.js")
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return "", fmt.Errorf("write sandbox script: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, node, scriptPath)
	cmd.Env = os.Environ()
	cmd.Dir = workspace

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		return "Error executing tool: Tool execution timed out after 30 seconds", nil
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return fmt.Sprintf("Error executing tool: %s", msg), nil
	}

	return coerceOutput(stdout.String()), nil
}

// coerceOutput applies spec §4.C step 3: the wrapper script always prints
// one JSON-encoded line describing the function's return value; this
// decodes that envelope back into the final result string.
func coerceOutput(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Tool executed successfully (no return value)."
	}

	var envelope struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal([]byte(lastLine(raw)), &envelope); err != nil {
		// The wrapper always emits a well-formed envelope; falling back to
		// the raw text keeps a misbehaving script's output visible rather
		// than silently discarding it.
		return raw
	}

	switch envelope.Kind {
	case "none":
		return "Tool executed successfully (no return value)."
	case "string":
		return envelope.Value
	case "error":
		return fmt.Sprintf("Error executing tool: %s", envelope.Value)
	case "compileerror":
		return fmt.Sprintf("Error: %s", envelope.Value)
	default:
		return envelope.Value
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return lines[len(lines)-1]
}

// validateTimeout bounds the compile-only check meta-tools run before
// persisting a new or updated tool body (spec §4.C, §4.I).
const validateTimeout = 5 * time.Second

// Validate reports whether code compiles as the body of an asynchronous
// function, without invoking it. It never returns a timeout-only failure as
// a Go error; a compile problem is reported via the returned message.
func (e *Executor) Validate(ctx context.Context, code string) (ok bool, message string) {
	node := e.NodeBinary
	if node == "" {
		node = "node"
	}

	workspace, err := os.MkdirTemp(e.WorkspaceRoot, "envoy-sandbox-validate-*")
	if err != nil {
		return false, fmt.Sprintf("prepare validation workspace: %v", err)
	}
	defer os.RemoveAll(workspace)

	script, err := renderCompileCheckScript(code)
	if err != nil {
		return false, err.Error()
	}
	scriptPath := filepath.Join(workspace, "check.js")
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return false, fmt.Sprintf("write validation script: %v", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, node, scriptPath)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return false, msg
	}
	return true, ""
}
