package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const testRunnerDescription = `Runs the tests covering a set of files and reports pass/fail with shaped output.

Usage:
- fsFilePaths is required: the files whose tests should run. The runner is
  inferred from the first file's extension (go test, pytest, npm test, ...)
- Output is always prefixed with the file list, then shaped to the first 0
  and last 100 lines when the run is long, since test failures are almost
  always reported near the end`

// TestRunnerTool runs the tests that cover a set of source files.
type TestRunnerTool struct {
	workDir string
	shell   string
}

// TestRunnerInput is the input for the test_runner tool: the files whose
// tests should be exercised, not an arbitrary shell command.
type TestRunnerInput struct {
	FsFilePaths []string `json:"fsFilePaths"`
	Timeout     int      `json:"timeout,omitempty"` // milliseconds
}

// NewTestRunnerTool creates a new test runner tool.
func NewTestRunnerTool(workDir string) *TestRunnerTool {
	return &TestRunnerTool{workDir: workDir, shell: detectShell()}
}

func (t *TestRunnerTool) ID() string          { return string(types.ToolTestRunner) }
func (t *TestRunnerTool) Description() string { return testRunnerDescription }

func (t *TestRunnerTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"fsFilePaths": {
				"type": "array",
				"items": {"type": "string"},
				"description": "File paths whose tests should run"
			},
			"timeout": {
				"type": "integer",
				"description": "Optional timeout in milliseconds (max 600000)"
			}
		},
		"required": ["fsFilePaths"]
	}`)
}

func (t *TestRunnerTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params TestRunnerInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if len(params.FsFilePaths) == 0 {
		return nil, fmt.Errorf("fsFilePaths is required")
	}

	timeout := DefaultBashTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Millisecond
		if timeout > MaxBashTimeout {
			timeout = MaxBashTimeout
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := testCommandForFiles(params.FsFilePaths)

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(cmdCtx, t.shell, "/c", command)
	} else {
		cmd = exec.CommandContext(cmdCtx, t.shell, "-c", command)
	}

	workDir := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		workDir = toolCtx.WorkDir
	}
	cmd.Dir = workDir
	cmd.Env = os.Environ()
	if runtime.GOOS != "windows" {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	output, err := cmd.CombinedOutput()
	timedOut := cmdCtx.Err() == context.DeadlineExceeded
	passed := err == nil && !timedOut

	shaped := shapeTestOutput(string(output), params.FsFilePaths)
	if timedOut {
		shaped += fmt.Sprintf("\n\n(test run timed out after %v)", timeout)
	}

	status := "PASSED"
	if !passed {
		status = "FAILED"
	}

	return &Result{
		Title:  fmt.Sprintf("Tests %s", status),
		Output: fmt.Sprintf("%s\n\n%s", status, shaped),
		Metadata: map[string]any{
			"command":     command,
			"fsFilePaths": params.FsFilePaths,
			"passed":      passed,
		},
	}, nil
}

// testCommandForFiles infers the test runner invocation from the
// extension of the first file path; a project with mixed-language test
// files still gets a workable single command for its dominant language.
func testCommandForFiles(paths []string) string {
	switch strings.ToLower(filepath.Ext(paths[0])) {
	case ".py":
		return "pytest -q " + strings.Join(quoteAll(paths), " ")
	case ".js", ".ts", ".jsx", ".tsx":
		return "npm test -- " + strings.Join(quoteAll(paths), " ")
	default:
		return "go test ./..."
	}
}

func quoteAll(paths []string) []string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
	}
	return quoted
}

// shapeTestOutput always prefixes the observation with the file list
// being exercised, then — if the raw output runs over 50 lines — keeps
// the first 0 and last 100 lines joined by a literal marker, since test
// failures are almost always reported near the end of the run.
func shapeTestOutput(raw string, fsFilePaths []string) string {
	fileList := fmt.Sprintf("Running tests in files:\n%s\n", strings.Join(fsFilePaths, "\n"))

	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	if len(lines) <= 50 {
		return fmt.Sprintf("%s\n%s", fileList, raw)
	}

	const keepTail = 100
	tail := lines
	if len(tail) > keepTail {
		tail = tail[len(tail)-keepTail:]
	}
	return fmt.Sprintf("%s\n\n[...test execution...]\n\n%s", fileList, strings.Join(tail, "\n"))
}

func (t *TestRunnerTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
