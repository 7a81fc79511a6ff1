package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// ErrCancelled is returned by tools that detect toolCtx.AbortCh closed
// mid-execution, so the caller can tell a genuine cancellation apart
// from an ordinary tool-error observation.
var ErrCancelled = errors.New("tool execution cancelled")

const grepDescription = `A powerful content search tool built on ripgrep.

Usage:
- Supports full regex syntax (e.g., "log.*Error", "function\\s+\\w+")
- Filter files with the include parameter (e.g., "*.js", "**/*.tsx")
- Returns matching lines with file paths and line numbers`

// GrepTool implements content search.
type GrepTool struct {
	workDir string
}

// GrepInput represents the input for the grep tool.
type GrepInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
	Include string `json:"include,omitempty"` // file pattern to include (e.g., "*.js")
}

// NewGrepTool creates a new grep tool.
func NewGrepTool(workDir string) *GrepTool {
	return &GrepTool{workDir: workDir}
}

func (t *GrepTool) ID() string          { return string(types.ToolSearchFileContentWithRegex) }
func (t *GrepTool) Description() string { return grepDescription }

func (t *GrepTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "The regex pattern to search for in file contents"
			},
			"path": {
				"type": "string",
				"description": "The directory to search in. Defaults to the current working directory."
			},
			"include": {
				"type": "string",
				"description": "File pattern to include in the search (e.g. \"*.js\", \"*.{ts,tsx}\")"
			}
		},
		"required": ["pattern"]
	}`)
}

// GrepMatch represents a search match.
type GrepMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

func (t *GrepTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params GrepInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	args := []string{
		"--line-number",
		"--with-filename",
		"--color=never",
	}

	if params.Include != "" {
		args = append(args, "--glob", params.Include)
	}

	args = append(args, params.Pattern)

	searchPath := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		searchPath = toolCtx.WorkDir
	}
	if params.Path != "" {
		searchPath = params.Path
	}
	args = append(args, searchPath)

	output, err := runInterruptible(ctx, toolCtx, "rg", args...)
	if toolCtx != nil && toolCtx.IsAborted() {
		return nil, ErrCancelled
	}
	if err != nil {
		// rg exits 1 for "no matches", which is not a failure; anything
		// else (bad pattern, missing path, rg not installed) is a real
		// tool error and the error text itself becomes the observation.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return &Result{
				Title:  "Search results",
				Output: "No matches found",
				Metadata: map[string]any{
					"pattern": params.Pattern,
					"count":   0,
				},
			}, nil
		}
		return &Result{
			Title:  "Search failed",
			Output: "Error: " + err.Error(),
			Metadata: map[string]any{
				"pattern": params.Pattern,
			},
		}, nil
	}

	if len(output) == 0 {
		return &Result{
			Title:  "Search results",
			Output: "No matches found",
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"count":   0,
			},
		}, nil
	}

	var matches []GrepMatch
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line == "" {
			continue
		}

		// Parse: file:line:content
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}

		lineNum, _ := strconv.Atoi(parts[1])
		matches = append(matches, GrepMatch{
			File:    parts[0],
			Line:    lineNum,
			Content: parts[2],
		})
	}

	// The tool response is returned verbatim: no truncation here, unlike
	// TerminalCommand/TestRunner/SemanticSearch which do have their own
	// truncation formulas.
	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("%s:%d: %s\n", m.File, m.Line, m.Content))
	}

	return &Result{
		Title:  fmt.Sprintf("Found %d matches", len(matches)),
		Output: sb.String(),
		Metadata: map[string]any{
			"pattern": params.Pattern,
			"count":   len(matches),
		},
	}, nil
}

// runInterruptible starts name with args and waits for it to finish,
// but kills it early if toolCtx's AbortCh closes — ctx's own
// cancellation alone only stops exec.CommandContext before the process
// starts, not a process already running.
func runInterruptible(ctx context.Context, toolCtx *Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var abortCh <-chan struct{}
	if toolCtx != nil {
		abortCh = toolCtx.AbortCh
	}

	select {
	case err := <-done:
		return stdout.Bytes(), err
	case <-abortCh:
		_ = cmd.Process.Kill()
		<-done
		return stdout.Bytes(), ErrCancelled
	}
}

func (t *GrepTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
