package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const globDescription = `Fast file pattern matching tool that works with any codebase size.

Usage:
- Supports glob patterns like "**/*.js" or "src/**/*.ts"
- Returns matching file paths in the order ripgrep lists them; results are not sorted
- Use this tool when you need to find files by name patterns`

// GlobTool implements file pattern matching.
type GlobTool struct {
	workDir string
}

// GlobInput is the input for the find_file tool: a glob pattern and
// the root directory to search it under.
type GlobInput struct {
	Pattern string `json:"pattern"`
	Root    string `json:"root,omitempty"`
}

// NewGlobTool creates a new glob tool.
func NewGlobTool(workDir string) *GlobTool {
	return &GlobTool{workDir: workDir}
}

func (t *GlobTool) ID() string          { return string(types.ToolFindFile) }
func (t *GlobTool) Description() string { return globDescription }

func (t *GlobTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "The glob pattern to match files against"
			},
			"root": {
				"type": "string",
				"description": "Directory to search in (default: current directory)"
			}
		},
		"required": ["pattern"]
	}`)
}

func (t *GlobTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params GlobInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	searchDir := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		searchDir = toolCtx.WorkDir
	}
	if params.Root != "" {
		if filepath.IsAbs(params.Root) {
			searchDir = params.Root
		} else {
			searchDir = filepath.Join(searchDir, params.Root)
		}
	}

	// Use ripgrep for fast file enumeration
	cmd := exec.CommandContext(ctx, "rg", "--files", "--glob", params.Pattern)
	cmd.Dir = searchDir

	output, err := cmd.Output()
	if err != nil && len(output) == 0 {
		// No matches is not an error
		return &Result{
			Title:  "Glob search",
			Output: "0 results found",
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"count":   0,
			},
		}, nil
	}

	var result []string
	for _, f := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if f != "" {
			result = append(result, f)
		}
	}

	// ListFiles/FindFile's contract is the same: newline-joined paths,
	// no truncation formula specified.
	outputStr := "0 results found"
	if len(result) > 0 {
		outputStr = strings.Join(result, "\n")
	}

	return &Result{
		Title:  fmt.Sprintf("Found %d files", len(result)),
		Output: outputStr,
		Metadata: map[string]any{
			"pattern": params.Pattern,
			"count":   len(result),
		},
	}, nil
}

func (t *GlobTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
