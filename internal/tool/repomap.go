package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const repoMapDescription = `Generates a directory tree overview of the repository.

Usage:
- path defaults to the working directory
- maxDepth bounds how many directory levels deep the tree descends (default 3)
- Hidden and build-artifact directories are skipped using the same
  ignore list as list_files`

// RepoMapGenerationTool builds a directory-tree overview of a repo, used
// by the driver to orient itself before drilling into individual files.
type RepoMapGenerationTool struct {
	workDir string
}

// RepoMapInput is the input for the repo_map_generation tool.
type RepoMapInput struct {
	Path     string `json:"path,omitempty"`
	MaxDepth int    `json:"maxDepth,omitempty"`
}

// NewRepoMapGenerationTool creates a new repo map tool.
func NewRepoMapGenerationTool(workDir string) *RepoMapGenerationTool {
	return &RepoMapGenerationTool{workDir: workDir}
}

func (t *RepoMapGenerationTool) ID() string          { return string(types.ToolRepoMapGeneration) }
func (t *RepoMapGenerationTool) Description() string { return repoMapDescription }

func (t *RepoMapGenerationTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "Root directory to map (default: working directory)"
			},
			"maxDepth": {
				"type": "integer",
				"description": "Maximum directory depth to descend (default 3)"
			}
		}
	}`)
}

func (t *RepoMapGenerationTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params RepoMapInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	root := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		root = toolCtx.WorkDir
	}
	if params.Path != "" {
		if filepath.IsAbs(params.Path) {
			root = params.Path
		} else {
			root = filepath.Join(root, params.Path)
		}
	}

	maxDepth := params.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}

	var sb strings.Builder
	fileCount := 0
	const maxFiles = 2000

	var walk func(dir string, depth int, prefix string) error
	walk = func(dir string, depth int, prefix string) error {
		if depth > maxDepth || fileCount > maxFiles {
			return nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}

		var kept []os.DirEntry
		for _, e := range entries {
			if shouldIgnore(e.Name(), e.IsDir(), defaultIgnorePatterns) {
				continue
			}
			kept = append(kept, e)
		}
		sort.Slice(kept, func(i, j int) bool {
			if kept[i].IsDir() != kept[j].IsDir() {
				return kept[i].IsDir()
			}
			return kept[i].Name() < kept[j].Name()
		})

		for _, e := range kept {
			if fileCount > maxFiles {
				sb.WriteString(prefix + "... (truncated)\n")
				return nil
			}
			fileCount++
			if e.IsDir() {
				sb.WriteString(prefix + e.Name() + "/\n")
				if err := walk(filepath.Join(dir, e.Name()), depth+1, prefix+"  "); err != nil {
					return err
				}
			} else {
				sb.WriteString(prefix + e.Name() + "\n")
			}
		}
		return nil
	}

	if err := walk(root, 1, ""); err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return &Result{
		Title:  fmt.Sprintf("Repository map for %s", root),
		Output: sb.String(),
		Metadata: map[string]any{
			"root":  root,
			"files": fileCount,
		},
	}, nil
}

func (t *RepoMapGenerationTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
