package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const listDescription = `Lists files under a directory.

Usage:
- directory is required; recursive walks subdirectories when true
- Output is the matching paths, one per line, relative to directory
- Reports "0 results found" when the directory has nothing to list`

// ListTool implements directory listing.
type ListTool struct {
	workDir string
}

// ListInput is the input for the list_files tool: a directory and
// whether to walk it recursively, plus glob patterns to skip.
type ListInput struct {
	Directory string   `json:"directory"`
	Recursive bool     `json:"recursive,omitempty"`
	Ignore    []string `json:"ignore,omitempty"`
}

// defaultIgnorePatterns are directory/file globs excluded from every
// listing regardless of caller-supplied Ignore patterns.
var defaultIgnorePatterns = []string{
	"node_modules/",
	"__pycache__/",
	".git/",
	"dist/",
	"build/",
	"target/",
	"vendor/",
	"bin/",
	"obj/",
	".idea/",
	".vscode/",
	".cache/",
	"tmp/",
	"temp/",
	".venv/",
	"venv/",
	"env/",
}

// NewListTool creates a new list tool.
func NewListTool(workDir string) *ListTool {
	return &ListTool{workDir: workDir}
}

func (t *ListTool) ID() string          { return string(types.ToolListFiles) }
func (t *ListTool) Description() string { return listDescription }

func (t *ListTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"directory": {
				"type": "string",
				"description": "The absolute path to the directory to list"
			},
			"recursive": {
				"type": "boolean",
				"description": "Walk subdirectories instead of listing one level"
			},
			"ignore": {
				"type": "array",
				"items": {"type": "string"},
				"description": "List of glob patterns to ignore"
			}
		},
		"required": ["directory"]
	}`)
}

func (t *ListTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params ListInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	listPath := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		listPath = toolCtx.WorkDir
	}
	if params.Directory != "" {
		if filepath.IsAbs(params.Directory) {
			listPath = params.Directory
		} else {
			listPath = filepath.Join(listPath, params.Directory)
		}
	}

	ignorePatterns := append([]string{}, defaultIgnorePatterns...)
	ignorePatterns = append(ignorePatterns, params.Ignore...)

	if params.Recursive {
		paths, err := walkPaths(listPath, ignorePatterns)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		return listResult(paths, listPath), nil
	}

	entries, err := os.ReadDir(listPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if shouldIgnore(entry.Name(), entry.IsDir(), ignorePatterns) {
			continue
		}
		paths = append(paths, entry.Name())
	}

	return listResult(paths, listPath), nil
}

// walkPaths recursively collects every non-ignored path under root,
// relative to root.
func walkPaths(root string, ignorePatterns []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if shouldIgnore(d.Name(), d.IsDir(), ignorePatterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			paths = append(paths, rel)
		}
		return nil
	})
	return paths, err
}

// listResult renders paths as ListFiles/FindFile's shared output
// contract: newline-joined paths, or a literal "0 results found" when
// there's nothing to show.
func listResult(paths []string, listPath string) *Result {
	sort.Strings(paths)

	output := "0 results found"
	if len(paths) > 0 {
		output = strings.Join(paths, "\n")
	}

	return &Result{
		Title:  fmt.Sprintf("Listed %d items", len(paths)),
		Output: output,
		Metadata: map[string]any{
			"path":  listPath,
			"count": len(paths),
		},
	}
}

func (t *ListTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}

// shouldIgnore checks if a file/directory should be ignored based on patterns.
func shouldIgnore(name string, isDir bool, patterns []string) bool {
	checkName := name
	if isDir {
		checkName = name + "/"
	}

	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			if isDir && (name+"/" == pattern || name == strings.TrimSuffix(pattern, "/")) {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if isDir {
			if matched, _ := filepath.Match(pattern, checkName); matched {
				return true
			}
		}
	}
	return false
}
