package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/internal/event"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const codeEditingDescription = `Applies an exact string replacement to a file, or creates a new file.

Usage:
- filePath must be an absolute path
- To create a new file, leave oldString empty and put the full content in newString
- To edit an existing file, oldString must match exactly once (unless replaceAll is set)
- The tool reports a unified diff of the change in its output`

// CodeEditingTool applies file edits: exact string replacement against an
// existing file, or whole-file creation when oldString is empty.
type CodeEditingTool struct {
	workDir string
}

// CodeEditingInput represents the input for the code_editing tool.
type CodeEditingInput struct {
	FilePath   string `json:"filePath"`
	OldString  string `json:"oldString,omitempty"`
	NewString  string `json:"newString"`
	ReplaceAll bool   `json:"replaceAll,omitempty"`
}

// NewCodeEditingTool creates a new code editing tool.
func NewCodeEditingTool(workDir string) *CodeEditingTool {
	return &CodeEditingTool{workDir: workDir}
}

func (t *CodeEditingTool) ID() string          { return string(types.ToolCodeEditing) }
func (t *CodeEditingTool) Description() string { return codeEditingDescription }

func (t *CodeEditingTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {
				"type": "string",
				"description": "The absolute path to the file to edit or create"
			},
			"oldString": {
				"type": "string",
				"description": "The exact text to replace. Leave empty to create a new file."
			},
			"newString": {
				"type": "string",
				"description": "The text to replace it with, or the full content of a new file"
			},
			"replaceAll": {
				"type": "boolean",
				"description": "Replace all occurrences (default: false)"
			}
		},
		"required": ["filePath", "newString"]
	}`)
}

func (t *CodeEditingTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params CodeEditingInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	if params.OldString == "" {
		return t.create(params, toolCtx)
	}

	if params.OldString == params.NewString {
		return nil, fmt.Errorf("oldString and newString must be different")
	}

	content, err := os.ReadFile(params.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	before := string(content)

	newText, count, err := replace(before, params)
	if err != nil {
		return t.fuzzyReplace(before, params, toolCtx)
	}

	return t.apply(params.FilePath, before, newText, count, toolCtx)
}

func replace(text string, params CodeEditingInput) (string, int, error) {
	count := strings.Count(text, params.OldString)
	if count == 0 {
		return "", 0, fmt.Errorf("oldString not found")
	}
	if params.ReplaceAll {
		return strings.ReplaceAll(text, params.OldString, params.NewString), count, nil
	}
	if count > 1 {
		return "", 0, fmt.Errorf("oldString appears %d times in file; use replaceAll or add more context", count)
	}
	return strings.Replace(text, params.OldString, params.NewString, 1), 1, nil
}

func (t *CodeEditingTool) create(params CodeEditingInput, toolCtx *Context) (*Result, error) {
	if _, err := os.Stat(params.FilePath); err == nil {
		return nil, fmt.Errorf("file already exists, provide oldString to edit it: %s", params.FilePath)
	}

	dir := filepath.Dir(params.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(params.FilePath, []byte(params.NewString), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	t.publish(params.FilePath, toolCtx)

	diff, additions, _ := buildDiffMetadata(params.FilePath, "", params.NewString, t.workDir)
	return &Result{
		Title:  fmt.Sprintf("Created %s", filepath.Base(params.FilePath)),
		Output: fmt.Sprintf("I performed the edits... here is the git diff:\n\n%s", diff),
		Metadata: map[string]any{
			"file":      params.FilePath,
			"additions": additions,
			"deletions": 0,
		},
	}, nil
}

func (t *CodeEditingTool) apply(path, before, after string, count int, toolCtx *Context) (*Result, error) {
	if err := os.WriteFile(path, []byte(after), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	t.publish(path, toolCtx)

	diff, additions, deletions := buildDiffMetadata(path, before, after, t.workDir)
	return &Result{
		Title:  fmt.Sprintf("Edited %s", filepath.Base(path)),
		Output: fmt.Sprintf("I performed the edits... here is the git diff:\n\n%s", diff),
		Metadata: map[string]any{
			"file":         path,
			"replacements": count,
			"additions":    additions,
			"deletions":    deletions,
		},
	}, nil
}

// fuzzyReplace attempts normalized and then similarity-based matching
// when the exact oldString cannot be found verbatim.
func (t *CodeEditingTool) fuzzyReplace(text string, params CodeEditingInput, toolCtx *Context) (*Result, error) {
	normalizedOld := normalizeLineEndings(params.OldString)
	normalizedText := normalizeLineEndings(text)

	if strings.Contains(normalizedText, normalizedOld) {
		newText := strings.Replace(normalizedText, normalizedOld, params.NewString, 1)
		return t.apply(params.FilePath, text, newText, 1, toolCtx)
	}

	match, similarity := findBestMatch(text, params.OldString)
	if match != "" && similarity >= 0.7 {
		newText := strings.Replace(text, match, params.NewString, 1)
		return t.apply(params.FilePath, text, newText, 1, toolCtx)
	}

	return nil, fmt.Errorf("oldString not found in file; the content may have changed or the string doesn't exist")
}

func (t *CodeEditingTool) publish(path string, toolCtx *Context) {
	if toolCtx != nil && toolCtx.SessionID != "" {
		event.Publish(event.Event{
			Type: event.FileEdited,
			Data: event.FileEditedData{File: path},
		})
	}
}

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// findBestMatch finds the substring most similar to target.
func findBestMatch(text, target string) (string, float64) {
	lines := strings.Split(text, "\n")
	targetLines := strings.Split(target, "\n")

	if len(targetLines) == 1 {
		bestMatch := ""
		bestSimilarity := 0.0
		for _, line := range lines {
			sim := similarity(line, target)
			if sim > bestSimilarity {
				bestSimilarity = sim
				bestMatch = line
			}
		}
		return bestMatch, bestSimilarity
	}

	targetLen := len(targetLines)
	bestMatch := ""
	bestSimilarity := 0.0
	for i := 0; i <= len(lines)-targetLen; i++ {
		block := strings.Join(lines[i:i+targetLen], "\n")
		sim := similarity(block, target)
		if sim > bestSimilarity {
			bestSimilarity = sim
			bestMatch = block
		}
	}
	return bestMatch, bestSimilarity
}

// similarity calculates normalized Levenshtein similarity.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) > 10000 || len(b) > 10000 {
		maxLen := max(len(a), len(b))
		minLen := min(len(a), len(b))
		return float64(minLen) / float64(maxLen)
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := max(len(a), len(b))
	return 1.0 - float64(dist)/float64(maxLen)
}

func (t *CodeEditingTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
