package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const attemptCompletionDescription = `Declares the current task complete and summarizes the result.

Usage:
- summary is required: a final report of what was done
- command is an optional command the user can run to verify the result
  (e.g. a test invocation)
- This is a terminal tool: invoking it ends the driver loop`

// AttemptCompletionInput is the input for the attempt_completion tool.
type AttemptCompletionInput struct {
	Summary string `json:"summary"`
	Command string `json:"command,omitempty"`
}

// AttemptCompletionTool ends the driver loop by declaring the task
// done. ToolKind.IsTerminal reports true for this tool.
type AttemptCompletionTool struct{}

// NewAttemptCompletionTool creates a new attempt_completion tool.
func NewAttemptCompletionTool() *AttemptCompletionTool { return &AttemptCompletionTool{} }

func (t *AttemptCompletionTool) ID() string          { return string(types.ToolAttemptCompletion) }
func (t *AttemptCompletionTool) Description() string { return attemptCompletionDescription }

func (t *AttemptCompletionTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"summary": {
				"type": "string",
				"description": "Final summary of what was accomplished"
			},
			"command": {
				"type": "string",
				"description": "Optional command the user can run to verify the result"
			}
		},
		"required": ["summary"]
	}`)
}

func (t *AttemptCompletionTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params AttemptCompletionInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return &Result{
		Title:  "Task completed",
		Output: params.Summary,
		Metadata: map[string]any{
			"command": params.Command,
		},
	}, nil
}

func (t *AttemptCompletionTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
