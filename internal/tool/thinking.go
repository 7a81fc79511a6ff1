package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const thinkingDescription = `Records a scratch-pad thought without taking any action.

Usage:
- thought is required: the reasoning step to record
- Use this to think through a problem before choosing the next real
  tool, without that reasoning being mistaken for an action`

// ThinkingInput is the input for the thinking tool.
type ThinkingInput struct {
	Thought string `json:"thought"`
}

// ThinkingTool is a side-effect-free tool: its only job is to carry the
// model's stated reasoning into an ActionNode so it's visible in the
// session log, without touching the filesystem or process state.
type ThinkingTool struct{}

// NewThinkingTool creates a new thinking tool.
func NewThinkingTool() *ThinkingTool { return &ThinkingTool{} }

func (t *ThinkingTool) ID() string          { return string(types.ToolThinking) }
func (t *ThinkingTool) Description() string { return thinkingDescription }

func (t *ThinkingTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"thought": {
				"type": "string",
				"description": "The reasoning step to record"
			}
		},
		"required": ["thought"]
	}`)
}

func (t *ThinkingTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params ThinkingInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return &Result{
		Title:  "Thought recorded",
		Output: "Your thought has been logged.",
		Metadata: map[string]any{
			"thought": params.Thought,
		},
	}, nil
}

func (t *ThinkingTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
