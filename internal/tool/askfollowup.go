package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const askFollowupDescription = `Asks the user a clarifying question and ends the current turn.

Usage:
- question is required
- options may suggest a small set of likely answers, but the user can
  always respond freely
- This is a terminal tool: invoking it ends the driver loop and waits
  for the next human turn`

// AskFollowupInput is the input for the ask_followup_questions tool.
type AskFollowupInput struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// AskFollowupQuestionsTool lets the agent pause and ask the user for
// clarification instead of guessing. ToolKind.IsTerminal reports true
// for this tool, so the driver stops its loop once it's invoked.
type AskFollowupQuestionsTool struct{}

// NewAskFollowupQuestionsTool creates a new ask_followup_questions tool.
func NewAskFollowupQuestionsTool() *AskFollowupQuestionsTool { return &AskFollowupQuestionsTool{} }

func (t *AskFollowupQuestionsTool) ID() string          { return string(types.ToolAskFollowupQuestions) }
func (t *AskFollowupQuestionsTool) Description() string { return askFollowupDescription }

func (t *AskFollowupQuestionsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"question": {
				"type": "string",
				"description": "The clarifying question to ask the user"
			},
			"options": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Optional suggested answers"
			}
		},
		"required": ["question"]
	}`)
}

func (t *AskFollowupQuestionsTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params AskFollowupInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return &Result{
		Title:  "Question asked",
		Output: params.Question,
		Metadata: map[string]any{
			"options": params.Options,
		},
	}, nil
}

func (t *AskFollowupQuestionsTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
