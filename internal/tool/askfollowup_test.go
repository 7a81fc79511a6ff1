package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentic-session/orchestrator/pkg/types"
)

func TestAskFollowupQuestionsTool_Execute(t *testing.T) {
	tool := NewAskFollowupQuestionsTool()
	input := json.RawMessage(`{"question": "which config file should I edit?", "options": ["dev.yaml", "prod.yaml"]}`)

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "which config file should I edit?" {
		t.Errorf("expected observation to be the question itself, got %q", result.Output)
	}
}

func TestAskFollowupQuestionsTool_IsTerminal(t *testing.T) {
	if !types.ToolAskFollowupQuestions.IsTerminal() {
		t.Error("ask_followup_questions must be a terminal tool")
	}
}
