package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentic-session/orchestrator/pkg/types"
)

func TestAttemptCompletionTool_Execute(t *testing.T) {
	tool := NewAttemptCompletionTool()
	input := json.RawMessage(`{"summary": "added the missing validation", "command": "go test ./..."}`)

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "added the missing validation" {
		t.Errorf("expected observation to be the summary, got %q", result.Output)
	}
}

func TestAttemptCompletionTool_IsTerminal(t *testing.T) {
	if !types.ToolAttemptCompletion.IsTerminal() {
		t.Error("attempt_completion must be a terminal tool")
	}
}
