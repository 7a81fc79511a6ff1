package tool

import (
	"context"
	"encoding/json"
	"testing"
)

func TestThinkingTool_Execute(t *testing.T) {
	tool := NewThinkingTool()
	input := json.RawMessage(`{"thought": "checking the failing test first"}`)

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "Your thought has been logged." {
		t.Errorf("unexpected output %q", result.Output)
	}
	if result.Metadata["thought"] != "checking the failing test first" {
		t.Errorf("expected thought preserved in metadata, got %v", result.Metadata["thought"])
	}
}

func TestThinkingTool_ID(t *testing.T) {
	if (&ThinkingTool{}).ID() != "thinking" {
		t.Errorf("Expected ID 'thinking', got %q", (&ThinkingTool{}).ID())
	}
}
