package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSemanticSearchTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "auth.go"), []byte("func authenticate(token string) error { return nil }"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "unrelated.go"), []byte("package tmpDir"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tool := NewSemanticSearchTool(tmpDir, false)
	input := json.RawMessage(`{"query": "authenticate a user token"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "auth.go") {
		t.Errorf("expected auth.go to be ranked, got %q", result.Output)
	}
}

func TestSemanticSearchTool_MaxResultsWidensWithBigSearch(t *testing.T) {
	small := NewSemanticSearchTool("/tmp", false)
	large := NewSemanticSearchTool("/tmp", true)

	if small.maxResults != 20 {
		t.Errorf("expected default maxResults 20, got %d", small.maxResults)
	}
	if large.maxResults != 50 {
		t.Errorf("expected big_search maxResults 50, got %d", large.maxResults)
	}
}

func TestKeywords_FiltersStopwordsAndShortTokens(t *testing.T) {
	got := keywords("find the auth logic in a file")
	for _, w := range got {
		if w == "the" || w == "in" || w == "a" {
			t.Errorf("stopword %q should have been filtered", w)
		}
	}
}

func TestSemanticSearchTool_ID(t *testing.T) {
	tool := NewSemanticSearchTool("/tmp", false)
	if tool.ID() != "semantic_search" {
		t.Errorf("Expected ID 'semantic_search', got %q", tool.ID())
	}
}
