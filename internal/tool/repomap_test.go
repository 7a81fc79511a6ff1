package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRepoMapGenerationTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "pkg", "sub"), 0755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "main.go"), []byte("package main"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "pkg", "sub", "sub.go"), []byte("package sub"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tool := NewRepoMapGenerationTool(tmpDir)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`), testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "main.go") {
		t.Errorf("expected tree to mention main.go, got %q", result.Output)
	}
	if !strings.Contains(result.Output, "pkg/") {
		t.Errorf("expected tree to mention pkg/, got %q", result.Output)
	}
}

func TestRepoMapGenerationTool_MaxDepth(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "deep.go"), []byte("package c"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tool := NewRepoMapGenerationTool(tmpDir)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"maxDepth": 1}`), testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Contains(result.Output, "deep.go") {
		t.Errorf("expected maxDepth=1 to stop before deep.go, got %q", result.Output)
	}
}

func TestRepoMapGenerationTool_ID(t *testing.T) {
	tool := NewRepoMapGenerationTool("/tmp")
	if tool.ID() != "repo_map_generation" {
		t.Errorf("Expected ID 'repo_map_generation', got %q", tool.ID())
	}
}
