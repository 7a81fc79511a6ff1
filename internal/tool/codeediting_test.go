package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCodeEditingTool_Create(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewCodeEditingTool(tmpDir)
	ctx := context.Background()
	toolCtx := testContext()

	target := filepath.Join(tmpDir, "new.txt")
	input := json.RawMessage(`{"filePath": "` + target + `", "newString": "hello\n"}`)
	result, err := tool.Execute(ctx, input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("file was not created: %v", err)
	}
	if string(content) != "hello\n" {
		t.Errorf("unexpected file content %q", content)
	}
	if !strings.Contains(result.Output, "git diff") {
		t.Errorf("expected output to mention the diff, got %q", result.Output)
	}
}

func TestCodeEditingTool_CreateAlreadyExists(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "exists.txt")
	if err := os.WriteFile(target, []byte("already here"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tool := NewCodeEditingTool(tmpDir)
	input := json.RawMessage(`{"filePath": "` + target + `", "newString": "new content"}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err == nil {
		t.Error("expected error creating an already-existing file")
	}
}

func TestCodeEditingTool_Replace(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "replace.txt")
	if err := os.WriteFile(target, []byte("foo bar baz"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tool := NewCodeEditingTool(tmpDir)
	input := json.RawMessage(`{"filePath": "` + target + `", "oldString": "bar", "newString": "qux"}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	content, _ := os.ReadFile(target)
	if string(content) != "foo qux baz" {
		t.Errorf("unexpected result %q", content)
	}
}

func TestCodeEditingTool_ReplaceAmbiguous(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "dup.txt")
	if err := os.WriteFile(target, []byte("x x x"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tool := NewCodeEditingTool(tmpDir)
	input := json.RawMessage(`{"filePath": "` + target + `", "oldString": "x", "newString": "y"}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err == nil {
		t.Error("expected error for ambiguous oldString match")
	}
}

func TestCodeEditingTool_ReplaceAll(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "dup2.txt")
	if err := os.WriteFile(target, []byte("x x x"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tool := NewCodeEditingTool(tmpDir)
	input := json.RawMessage(`{"filePath": "` + target + `", "oldString": "x", "newString": "y", "replaceAll": true}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	content, _ := os.ReadFile(target)
	if string(content) != "y y y" {
		t.Errorf("unexpected result %q", content)
	}
}

func TestCodeEditingTool_OldStringNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "missing.txt")
	if err := os.WriteFile(target, []byte("unrelated content"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tool := NewCodeEditingTool(tmpDir)
	input := json.RawMessage(`{"filePath": "` + target + `", "oldString": "nowhere to be found", "newString": "y"}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err == nil {
		t.Error("expected error when oldString cannot be matched even fuzzily")
	}
}

func TestCodeEditingTool_ID(t *testing.T) {
	tool := NewCodeEditingTool("/tmp")
	if tool.ID() != "code_editing" {
		t.Errorf("Expected ID 'code_editing', got %q", tool.ID())
	}
}
