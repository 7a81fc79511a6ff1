package tool

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func hasRipgrep() bool {
	_, err := exec.LookPath("rg")
	return err == nil
}

func TestGlobTool_Execute(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()

	os.WriteFile(filepath.Join(tmpDir, "test1.go"), []byte(""), 0644)
	os.WriteFile(filepath.Join(tmpDir, "test2.go"), []byte(""), 0644)
	os.WriteFile(filepath.Join(tmpDir, "test.txt"), []byte(""), 0644)
	os.Mkdir(filepath.Join(tmpDir, "sub"), 0755)
	os.WriteFile(filepath.Join(tmpDir, "sub", "nested.go"), []byte(""), 0644)

	tool := NewGlobTool(tmpDir)
	ctx := context.Background()
	toolCtx := testContext()

	input := json.RawMessage(`{"pattern": "**/*.go", "root": "` + tmpDir + `"}`)
	result, err := tool.Execute(ctx, input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, ".go") {
		t.Error("Output should contain .go files")
	}
}

func TestGlobTool_NoMatches(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()

	os.WriteFile(filepath.Join(tmpDir, "test.txt"), []byte(""), 0644)

	tool := NewGlobTool(tmpDir)
	ctx := context.Background()
	toolCtx := testContext()

	input := json.RawMessage(`{"pattern": "**/*.go", "root": "` + tmpDir + `"}`)
	result, err := tool.Execute(ctx, input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Metadata["count"] != 0 {
		t.Errorf("Expected 0 matches, got %v", result.Metadata["count"])
	}
	if result.Output != "0 results found" {
		t.Errorf("Expected '0 results found', got %q", result.Output)
	}
}

func TestGlobTool_Properties(t *testing.T) {
	tool := NewGlobTool("/tmp")

	if tool.ID() != "find_file" {
		t.Errorf("Expected ID 'find_file', got %q", tool.ID())
	}

	desc := tool.Description()
	if !strings.Contains(desc, "pattern") {
		t.Error("Description should mention 'pattern'")
	}

	params := tool.Parameters()
	if len(params) == 0 {
		t.Error("Parameters should not be empty")
	}

	var schema map[string]any
	if err := json.Unmarshal(params, &schema); err != nil {
		t.Errorf("Parameters should be valid JSON: %v", err)
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Error("Schema should have properties")
	}
	if _, ok := props["pattern"]; !ok {
		t.Error("Schema should have pattern property")
	}
	if _, ok := props["root"]; !ok {
		t.Error("Schema should have root property")
	}
}

func TestGlobTool_InvalidInput(t *testing.T) {
	tool := NewGlobTool("/tmp")
	ctx := context.Background()
	toolCtx := testContext()

	input := json.RawMessage(`{invalid json}`)
	_, err := tool.Execute(ctx, input, toolCtx)
	if err == nil {
		t.Error("Expected error for invalid JSON input")
	}
}

func TestGlobTool_RelativeRoot(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()

	subDir := filepath.Join(tmpDir, "subdir")
	os.Mkdir(subDir, 0755)
	os.WriteFile(filepath.Join(subDir, "test.go"), []byte(""), 0644)

	tool := NewGlobTool(tmpDir)
	ctx := context.Background()
	toolCtx := testContext()
	toolCtx.WorkDir = tmpDir

	input := json.RawMessage(`{"pattern": "*.go", "root": "subdir"}`)
	result, err := tool.Execute(ctx, input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "test.go") {
		t.Error("Output should contain 'test.go'")
	}
}

func TestGlobTool_DefaultRoot(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()

	os.WriteFile(filepath.Join(tmpDir, "default.go"), []byte(""), 0644)

	tool := NewGlobTool(tmpDir)
	ctx := context.Background()
	toolCtx := testContext()
	toolCtx.WorkDir = tmpDir

	input := json.RawMessage(`{"pattern": "*.go"}`)
	result, err := tool.Execute(ctx, input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "default.go") {
		t.Error("Output should contain 'default.go'")
	}
}

func TestGlobTool_Metadata(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()

	os.WriteFile(filepath.Join(tmpDir, "file1.go"), []byte(""), 0644)
	os.WriteFile(filepath.Join(tmpDir, "file2.go"), []byte(""), 0644)

	tool := NewGlobTool(tmpDir)
	ctx := context.Background()
	toolCtx := testContext()

	input := json.RawMessage(`{"pattern": "*.go", "root": "` + tmpDir + `"}`)
	result, err := tool.Execute(ctx, input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Metadata["pattern"] != "*.go" {
		t.Errorf("Expected pattern '*.go' in metadata, got %v", result.Metadata["pattern"])
	}
	if result.Metadata["count"] != 2 {
		t.Errorf("Expected 2 files in metadata, got %v", result.Metadata["count"])
	}
}

func TestGlobTool_EinoTool(t *testing.T) {
	tool := NewGlobTool("/tmp")
	einoTool := tool.EinoTool()

	if einoTool == nil {
		t.Error("EinoTool should not return nil")
	}

	info, err := einoTool.Info(context.Background())
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}

	if info.Name != "find_file" {
		t.Errorf("Expected name 'find_file', got %q", info.Name)
	}
}

func TestGlobTool_AbsoluteRoot(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()

	os.WriteFile(filepath.Join(tmpDir, "abs.go"), []byte(""), 0644)

	tool := NewGlobTool("/some/other/dir")
	ctx := context.Background()
	toolCtx := testContext()

	input := json.RawMessage(`{"pattern": "*.go", "root": "` + tmpDir + `"}`)
	result, err := tool.Execute(ctx, input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "abs.go") {
		t.Error("Output should contain 'abs.go'")
	}
}
