package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestTestRunnerTool_FileListPrefix(t *testing.T) {
	tool := NewTestRunnerTool("/tmp")
	input := json.RawMessage(`{"fsFilePaths": ["main.go"]}`)

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "Running tests in files:\nmain.go") {
		t.Errorf("expected file list prefix, got %q", result.Output)
	}
}

func TestTestRunnerTool_RequiresFilePaths(t *testing.T) {
	tool := NewTestRunnerTool("/tmp")
	input := json.RawMessage(`{"fsFilePaths": []}`)

	if _, err := tool.Execute(context.Background(), input, testContext()); err == nil {
		t.Fatal("expected an error for empty fsFilePaths")
	}
}

func TestTestCommandForFiles(t *testing.T) {
	if got := testCommandForFiles([]string{"a.py"}); got != "pytest -q 'a.py'" {
		t.Errorf("python command = %q", got)
	}
	if got := testCommandForFiles([]string{"a.ts"}); got != "npm test -- 'a.ts'" {
		t.Errorf("typescript command = %q", got)
	}
	if got := testCommandForFiles([]string{"a.go"}); got != "go test ./..." {
		t.Errorf("go command = %q", got)
	}
}

func TestShapeTestOutput_UnderThresholdKeepsFull(t *testing.T) {
	shaped := shapeTestOutput("ok\n", []string{"a_test.go"})
	if !strings.Contains(shaped, "Running tests in files:\na_test.go") {
		t.Error("expected file list prefix")
	}
	if !strings.Contains(shaped, "ok") {
		t.Error("expected raw output to be kept under the 50-line threshold")
	}
	if strings.Contains(shaped, "[...test execution...]") {
		t.Error("short output should not be truncated")
	}
}

func TestShapeTestOutput_OverThresholdTruncates(t *testing.T) {
	var lines []string
	for i := 0; i < 150; i++ {
		lines = append(lines, "line")
	}
	lines[149] = "FAIL: something broke"
	shaped := shapeTestOutput(strings.Join(lines, "\n"), []string{"a_test.go", "b_test.go"})

	if !strings.Contains(shaped, "Running tests in files:\na_test.go\nb_test.go") {
		t.Error("expected file list prefix with both files")
	}
	if !strings.Contains(shaped, "[...test execution...]") {
		t.Error("shaped output should carry the literal truncation marker")
	}
	if !strings.Contains(shaped, "FAIL: something broke") {
		t.Error("shaped output should retain the final failing line")
	}
}

func TestTestRunnerTool_ID(t *testing.T) {
	tool := NewTestRunnerTool("/tmp")
	if tool.ID() != "test_runner" {
		t.Errorf("Expected ID 'test_runner', got %q", tool.ID())
	}
}
