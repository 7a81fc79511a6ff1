package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/internal/lsp"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const lspDiagnosticsDescription = `Reports compiler/language-server diagnostics for a file.

Usage:
- filePath must be an absolute path to a source file
- Opens the file against its language server and returns errors, warnings, and hints
- Returns no diagnostics if no language server is configured for the file's extension`

// LSPDiagnosticsTool surfaces language server diagnostics for a file.
type LSPDiagnosticsTool struct {
	client *lsp.Client
}

// LSPDiagnosticsInput is the input for the lsp_diagnostics tool.
type LSPDiagnosticsInput struct {
	FilePath string `json:"filePath"`
}

// NewLSPDiagnosticsTool creates a new LSP diagnostics tool.
func NewLSPDiagnosticsTool(client *lsp.Client) *LSPDiagnosticsTool {
	return &LSPDiagnosticsTool{client: client}
}

func (t *LSPDiagnosticsTool) ID() string          { return string(types.ToolLSPDiagnostics) }
func (t *LSPDiagnosticsTool) Description() string { return lspDiagnosticsDescription }

func (t *LSPDiagnosticsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {
				"type": "string",
				"description": "The absolute path to the file to check"
			}
		},
		"required": ["filePath"]
	}`)
}

func severityLabel(sev int) string {
	switch sev {
	case lsp.DiagnosticSeverityError:
		return "error"
	case lsp.DiagnosticSeverityWarning:
		return "warning"
	case lsp.DiagnosticSeverityInformation:
		return "info"
	default:
		return "hint"
	}
}

func (t *LSPDiagnosticsTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params LSPDiagnosticsInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	if t.client == nil || t.client.IsDisabled() {
		return &Result{
			Title:  "LSP diagnostics",
			Output: "No language server configured",
		}, nil
	}

	diags, err := t.client.Diagnostics(ctx, params.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch diagnostics: %w", err)
	}

	if len(diags) == 0 {
		return &Result{
			Title:  fmt.Sprintf("No diagnostics for %s", params.FilePath),
			Output: "No diagnostics reported",
		}, nil
	}

	var sb strings.Builder
	for _, d := range diags {
		fmt.Fprintf(&sb, "%s:%d:%d: %s: %s\n",
			params.FilePath, d.Range.Start.Line+1, d.Range.Start.Character+1,
			severityLabel(d.Severity), d.Message)
	}

	return &Result{
		Title:  fmt.Sprintf("%d diagnostic(s) in %s", len(diags), params.FilePath),
		Output: sb.String(),
		Metadata: map[string]any{
			"file":  params.FilePath,
			"count": len(diags),
		},
	}, nil
}

func (t *LSPDiagnosticsTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
