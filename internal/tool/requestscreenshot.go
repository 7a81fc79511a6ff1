package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/internal/editorbridge"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const requestScreenshotDescription = `Captures a screenshot of the running application through the editor bridge.

Usage:
- Takes no input
- Only useful when the host editor has a visual surface to capture
  (e.g. a running dev server preview); returns a clear message instead
  of an error when the host cannot support it`

// RequestScreenshotTool asks the editor bridge for a screenshot of the
// running application, so the driver can see what a UI change actually
// produced.
type RequestScreenshotTool struct {
	bridge editorbridge.Bridge
}

// NewRequestScreenshotTool creates a new request_screenshot tool.
func NewRequestScreenshotTool(bridge editorbridge.Bridge) *RequestScreenshotTool {
	return &RequestScreenshotTool{bridge: bridge}
}

func (t *RequestScreenshotTool) ID() string          { return string(types.ToolRequestScreenshot) }
func (t *RequestScreenshotTool) Description() string { return requestScreenshotDescription }

func (t *RequestScreenshotTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *RequestScreenshotTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	if t.bridge == nil {
		return &Result{
			Title:  "Screenshot unavailable",
			Output: "No editor bridge is configured for this session; screenshots are not available.",
		}, nil
	}

	dataURL, err := t.bridge.TakeScreenshot(ctx)
	if err != nil {
		if errors.Is(err, editorbridge.ErrUnsupported) {
			return &Result{
				Title:  "Screenshot unavailable",
				Output: "The current host has no visual surface to capture.",
			}, nil
		}
		return nil, fmt.Errorf("request screenshot: %w", err)
	}

	return &Result{
		Title:  "Screenshot captured",
		Output: "Screenshot captured successfully",
		Attachments: []Attachment{{
			MediaType: "image/png",
			URL:       dataURL,
		}},
	}, nil
}

func (t *RequestScreenshotTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
