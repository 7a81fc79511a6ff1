package driver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentic-session/orchestrator/internal/tool"
)

// newTestToolRegistry builds a registry of no-op tools identified by
// ids, for tests that only care about filtering/dispatch plumbing.
func newTestToolRegistry(t *testing.T, ids ...string) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry(t.TempDir(), nil)
	for _, id := range ids {
		id := id
		reg.Register(tool.NewBaseTool(id, "test tool "+id, json.RawMessage(`{"type":"object"}`),
			func(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
				return &tool.Result{Output: "ok: " + id}, nil
			}))
	}
	return reg
}
