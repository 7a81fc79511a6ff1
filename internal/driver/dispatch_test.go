package driver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentic-session/orchestrator/internal/permission"
	"github.com/agentic-session/orchestrator/internal/session"
	"github.com/agentic-session/orchestrator/internal/storage"
	"github.com/agentic-session/orchestrator/internal/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

func newTestDriver(t *testing.T, toolIDs ...string) (*Driver, *session.Service) {
	t.Helper()
	store := storage.New(t.TempDir())
	svc := session.NewService(store, nil)
	reg := newTestToolRegistry(t, toolIDs...)

	d := New(Config{
		ToolRegistry:      reg,
		SessionService:    svc,
		PermissionChecker: permission.NewChecker(),
		DoomLoop:          permission.NewDoomLoopDetector(),
	})
	return d, svc
}

func TestDispatch_NonTerminalToolAppendsOutput(t *testing.T) {
	ctx := context.Background()
	d, svc := newTestDriver(t, "open_file")

	sess, err := svc.Create(ctx, "/tmp/proj", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	parentID, err := svc.AppendHuman(ctx, sess, "read main.go", types.UserContext{}, nil)
	if err != nil {
		t.Fatalf("AppendHuman() error = %v", err)
	}

	abortCh := make(chan struct{})
	out := &outcome{
		toolKind:   types.ToolOpenFile,
		parameters: json.RawMessage(`{"path":"main.go"}`),
		toolUseID:  "call-1",
	}

	terminal, err := d.dispatch(ctx, abortCh, sess, nil, parentID, out)
	if err != nil {
		t.Fatalf("dispatch() error = %v", err)
	}
	if terminal {
		t.Fatal("open_file should not be terminal")
	}

	last := sess.Exchanges[len(sess.Exchanges)-1]
	if last.Kind != types.KindToolOutput {
		t.Fatalf("last exchange kind = %v, want tool_output", last.Kind)
	}
	if last.ToolOutput.Observation != "ok: open_file" {
		t.Errorf("Observation = %q", last.ToolOutput.Observation)
	}
}

func TestDispatch_TerminalToolStopsLoop(t *testing.T) {
	ctx := context.Background()
	d, svc := newTestDriver(t, "attempt_completion")

	sess, _ := svc.Create(ctx, "/tmp/proj", "")
	parentID, _ := svc.AppendHuman(ctx, sess, "wrap up", types.UserContext{}, nil)

	out := &outcome{
		toolKind:   types.ToolAttemptCompletion,
		parameters: json.RawMessage(`{}`),
		toolUseID:  "call-2",
	}

	terminal, err := d.dispatch(ctx, make(chan struct{}), sess, nil, parentID, out)
	if err != nil {
		t.Fatalf("dispatch() error = %v", err)
	}
	if !terminal {
		t.Fatal("attempt_completion should be terminal")
	}

	last := sess.Exchanges[len(sess.Exchanges)-1]
	if last.Kind != types.KindAgentChat || last.Agent.ReplyKind != types.ReplyToolUse {
		t.Errorf("last exchange = %+v", last)
	}

	node := sess.ActionNodes[len(sess.ActionNodes)-1]
	if !node.IsTerminal {
		t.Error("expected action node to be marked terminal")
	}
	if node.Observation != "ok: attempt_completion" {
		t.Errorf("action node observation = %q", node.Observation)
	}
	if node.ToolOutputExchangeID != "" {
		t.Errorf("terminal tool should not get a ToolOutput exchange, got %q", node.ToolOutputExchangeID)
	}
}

func TestDispatch_CancelledToolRecordsErrorObservation(t *testing.T) {
	ctx := context.Background()
	store := storage.New(t.TempDir())
	svc := session.NewService(store, nil)

	blockingID := "blocking_tool"
	reg := tool.NewRegistry(t.TempDir(), nil)
	reg.Register(tool.NewBaseTool(blockingID, "blocks until aborted", json.RawMessage(`{"type":"object"}`),
		func(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
			<-toolCtx.AbortCh
			return nil, ctx.Err()
		}))

	d := New(Config{
		ToolRegistry:      reg,
		SessionService:    svc,
		PermissionChecker: permission.NewChecker(),
		DoomLoop:          permission.NewDoomLoopDetector(),
	})

	sess, _ := svc.Create(ctx, "/tmp/proj", "")
	parentID, _ := svc.AppendHuman(ctx, sess, "run something long", types.UserContext{}, nil)

	abortCh := make(chan struct{})
	out := &outcome{toolKind: types.ToolKind(blockingID), parameters: json.RawMessage(`{}`), toolUseID: "call-cancel"}

	go close(abortCh)

	_, err := d.dispatch(ctx, abortCh, sess, nil, parentID, out)
	if err != ErrCancelled {
		t.Fatalf("dispatch() error = %v, want ErrCancelled", err)
	}

	node := sess.ActionNodes[len(sess.ActionNodes)-1]
	if node.ErrorObservation == "" {
		t.Error("expected action node to carry a cancellation error observation")
	}
	for _, ex := range sess.Exchanges {
		if ex.Kind == types.KindToolOutput {
			t.Error("cancelled tool should not append a ToolOutput exchange")
		}
	}
}

func TestDispatch_UnknownToolRecordsError(t *testing.T) {
	ctx := context.Background()
	d, svc := newTestDriver(t)

	sess, _ := svc.Create(ctx, "/tmp/proj", "")
	parentID, _ := svc.AppendHuman(ctx, sess, "do something", types.UserContext{}, nil)

	out := &outcome{toolKind: types.ToolKind("nonexistent"), parameters: json.RawMessage(`{}`), toolUseID: "call-3"}

	terminal, err := d.dispatch(ctx, make(chan struct{}), sess, nil, parentID, out)
	if err != nil {
		t.Fatalf("dispatch() error = %v", err)
	}
	if terminal {
		t.Fatal("unknown tool should not be terminal")
	}

	last := sess.Exchanges[len(sess.Exchanges)-1]
	if last.Kind != types.KindToolOutput {
		t.Fatalf("last exchange kind = %v", last.Kind)
	}
}

func TestDispatch_DoomLoopStopsAfterThreshold(t *testing.T) {
	ctx := context.Background()
	d, svc := newTestDriver(t, "open_file")

	sess, _ := svc.Create(ctx, "/tmp/proj", "")
	parentID, _ := svc.AppendHuman(ctx, sess, "read repeatedly", types.UserContext{}, nil)

	params := json.RawMessage(`{"path":"same.go"}`)
	var lastTerminal bool
	for i := 0; i < permission.DoomLoopThreshold+1; i++ {
		out := &outcome{toolKind: types.ToolOpenFile, parameters: params, toolUseID: "same-call"}
		terminal, err := d.dispatch(ctx, make(chan struct{}), sess, nil, parentID, out)
		if err != nil {
			t.Fatalf("dispatch() iteration %d error = %v", i, err)
		}
		lastTerminal = terminal
	}

	if !lastTerminal {
		t.Fatal("expected doom loop detection to stop the outer loop")
	}
}

func TestExtractJSONField(t *testing.T) {
	raw := json.RawMessage(`{"command":"ls -la","other":1}`)
	if got := extractJSONField(raw, "command"); got != "ls -la" {
		t.Errorf("extractJSONField() = %q", got)
	}
	if got := extractJSONField(raw, "missing"); got != "" {
		t.Errorf("extractJSONField(missing) = %q, want empty", got)
	}
}

func TestPermissionTypeFor(t *testing.T) {
	permType, pattern := permissionTypeFor(types.ToolTerminalCommand, json.RawMessage(`{"command":"rm -rf /"}`))
	if permType != permission.PermBash || pattern != "rm -rf /" {
		t.Errorf("permissionTypeFor(terminal_command) = %v, %q", permType, pattern)
	}

	permType, _ = permissionTypeFor(types.ToolOpenFile, json.RawMessage(`{}`))
	if permType != "" {
		t.Errorf("permissionTypeFor(open_file) = %v, want empty", permType)
	}
}
