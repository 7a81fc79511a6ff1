package driver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/agentic-session/orchestrator/internal/agent"
	"github.com/agentic-session/orchestrator/internal/logging"
	"github.com/agentic-session/orchestrator/internal/permission"
	"github.com/agentic-session/orchestrator/internal/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// dispatch records outcome's tool invocation as an AgentChat exchange,
// runs permission and doom-loop checks, executes the tool, and records
// the observation as a ToolOutput exchange. It returns true once a
// terminal tool (AskFollowupQuestions, AttemptCompletion) has fired,
// signaling the outer driver loop to stop.
func (d *Driver) dispatch(ctx context.Context, abortCh chan struct{}, sess *types.Session, ag *agent.Agent, parentExchangeID string, out *outcome) (terminal bool, err error) {
	toolUseID := out.toolUseID
	if toolUseID == "" {
		toolUseID = ulid.Make().String()
	}

	toolExchangeID, err := d.cfg.SessionService.AppendAgentToolUse(ctx, sess, parentExchangeID, out.toolKind, out.parameters, out.thinking, toolUseID, out.usage)
	if err != nil {
		return false, fmt.Errorf("append tool use: %w", err)
	}

	if out.toolKind.IsTerminal() {
		return d.dispatchTerminal(ctx, sess, ag, toolExchangeID, toolUseID, out)
	}

	if err := d.checkPermission(ctx, sess.ID, toolExchangeID, toolUseID, ag, out); err != nil {
		if permission.IsRejectedError(err) {
			_, appendErr := d.cfg.SessionService.AppendToolOutput(ctx, sess, toolUseID, out.toolKind, "Permission denied: "+err.Error(), types.UserContext{})
			return false, appendErr
		}
		return false, err
	}

	if d.cfg.DoomLoop != nil && d.cfg.DoomLoop.Check(sess.ID, string(out.toolKind), string(out.parameters)) {
		_, appendErr := d.cfg.SessionService.AppendToolOutput(ctx, sess, toolUseID, out.toolKind, "Repeated identical tool call detected; stopping to avoid an infinite loop.", types.UserContext{})
		return true, appendErr
	}

	t, ok := d.cfg.ToolRegistry.Get(string(out.toolKind))
	if !ok {
		_, appendErr := d.cfg.SessionService.AppendToolOutput(ctx, sess, toolUseID, out.toolKind, fmt.Sprintf("unknown tool %q", out.toolKind), types.UserContext{})
		return false, appendErr
	}

	agentName := ""
	if ag != nil {
		agentName = ag.Name
	}
	toolCtx := &tool.Context{
		SessionID: sess.ID,
		MessageID: toolExchangeID,
		CallID:    toolUseID,
		Agent:     agentName,
		WorkDir:   sess.Directory,
		ToolKind:  out.toolKind,
		AbortCh:   abortCh,
	}

	result, execErr := t.Execute(ctx, out.parameters, toolCtx)

	if toolCtx.IsAborted() {
		// Cancelled mid-flight: the exchange log is left exactly as it
		// was before the tool ran, but the action node still records the
		// cancellation so it's visible in reasoning summaries.
		if markErr := d.cfg.SessionService.MarkActionCancelled(ctx, sess, toolUseID, ErrCancelled.Error()); markErr != nil {
			logging.Warn().Str("session_id", sess.ID).Str("tool_use_id", toolUseID).Err(markErr).Msg("failed to mark action cancelled")
		}
		return false, ErrCancelled
	}

	observation := ""
	switch {
	case execErr != nil:
		observation = "Error: " + execErr.Error()
	case result != nil:
		observation = result.Output
	}

	if _, err := d.cfg.SessionService.AppendToolOutput(ctx, sess, toolUseID, out.toolKind, observation, types.UserContext{}); err != nil {
		return false, fmt.Errorf("append tool output: %w", err)
	}

	return false, nil
}

// dispatchTerminal executes a terminal tool (AskFollowupQuestions,
// AttemptCompletion) and records its observation directly on the
// action node — terminal tools never get a ToolOutput exchange, since
// the question or completion text already lives on the ToolUse
// exchange itself, and they end the driver loop regardless of outcome.
func (d *Driver) dispatchTerminal(ctx context.Context, sess *types.Session, ag *agent.Agent, toolExchangeID, toolUseID string, out *outcome) (bool, error) {
	t, ok := d.cfg.ToolRegistry.Get(string(out.toolKind))
	if !ok {
		if err := d.cfg.SessionService.MarkActionTerminal(ctx, sess, toolUseID, fmt.Sprintf("unknown tool %q", out.toolKind)); err != nil {
			return true, fmt.Errorf("mark action terminal: %w", err)
		}
		return true, nil
	}

	agentName := ""
	if ag != nil {
		agentName = ag.Name
	}
	toolCtx := &tool.Context{
		SessionID: sess.ID,
		MessageID: toolExchangeID,
		CallID:    toolUseID,
		Agent:     agentName,
		WorkDir:   sess.Directory,
		ToolKind:  out.toolKind,
	}

	result, execErr := t.Execute(ctx, out.parameters, toolCtx)

	observation := ""
	switch {
	case execErr != nil:
		observation = "Error: " + execErr.Error()
	case result != nil:
		observation = result.Output
	}

	if err := d.cfg.SessionService.MarkActionTerminal(ctx, sess, toolUseID, observation); err != nil {
		return true, fmt.Errorf("mark action terminal: %w", err)
	}
	return true, nil
}

// checkPermission resolves the agent's configured action for this
// tool's permission type and enforces it through the shared checker.
func (d *Driver) checkPermission(ctx context.Context, sessionID, exchangeID, toolUseID string, ag *agent.Agent, out *outcome) error {
	if d.cfg.PermissionChecker == nil || ag == nil {
		return nil
	}

	permType, pattern := permissionTypeFor(out.toolKind, out.parameters)
	if permType == "" {
		return nil
	}

	action := ag.GetPermission(permType)
	if permType == permission.PermBash {
		action = ag.CheckBashPermission(pattern)
	}

	req := permission.Request{
		Type:      permType,
		SessionID: sessionID,
		MessageID: exchangeID,
		CallID:    toolUseID,
		Title:     fmt.Sprintf("%s: %s", out.toolKind, pattern),
	}
	if pattern != "" {
		req.Pattern = []string{pattern}
	}

	return d.cfg.PermissionChecker.Check(ctx, req, action)
}

// permissionTypeFor maps a tool kind to the permission type that
// gates it, and extracts the pattern (bash command, file path) the
// checker matches against.
func permissionTypeFor(kind types.ToolKind, params []byte) (permission.PermissionType, string) {
	switch kind {
	case types.ToolTerminalCommand:
		return permission.PermBash, extractJSONField(params, "command")
	case types.ToolCodeEditing:
		return permission.PermEdit, extractJSONField(params, "path")
	default:
		return "", ""
	}
}

// extractJSONField reads a single string field out of a raw JSON
// object without requiring a typed struct for every tool's parameters.
func extractJSONField(raw []byte, field string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	val, ok := obj[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		return ""
	}
	return s
}
