package driver

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/agentic-session/orchestrator/internal/agent"
	"github.com/agentic-session/orchestrator/internal/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// toEinoMessages projects a session's conversation sequence into Eino
// chat messages. jsonMode carries structured ToolUse/ToolReturn
// records across as proper tool-call/tool-result messages instead of
// the text-mode <thinking>/Observation rendering.
func toEinoMessages(sequence []types.ChatMessage, systemPrompt string, jsonMode bool) []*schema.Message {
	out := make([]*schema.Message, 0, len(sequence)+1)
	if systemPrompt != "" {
		out = append(out, &schema.Message{Role: schema.System, Content: systemPrompt})
	}

	for _, cm := range sequence {
		role := schema.User
		if cm.Role == "assistant" {
			role = schema.Assistant
		}

		msg := &schema.Message{Role: role, Content: cm.Text}

		if jsonMode && cm.ToolUse != nil {
			msg.ToolCalls = []schema.ToolCall{{
				ID: cm.ToolUse.ToolUseID,
				Function: schema.FunctionCall{
					Name:      string(cm.ToolUse.ToolKind),
					Arguments: string(cm.ToolUse.Parameters),
				},
			}}
		}

		if jsonMode && cm.ToolReturn != nil {
			msg.Role = schema.Tool
			msg.ToolCallID = cm.ToolReturn.ToolUseID
			msg.Content = cm.ToolReturn.Observation
		}

		out = append(out, msg)
	}

	return out
}

// toolInfosForAgent builds the Eino tool schema list the JSON-mode
// provider call is given: one entry per registered tool the agent
// permits (agent.ToolEnabled) and the session enables
// (types.Session.EnabledTools, when set).
func toolInfosForAgent(reg *tool.Registry, ag *agent.Agent, enabled map[types.ToolKind]bool) []*schema.ToolInfo {
	var infos []*schema.ToolInfo
	for _, t := range reg.List() {
		if ag != nil && !ag.ToolEnabled(t.ID()) {
			continue
		}
		if len(enabled) > 0 && !enabled[types.ToolKind(t.ID())] {
			continue
		}

		var params map[string]*schema.ParameterInfo
		if raw := t.Parameters(); len(raw) > 0 {
			params = jsonSchemaToParams(raw)
		}

		infos = append(infos, &schema.ToolInfo{
			Name:        t.ID(),
			Desc:        t.Description(),
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

// jsonSchemaToParams is the same JSON-Schema-to-Eino-ParameterInfo
// translation internal/tool and internal/provider each keep a copy of;
// the driver needs its own because it builds the tool list from
// agent/session filtering rather than the full registry.
func jsonSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var parsed struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schemaJSON, &parsed); err != nil {
		return nil
	}

	required := make(map[string]bool, len(parsed.Required))
	for _, r := range parsed.Required {
		required[r] = true
	}

	params := make(map[string]*schema.ParameterInfo, len(parsed.Properties))
	for name, prop := range parsed.Properties {
		t := schema.String
		switch prop.Type {
		case "integer":
			t = schema.Integer
		case "number":
			t = schema.Number
		case "boolean":
			t = schema.Boolean
		case "array":
			t = schema.Array
		case "object":
			t = schema.Object
		}
		params[name] = &schema.ParameterInfo{Type: t, Desc: prop.Description, Required: required[name]}
	}
	return params
}
