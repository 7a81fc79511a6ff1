package types

import (
	"encoding/json"
	"fmt"
)

// ExchangeKind discriminates the variant carried by an Exchange.
// SDK compatible: mirrors the tagged-union shape used for Part in the
// legacy message model, extended to the orchestrator's own vocabulary.
type ExchangeKind string

const (
	KindHumanChat ExchangeKind = "human_chat"
	KindAgentChat ExchangeKind = "agent_chat"
	KindToolOutput ExchangeKind = "tool_output"
	KindEdit      ExchangeKind = "edit"
	KindPlan      ExchangeKind = "plan"
)

// AgentReplyKind discriminates the payload of an AgentChat exchange.
type AgentReplyKind string

const (
	ReplyChat    AgentReplyKind = "chat"
	ReplyEdit    AgentReplyKind = "edit"
	ReplyPlan    AgentReplyKind = "plan"
	ReplyToolUse AgentReplyKind = "tool_use"
)

// EditInfoKind discriminates an Edit exchange's request shape.
type EditInfoKind string

const (
	EditAgentic  EditInfoKind = "agentic"
	EditAnchored EditInfoKind = "anchored"
)

// State is the lifecycle state of an Exchange.
type State string

const (
	StateRunning     State = "running"
	StateAccepted    State = "accepted"
	StateRejected    State = "rejected"
	StateCancelled   State = "cancelled"
	StateUserMessage State = "user_message"
)

// ToolKind enumerates the tool kinds the Tool Dispatcher knows how to
// execute. Kept as a plain string type (not an iota) so it round-trips
// through JSON and through the LLM's tool-schema declarations without
// a translation table.
type ToolKind string

const (
	ToolOpenFile                   ToolKind = "open_file"
	ToolListFiles                  ToolKind = "list_files"
	ToolFindFile                   ToolKind = "find_file"
	ToolSearchFileContentWithRegex ToolKind = "search_file_content_with_regex"
	ToolSemanticSearch             ToolKind = "semantic_search"
	ToolTerminalCommand            ToolKind = "terminal_command"
	ToolTestRunner                 ToolKind = "test_runner"
	ToolLSPDiagnostics             ToolKind = "lsp_diagnostics"
	ToolRepoMapGeneration          ToolKind = "repo_map_generation"
	ToolCodeEditing                ToolKind = "code_editing"
	ToolRequestScreenshot          ToolKind = "request_screenshot"
	ToolThinking                   ToolKind = "thinking"
	ToolMcpTool                    ToolKind = "mcp_tool"
	ToolAskFollowupQuestions       ToolKind = "ask_followup_questions"
	ToolAttemptCompletion          ToolKind = "attempt_completion"
)

// IsTerminal reports whether invoking this tool ends the outer driver loop.
func (k ToolKind) IsTerminal() bool {
	return k == ToolAskFollowupQuestions || k == ToolAttemptCompletion
}

// ImageRef is an image attachment carried by a HumanChat, Edit, or
// ToolOutput exchange.
type ImageRef struct {
	MediaType string `json:"mediaType"`
	URL       string `json:"url"` // data: URL or file path
}

// FileRef is a file the user attached to their message as context.
type FileRef struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// VariableRef is a named variable the user supplied as context
// (e.g. a symbol reference resolved by the editor).
type VariableRef struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UserContext is the user-provided context attached to a turn: files,
// images, and variables. Sessions accumulate these into a single
// append-only running context (see Session.GlobalContext); individual
// exchanges carry their own turn-local copy for projection.
type UserContext struct {
	Files     []FileRef     `json:"files,omitempty"`
	Images    []ImageRef    `json:"images,omitempty"`
	Variables []VariableRef `json:"variables,omitempty"`
}

// Merge appends another context's entries onto this one. Never
// removes entries — the merged context reflects everything the agent
// has ever seen, not what is currently visible.
func (c *UserContext) Merge(other UserContext) {
	c.Files = append(c.Files, other.Files...)
	c.Images = append(c.Images, other.Images...)
	c.Variables = append(c.Variables, other.Variables...)
}

// PlanStep is one step of a Plan reply.
type PlanStep struct {
	FilesToEdit []string `json:"filesToEdit"`
	Title       string   `json:"title"`
	Changes     string   `json:"changes"`
}

// HumanChat is a user-authored chat turn.
type HumanChat struct {
	Query   string      `json:"query"`
	Context UserContext `json:"context"`
	Labels  []string    `json:"labels,omitempty"`
}

// ChatReply is a plain assistant chat reply.
type ChatReply struct {
	Text string `json:"text"`
}

// EditReply is an assistant-proposed diff awaiting/holding acceptance.
type EditReply struct {
	Diff     string `json:"diff"`
	Accepted bool   `json:"accepted"`
}

// PlanReply is an assistant-proposed multi-step plan.
type PlanReply struct {
	Steps     []PlanStep `json:"steps"`
	Discarded bool       `json:"discarded"`
}

// ToolUse is the assistant's declared intent to invoke a tool.
type ToolUse struct {
	ToolKind   ToolKind        `json:"toolKind"`
	Parameters json.RawMessage `json:"parameters"`
	Thinking   string          `json:"thinking,omitempty"`
	ToolUseID  string          `json:"toolUseID"`
}

// AgentChat is an agent-authored turn. Exactly one of Chat, Edit,
// Plan, or Tool is populated, selected by ReplyKind.
type AgentChat struct {
	ParentExchangeID string         `json:"parentExchangeID"`
	ReplyKind        AgentReplyKind `json:"replyKind"`
	Chat             *ChatReply     `json:"chat,omitempty"`
	Edit             *EditReply     `json:"edit,omitempty"`
	Plan             *PlanReply     `json:"plan,omitempty"`
	Tool             *ToolUse       `json:"tool,omitempty"`
}

// ToolOutput is the observation produced by executing a ToolUse.
type ToolOutput struct {
	ToolKind    ToolKind    `json:"toolKind"`
	Observation string      `json:"observation"`
	ToolUseID   string      `json:"toolUseID"`
	Images      []ImageRef  `json:"images,omitempty"`
	Context     UserContext `json:"context,omitempty"`
}

// AgenticEditInfo describes a free-form, codebase-search-driven edit request.
type AgenticEditInfo struct {
	Query          string `json:"query"`
	CodebaseSearch bool   `json:"codebaseSearch"`
}

// AnchoredEditInfo describes an edit request anchored to a specific
// file location (used by the Scratch-Pad Reactor's fan-out).
type AnchoredEditInfo struct {
	Query         string `json:"query"`
	FilePath      string `json:"filePath"`
	LineStart     int    `json:"lineStart"`
	LineEnd       int    `json:"lineEnd"`
	SelectionText string `json:"selectionText"`
}

// Edit is a user-authored edit request (agentic or anchored).
type Edit struct {
	InfoKind Kind             `json:"infoKind"`
	Agentic  *AgenticEditInfo `json:"agentic,omitempty"`
	Anchored *AnchoredEditInfo `json:"anchored,omitempty"`
	Context  UserContext      `json:"context"`
}

// Kind is an alias used to avoid name collision between Edit.InfoKind
// (EditInfoKind) and other *Kind discriminants in this file.
type Kind = EditInfoKind

// Plan is a user-authored plan request.
type Plan struct {
	Query          string      `json:"query"`
	PriorQueries   []string    `json:"priorQueries,omitempty"`
	Context        UserContext `json:"context"`
}

// Exchange is one typed, append-only turn of the conversation log.
// Exactly one of the payload fields is populated, selected by Kind.
type Exchange struct {
	ID           string       `json:"id"`
	Kind         ExchangeKind `json:"kind"`
	State        State        `json:"state"`
	IsCompressed bool         `json:"isCompressed"`
	IsHidden     bool         `json:"isHidden"`
	CreatedAt    int64        `json:"createdAt"`

	Human      *HumanChat  `json:"human,omitempty"`
	Agent      *AgentChat  `json:"agent,omitempty"`
	ToolOutput *ToolOutput `json:"toolOutput,omitempty"`
	Edit       *Edit       `json:"edit,omitempty"`
	Plan       *Plan       `json:"plan,omitempty"`
}

// IsOpen reports whether this exchange is a still-running AgentChat —
// the only state set_exchange_cancelled is permitted to touch.
func (e *Exchange) IsOpen() bool {
	return e.Kind == KindAgentChat && e.State == StateRunning
}

// ToolUseID returns the correlating tool-use id for ToolUse/ToolOutput
// exchanges, or "" for all other kinds.
func (e *Exchange) ToolUseID() string {
	switch e.Kind {
	case KindAgentChat:
		if e.Agent != nil && e.Agent.ReplyKind == ReplyToolUse && e.Agent.Tool != nil {
			return e.Agent.Tool.ToolUseID
		}
	case KindToolOutput:
		if e.ToolOutput != nil {
			return e.ToolOutput.ToolUseID
		}
	}
	return ""
}

// Validate checks that exactly one payload matching Kind is populated.
// Used defensively after JSON decode to catch storage corruption early.
func (e *Exchange) Validate() error {
	switch e.Kind {
	case KindHumanChat:
		if e.Human == nil {
			return fmt.Errorf("exchange %s: kind human_chat missing Human payload", e.ID)
		}
	case KindAgentChat:
		if e.Agent == nil {
			return fmt.Errorf("exchange %s: kind agent_chat missing Agent payload", e.ID)
		}
	case KindToolOutput:
		if e.ToolOutput == nil {
			return fmt.Errorf("exchange %s: kind tool_output missing ToolOutput payload", e.ID)
		}
	case KindEdit:
		if e.Edit == nil {
			return fmt.Errorf("exchange %s: kind edit missing Edit payload", e.ID)
		}
	case KindPlan:
		if e.Plan == nil {
			return fmt.Errorf("exchange %s: kind plan missing Plan payload", e.ID)
		}
	default:
		return fmt.Errorf("exchange %s: unknown kind %q", e.ID, e.Kind)
	}
	return nil
}
