package event

import "github.com/agentic-session/orchestrator/pkg/types"

// SessionCreatedData is the data for session.created events.
type SessionCreatedData struct {
	Info *types.Session `json:"info"`
}

// SessionUpdatedData is the data for session.updated events.
type SessionUpdatedData struct {
	Info *types.Session `json:"info"`
}

// SessionDeletedData is the data for session.deleted events.
type SessionDeletedData struct {
	Info *types.Session `json:"info"`
}

// SessionIdleData is the data for session.idle events.
type SessionIdleData struct {
	SessionID string `json:"sessionID"`
}

// SessionErrorData is the data for session.error events.
type SessionErrorData struct {
	SessionID string `json:"sessionID,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ExchangeData is the payload shared by most exchange-lifecycle events:
// enough to locate the exchange without re-sending its full body.
type ExchangeData struct {
	SessionID  string `json:"sessionID"`
	ExchangeID string `json:"exchangeID"`
}

// ToolUseDetectedData is the data for exchange.tool_use_detected events,
// fired as soon as the driver's streamed response reveals a tool call.
type ToolUseDetectedData struct {
	ExchangeData
	ToolKind  types.ToolKind `json:"toolKind"`
	ToolUseID string         `json:"toolUseID"`
}

// ToolOutputDeltaData streams incremental tool output as it's
// produced, before the ToolOutput exchange itself is appended.
type ToolOutputDeltaData struct {
	ExchangeData
	ToolUseID string `json:"toolUseID"`
	Delta     string `json:"delta"`
}

// EditsStartedData is the data for exchange.edits_started events.
type EditsStartedData struct {
	ExchangeData
	FilesToEdit []string `json:"filesToEdit"`
}

// EditsAcceptedData is the data for exchange.edits_accepted events.
type EditsAcceptedData struct {
	ExchangeData
}

// EditsCancelledData is the data for exchange.edits_cancelled events.
type EditsCancelledData struct {
	ExchangeData
	Reason string `json:"reason,omitempty"`
}

// PlanAcceptedData is the data for exchange.plan_accepted events.
type PlanAcceptedData struct {
	ExchangeData
}

// PlanCancelledData is the data for exchange.plan_cancelled events.
type PlanCancelledData struct {
	ExchangeData
	Reason string `json:"reason,omitempty"`
}

// PlanTitleAddedData is the data for exchange.plan_title_added events.
type PlanTitleAddedData struct {
	ExchangeData
	Title string `json:"title"`
}

// PlanDescriptionUpdatedData is the data for
// exchange.plan_description_updated events.
type PlanDescriptionUpdatedData struct {
	ExchangeData
	StepIndex   int    `json:"stepIndex"`
	Description string `json:"description"`
}

// InferenceStartedData is the data for exchange.inference_started
// events, fired when the driver submits a turn to the model.
type InferenceStartedData struct {
	ExchangeData
	Attempt int `json:"attempt"`
}

// RequestReviewData is the data for exchange.request_review events,
// fired when an edit or plan needs human acceptance before proceeding.
type RequestReviewData struct {
	ExchangeData
}

// FinishedExchangeData is the data for exchange.finished events.
type FinishedExchangeData struct {
	ExchangeData
	State types.State `json:"state"`
}

// AgenticTopLevelThinkingData streams the driver's outer reasoning,
// before any tool is chosen.
type AgenticTopLevelThinkingData struct {
	ExchangeData
	Delta string `json:"delta"`
}

// AgenticSymbolLevelThinkingData streams reasoning scoped to a specific
// symbol or file the driver is currently considering.
type AgenticSymbolLevelThinkingData struct {
	ExchangeData
	Symbol string `json:"symbol"`
	Delta  string `json:"delta"`
}

// FoundReferenceData is the data for exchange.found_reference events,
// fired when SemanticSearch/RepoMapGeneration surfaces a file the user
// hadn't attached as context.
type FoundReferenceData struct {
	ExchangeData
	FilePath string `json:"filePath"`
}

// SendVariablesData is the data for exchange.send_variables events.
type SendVariablesData struct {
	ExchangeData
	Variables []types.VariableRef `json:"variables"`
}

// ChatEventData is the data for exchange.chat_event events: a plain
// text delta for an AgentChat reply in progress.
type ChatEventData struct {
	ExchangeData
	Delta string `json:"delta"`
}

// FileEditedData is the data for file.edited events.
type FileEditedData struct {
	File string `json:"file"`
}

// PermissionUpdatedData is the data for permission.required events.
type PermissionUpdatedData struct {
	ID             string   `json:"id"`
	SessionID      string   `json:"sessionID"`
	PermissionType string   `json:"permissionType"` // "bash" | "edit" | "external_directory"
	Pattern        []string `json:"pattern"`
	Title          string   `json:"title"`
}

// PermissionRepliedData is the data for permission.resolved events.
type PermissionRepliedData struct {
	PermissionID string `json:"permissionID"`
	SessionID    string `json:"sessionID"`
	Response     string `json:"response"` // "once" | "always" | "reject"
}

// ClientToolRequestData is the data for client-tool.request events.
type ClientToolRequestData struct {
	ClientID string `json:"clientID"`
	Request  any    `json:"request"`
}

// ClientToolRegisteredData is the data for client-tool.registered events.
type ClientToolRegisteredData struct {
	ClientID string   `json:"clientID"`
	ToolIDs  []string `json:"toolIDs"`
}

// ClientToolUnregisteredData is the data for client-tool.unregistered events.
type ClientToolUnregisteredData struct {
	ClientID string   `json:"clientID"`
	ToolIDs  []string `json:"toolIDs"`
}

// ClientToolStatusData is the data for client-tool.executing/completed/failed events.
type ClientToolStatusData struct {
	SessionID string `json:"sessionID"`
	ExchangeID string `json:"exchangeID"`
	CallID    string `json:"callID"`
	Tool      string `json:"tool"`
	ClientID  string `json:"clientID"`
	Error     string `json:"error,omitempty"`
	Success   bool   `json:"success,omitempty"`
}
