package types

// TokenUsage records the token accounting for the LLM call that
// produced a tool invocation.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// ActionNode is the projection of one completed tool invocation into a
// flat, replayable record: the ToolUse that requested it, the
// ToolOutput it produced, and the exchange ids that tie them back to
// the log. The session store derives these from Exchanges; they are
// never appended directly. Used for reasoning summarization and
// metrics, never for prompt reconstruction.
type ActionNode struct {
	ToolUseExchangeID    string      `json:"toolUseExchangeID"`
	ToolOutputExchangeID string      `json:"toolOutputExchangeID"`
	ToolKind             ToolKind    `json:"toolKind"`
	ToolUseID            string      `json:"toolUseID"`
	Thinking             string      `json:"thinking,omitempty"`
	Observation          string      `json:"observation"`
	ErrorObservation     string      `json:"errorObservation,omitempty"`
	IsTerminal           bool        `json:"isTerminal"`
	IsHidden             bool        `json:"isHidden"`
	StartedAt            int64       `json:"startedAt"`
	ElapsedMs            int64       `json:"elapsedMs,omitempty"`
	Usage                *TokenUsage `json:"usage,omitempty"`
}
