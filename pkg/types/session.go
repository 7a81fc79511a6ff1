// Package types provides the core data types shared by the session
// store, tool dispatcher, driver, and reactor.
package types

// Session is the append-only conversation log plus its derived
// projections. Exchanges is the source of truth; ActionNodes is a
// cache rebuilt from it on load (see internal/session).
type Session struct {
	ID           string            `json:"id"`
	ProjectID    string            `json:"projectID"`
	Directory    string            `json:"directory"`
	ParentID     *string           `json:"parentID,omitempty"`
	Title        string            `json:"title"`
	Version      string            `json:"version"`
	ProjectLabels []string         `json:"projectLabels,omitempty"`

	Exchanges   []Exchange   `json:"exchanges"`
	ActionNodes []ActionNode `json:"actionNodes"`

	GlobalContext UserContext       `json:"globalContext"`
	EnabledTools  map[ToolKind]bool `json:"enabledTools,omitempty"`

	Summary      SessionSummary `json:"summary"`
	Time         SessionTime    `json:"time"`
	CustomPrompt *CustomPrompt  `json:"customPrompt,omitempty"`

	// LastCheckpointExchangeID names the exchange a move_to_checkpoint
	// call last hid from (inclusive boundary rule differs at index 0 —
	// see internal/session.Store.MoveToCheckpoint). Empty if the
	// session has never been checkpointed.
	LastCheckpointExchangeID string `json:"lastCheckpointExchangeID,omitempty"`
}

// SessionSummary contains statistics about code changes in a session.
type SessionSummary struct {
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	Files     int        `json:"files"`
	Diffs     []FileDiff `json:"diffs,omitempty"`
}

// FileDiff represents a diff for a single file.
type FileDiff struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Before    string `json:"before,omitempty"`
	After     string `json:"after,omitempty"`
}

// SessionTime contains timestamps for a session.
type SessionTime struct {
	Created    int64  `json:"created"`
	Updated    int64  `json:"updated"`
	Compacting *int64 `json:"compacting,omitempty"`
}

// CustomPrompt represents a custom system prompt configuration.
type CustomPrompt struct {
	Type      string            `json:"type"` // "file" | "inline"
	Value     string            `json:"value"`
	LoadedAt  *int64            `json:"loadedAt,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}
