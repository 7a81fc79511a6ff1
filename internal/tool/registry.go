package tool

import (
	"sync"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/agentic-session/orchestrator/internal/editorbridge"
	"github.com/agentic-session/orchestrator/internal/logging"
	"github.com/agentic-session/orchestrator/internal/lsp"
	"github.com/agentic-session/orchestrator/internal/mcp"
	"github.com/agentic-session/orchestrator/internal/storage"
)

// Registry manages tool registration and lookup.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	workDir string
	storage *storage.Storage
}

// NewRegistry creates a new tool registry.
func NewRegistry(workDir string, store *storage.Storage) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		workDir: workDir,
		storage: store,
	}
}

// Storage returns the storage instance.
func (r *Registry) Storage() *storage.Storage {
	return r.storage
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logging.Debug().Str("id", tool.ID()).Msg("registering tool")
	r.tools[tool.ID()] = tool
}

// Get retrieves a tool by ID.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[id]
	return tool, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	return tools
}

// IDs returns all tool IDs.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	return ids
}

// EinoTools returns Eino-compatible tools.
func (r *Registry) EinoTools() []einotool.BaseTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]einotool.BaseTool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t.EinoTool())
	}
	return tools
}

// ToolInfos returns Eino tool infos for all tools.
func (r *Registry) ToolInfos() ([]*schema.ToolInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*schema.ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		params := parseJSONSchemaToParams(t.Parameters())
		infos = append(infos, &schema.ToolInfo{
			Name:        t.ID(),
			Desc:        t.Description(),
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos, nil
}

// Dependencies bundles the external collaborators some tools need
// beyond workDir/storage. Any field left nil degrades its tool to a
// graceful "unavailable" response rather than a panic.
type Dependencies struct {
	LSP           *lsp.Client
	EditorBridge  editorbridge.Bridge
	MCP           *mcp.Client
	DeepReasoning bool // widens SemanticSearch's result cap
}

// DefaultRegistry creates a registry with the full built-in tool set.
func DefaultRegistry(workDir string, store *storage.Storage, deps Dependencies) *Registry {
	r := NewRegistry(workDir, store)

	r.Register(NewReadTool(workDir))
	r.Register(NewListTool(workDir))
	r.Register(NewGlobTool(workDir))
	r.Register(NewGrepTool(workDir))
	r.Register(NewSemanticSearchTool(workDir, deps.DeepReasoning))
	r.Register(NewBashTool(workDir))
	r.Register(NewTestRunnerTool(workDir))
	r.Register(NewLSPDiagnosticsTool(deps.LSP))
	r.Register(NewRepoMapGenerationTool(workDir))
	r.Register(NewCodeEditingTool(workDir))
	r.Register(NewRequestScreenshotTool(deps.EditorBridge))
	r.Register(NewThinkingTool())
	r.Register(NewMcpTool(deps.MCP))
	r.Register(NewAskFollowupQuestionsTool())
	r.Register(NewAttemptCompletionTool())

	logging.Debug().Strs("tools", r.IDs()).Msg("default registry created")
	return r
}
