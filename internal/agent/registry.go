package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/agentic-session/orchestrator/internal/permission"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// Registry manages agent configurations.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry creates a new agent registry.
func NewRegistry() *Registry {
	r := &Registry{
		agents: make(map[string]*Agent),
	}

	// Register built-in agents
	for name, agent := range BuiltInAgents() {
		r.agents[name] = agent
	}

	return r
}

// Get retrieves an agent by name.
func (r *Registry) Get(name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", name)
	}

	return agent, nil
}

// Register adds or updates an agent.
func (r *Registry) Register(agent *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Name] = agent
}

// Unregister removes an agent by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// List returns all registered agents.
func (r *Registry) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		agents = append(agents, agent)
	}
	return agents
}

// ListPrimary returns agents with primary mode.
func (r *Registry) ListPrimary() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, agent := range r.agents {
		if agent.IsPrimary() {
			agents = append(agents, agent)
		}
	}
	return agents
}

// ListSubagents returns agents with subagent mode.
func (r *Registry) ListSubagents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, agent := range r.agents {
		if agent.IsSubagent() {
			agents = append(agents, agent)
		}
	}
	return agents
}

// Names returns all agent names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// Exists checks if an agent exists.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// LoadFromConfig loads custom agents from configuration.
func (r *Registry) LoadFromConfig(config map[string]AgentConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, cfg := range config {
		// Start with existing or create new
		agent, exists := r.agents[name]
		if !exists {
			agent = &Agent{
				Name:    name,
				Mode:    ModePrimary,
				BuiltIn: false,
				Tools:   make(map[string]bool),
			}
		} else {
			// Clone existing to avoid modifying built-in directly
			agent = agent.Clone()
			agent.BuiltIn = false // Mark as customized
		}

		// Apply config overrides
		if cfg.Description != "" {
			agent.Description = cfg.Description
		}
		if cfg.Mode != "" {
			agent.Mode = cfg.Mode
		}
		if cfg.Model != nil {
			agent.Model = cfg.Model
		}
		if cfg.Prompt != "" {
			agent.Prompt = cfg.Prompt
		}
		if cfg.Temperature > 0 {
			agent.Temperature = cfg.Temperature
		}
		if cfg.TopP > 0 {
			agent.TopP = cfg.TopP
		}
		if cfg.Color != "" {
			agent.Color = cfg.Color
		}
		if cfg.Tools != nil {
			if agent.Tools == nil {
				agent.Tools = make(map[string]bool)
			}
			for k, v := range cfg.Tools {
				agent.Tools[k] = v
			}
		}
		if cfg.Permission != nil {
			// Merge permissions
			if cfg.Permission.Edit != "" {
				agent.Permission.Edit = cfg.Permission.Edit
			}
			if cfg.Permission.WebFetch != "" {
				agent.Permission.WebFetch = cfg.Permission.WebFetch
			}
			if cfg.Permission.ExternalDir != "" {
				agent.Permission.ExternalDir = cfg.Permission.ExternalDir
			}
			if cfg.Permission.DoomLoop != "" {
				agent.Permission.DoomLoop = cfg.Permission.DoomLoop
			}
			if cfg.Permission.Bash != nil {
				if agent.Permission.Bash == nil {
					agent.Permission.Bash = make(map[string]permission.PermissionAction)
				}
				for k, v := range cfg.Permission.Bash {
					agent.Permission.Bash[k] = v
				}
			}
		}
		if cfg.Options != nil {
			if agent.Options == nil {
				agent.Options = make(map[string]any)
			}
			for k, v := range cfg.Options {
				agent.Options[k] = v
			}
		}

		r.agents[name] = agent
	}
}

// AgentConfig represents user configuration for an agent.
type AgentConfig struct {
	Description string                 `json:"description,omitempty"`
	Mode        Mode                   `json:"mode,omitempty"`
	Model       *ModelRef              `json:"model,omitempty"`
	Prompt      string                 `json:"prompt,omitempty"`
	Temperature float64                `json:"temperature,omitempty"`
	TopP        float64                `json:"topP,omitempty"`
	Color       string                 `json:"color,omitempty"`
	Tools       map[string]bool        `json:"tools,omitempty"`
	Permission  *AgentPermissionConfig `json:"permission,omitempty"`
	Options     map[string]any         `json:"options,omitempty"`
}

// AgentPermissionConfig represents permission configuration.
type AgentPermissionConfig struct {
	Edit        permission.PermissionAction            `json:"edit,omitempty"`
	Bash        map[string]permission.PermissionAction `json:"bash,omitempty"`
	WebFetch    permission.PermissionAction            `json:"webfetch,omitempty"`
	ExternalDir permission.PermissionAction            `json:"external_directory,omitempty"`
	DoomLoop    permission.PermissionAction            `json:"doom_loop,omitempty"`
}

// LoadFromUserConfig converts the user-facing agent configuration
// (types.AgentConfig, as loaded from orchestrator.json) into the registry's
// own AgentConfig shape and loads it. Kept separate from LoadFromConfig
// so the registry's internal representation doesn't have to mirror the
// on-disk config format field for field.
func (r *Registry) LoadFromUserConfig(config map[string]types.AgentConfig) {
	converted := make(map[string]AgentConfig, len(config))
	for name, cfg := range config {
		out := AgentConfig{
			Description: cfg.Description,
			Mode:        Mode(cfg.Mode),
			Prompt:      cfg.Prompt,
			Color:       cfg.Color,
			Tools:       cfg.Tools,
			Options:     cfg.Options,
		}
		if cfg.Model != "" {
			providerID, modelID := splitModelString(cfg.Model)
			out.Model = &ModelRef{ProviderID: providerID, ModelID: modelID}
		}
		if cfg.Temperature != nil {
			out.Temperature = *cfg.Temperature
		}
		if cfg.TopP != nil {
			out.TopP = *cfg.TopP
		}
		if cfg.Permission != nil {
			out.Permission = &AgentPermissionConfig{
				Edit:        permission.PermissionAction(cfg.Permission.Edit),
				WebFetch:    permission.PermissionAction(cfg.Permission.WebFetch),
				ExternalDir: permission.PermissionAction(cfg.Permission.ExternalDir),
				DoomLoop:    permission.PermissionAction(cfg.Permission.DoomLoop),
				Bash:        splitBashPermission(cfg.Permission.Bash),
			}
		}
		converted[name] = out
	}
	r.LoadFromConfig(converted)
}

// splitModelString mirrors provider.ParseModelString's "provider/model"
// convention without importing internal/provider, which would create a
// cycle if the provider package ever needs agent metadata.
func splitModelString(s string) (providerID, modelID string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", s
}

// splitBashPermission normalizes PermissionConfig.Bash, which may be a
// single action string applied to all commands or a per-pattern map, into
// the registry's per-pattern map form.
func splitBashPermission(bash any) map[string]permission.PermissionAction {
	switch v := bash.(type) {
	case nil:
		return nil
	case string:
		return map[string]permission.PermissionAction{"*": permission.PermissionAction(v)}
	case map[string]string:
		out := make(map[string]permission.PermissionAction, len(v))
		for k, action := range v {
			out[k] = permission.PermissionAction(action)
		}
		return out
	case map[string]any:
		out := make(map[string]permission.PermissionAction, len(v))
		for k, action := range v {
			if s, ok := action.(string); ok {
				out[k] = permission.PermissionAction(s)
			}
		}
		return out
	default:
		return nil
	}
}
