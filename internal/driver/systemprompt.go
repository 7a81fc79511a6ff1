package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/agentic-session/orchestrator/internal/agent"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// systemPromptBuilder assembles the system prompt handed to the
// provider on every attempt: a provider-specific header, the agent's
// own prompt, model-specific instructions, environment context,
// project rule files, and tool usage guidelines.
type systemPromptBuilder struct {
	sess       *types.Session
	agent      *agent.Agent
	providerID string
	modelID    string
}

func (d *Driver) buildSystemPrompt(sess *types.Session, ag *agent.Agent) string {
	providerID, modelID := d.cfg.PrimaryProviderID, d.cfg.PrimaryModelID
	if ag != nil && ag.Model != nil {
		providerID, modelID = ag.Model.ProviderID, ag.Model.ModelID
	}
	b := &systemPromptBuilder{sess: sess, agent: ag, providerID: providerID, modelID: modelID}
	return b.build()
}

func (b *systemPromptBuilder) build() string {
	var parts []string

	if header := b.providerHeader(); header != "" {
		parts = append(parts, header)
	}
	if b.agent != nil && b.agent.Prompt != "" {
		parts = append(parts, b.agent.Prompt)
	}
	if modelPrompt := b.modelPrompt(); modelPrompt != "" {
		parts = append(parts, modelPrompt)
	}
	parts = append(parts, b.environmentContext())
	if rules := b.loadCustomRules(); rules != "" {
		parts = append(parts, rules)
	}
	parts = append(parts, b.toolInstructions())

	return strings.Join(parts, "\n\n")
}

func (b *systemPromptBuilder) providerHeader() string {
	switch b.providerID {
	case "anthropic":
		return `You are Claude, an AI assistant made by Anthropic. You are helpful, harmless, and honest.

IMPORTANT: you have access to tools that read, write, and execute commands on the user's computer. Use them responsibly.`
	case "openai":
		return `You are a helpful AI assistant with access to tools for reading, writing, and executing commands.

Use tools responsibly and follow user instructions carefully.`
	case "google":
		return `You are a helpful AI assistant with tool access.

You can read files, write code, and execute commands to help the user.`
	default:
		return ""
	}
}

func (b *systemPromptBuilder) modelPrompt() string {
	switch {
	case strings.Contains(b.modelID, "claude"):
		return `When using tools, be decisive and take action. Don't ask for confirmation unless absolutely necessary.

For file operations:
- Read files before editing to understand context
- Make minimal, focused changes
- Preserve existing code style and formatting`
	case strings.Contains(b.modelID, "gpt"):
		return `When working with files:
- Always read files before making changes
- Make precise, targeted edits
- Follow existing code conventions`
	case strings.Contains(b.modelID, "gemini"):
		return `For code tasks:
- Examine existing code structure first
- Make minimal necessary changes
- Maintain code style consistency`
	default:
		return ""
	}
}

func (b *systemPromptBuilder) workDir() string {
	if b.sess != nil && b.sess.Directory != "" {
		return b.sess.Directory
	}
	wd, _ := os.Getwd()
	return wd
}

func (b *systemPromptBuilder) environmentContext() string {
	var env strings.Builder
	dir := b.workDir()

	env.WriteString("# Environment Information\n\n")
	env.WriteString(fmt.Sprintf("Working Directory: %s\n", dir))
	env.WriteString(fmt.Sprintf("Current Date: %s\n", time.Now().Format("2006-01-02")))
	env.WriteString(fmt.Sprintf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH))

	if branch := gitBranch(dir); branch != "" {
		env.WriteString(fmt.Sprintf("Git Branch: %s\n", branch))
	}
	if projectType := detectProjectType(dir); projectType != "" {
		env.WriteString(fmt.Sprintf("Project Type: %s\n", projectType))
	}

	return env.String()
}

func (b *systemPromptBuilder) loadCustomRules() string {
	dir := b.workDir()

	locations := []string{
		filepath.Join(dir, "AGENTS.md"),
		filepath.Join(dir, "CLAUDE.md"),
		filepath.Join(dir, ".orchestrator", "rules.md"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".config", "orchestrator", "rules.md"),
			filepath.Join(home, ".claude", "rules.md"),
		)
	}

	for _, loc := range locations {
		if content, err := os.ReadFile(loc); err == nil && len(content) > 0 {
			return fmt.Sprintf("# Custom Rules\n\n%s", string(content))
		}
	}
	return ""
}

func (b *systemPromptBuilder) toolInstructions() string {
	return `# Tool Usage Guidelines

1. **File Operations**
   - Read a file before editing it
   - Make minimal, focused changes
   - Always use absolute paths

2. **Bash Commands**
   - Prefer the dedicated tools over a raw shell command when one fits
   - Describe what a command does before running it

3. **Search**
   - Use ListFiles/FindFile for discovery, SearchFileContentWithRegex for content
   - Be specific with patterns to avoid noise

4. **Best Practices**
   - Work iteratively, verify changes work
   - Don't modify files you haven't read
   - State your reasoning in <thinking> before acting`
}

func gitBranch(dir string) string {
	if dir == "" {
		return ""
	}
	cmd := exec.Command("git", "branch", "--show-current")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

func detectProjectType(dir string) string {
	if dir == "" {
		return ""
	}
	indicators := map[string][]string{
		"Node.js": {"package.json"},
		"Python":  {"pyproject.toml", "setup.py", "requirements.txt"},
		"Go":      {"go.mod"},
		"Rust":    {"Cargo.toml"},
		"Java":    {"pom.xml", "build.gradle"},
		"Ruby":    {"Gemfile"},
	}
	for projectType, files := range indicators {
		for _, pattern := range files {
			matches, _ := filepath.Glob(filepath.Join(dir, pattern))
			if len(matches) > 0 {
				return projectType
			}
		}
	}
	return ""
}
