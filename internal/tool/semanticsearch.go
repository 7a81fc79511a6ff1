package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const semanticSearchDescription = `Ranks files by relevance to a natural-language query.

Usage:
- Splits the query into keywords and scores each file by keyword hit density
- Returns the top 20 matching files with their best-matching lines
- Use open_file to read a file in full once you've located it here`

// SemanticSearchTool ranks files by keyword relevance to a query. It is
// a lexical approximation of semantic code search: true embedding
// search requires an external index the orchestrator does not own
// (see SPEC_FULL's Non-goals), so this tool scores ripgrep hits by
// keyword density and returns the top results in relevance order.
type SemanticSearchTool struct {
	workDir   string
	maxResults int
}

// SemanticSearchInput is the input for the semantic_search tool.
type SemanticSearchInput struct {
	Query string `json:"query"`
	Path  string `json:"path,omitempty"`
}

type fileScore struct {
	path      string
	hits      int
	bestLine  string
	bestCount int
}

// NewSemanticSearchTool creates a new semantic search tool. When
// bigSearch is true (config's big_search option), the result ceiling
// widens from 20 to 50.
func NewSemanticSearchTool(workDir string, bigSearch bool) *SemanticSearchTool {
	max := 20
	if bigSearch {
		max = 50
	}
	return &SemanticSearchTool{workDir: workDir, maxResults: max}
}

func (t *SemanticSearchTool) ID() string          { return string(types.ToolSemanticSearch) }
func (t *SemanticSearchTool) Description() string { return semanticSearchDescription }

func (t *SemanticSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "Natural-language description of what to find"
			},
			"path": {
				"type": "string",
				"description": "Directory to search in (default: working directory)"
			}
		},
		"required": ["query"]
	}`)
}

func keywords(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	var out []string
	stop := map[string]bool{"the": true, "a": true, "an": true, "of": true, "to": true, "in": true, "for": true, "is": true, "and": true}
	for _, f := range fields {
		if len(f) < 3 || stop[strings.ToLower(f)] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (t *SemanticSearchTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params SemanticSearchInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	terms := keywords(params.Query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("query has no searchable keywords")
	}

	searchDir := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		searchDir = toolCtx.WorkDir
	}
	if params.Path != "" {
		searchDir = params.Path
	}

	scores := make(map[string]*fileScore)
	pattern := strings.Join(terms, "|")

	cmd := exec.CommandContext(ctx, "rg", "--line-number", "--with-filename", "--color=never", "--ignore-case", pattern, searchDir)
	output, _ := cmd.Output()

	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		path := parts[0]
		lineNum, _ := strconv.Atoi(parts[1])
		content := parts[2]

		hitCount := 0
		lower := strings.ToLower(content)
		for _, term := range terms {
			hitCount += strings.Count(lower, strings.ToLower(term))
		}

		s, ok := scores[path]
		if !ok {
			s = &fileScore{path: path}
			scores[path] = s
		}
		s.hits += hitCount
		if hitCount > s.bestCount {
			s.bestCount = hitCount
			s.bestLine = fmt.Sprintf("%d: %s", lineNum, content)
		}
	}

	ranked := make([]*fileScore, 0, len(scores))
	for _, s := range scores {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].hits > ranked[j].hits })

	truncated := false
	if len(ranked) > t.maxResults {
		ranked = ranked[:t.maxResults]
		truncated = true
	}

	if len(ranked) == 0 {
		return &Result{
			Title:  "Semantic search",
			Output: "No relevant files found",
		}, nil
	}

	var sb strings.Builder
	for _, s := range ranked {
		fmt.Fprintf(&sb, "## file_path: %s\nreason: matched %d keyword occurrence(s), best at line %s\n\n", s.path, s.hits, s.bestLine)
	}
	if truncated {
		fmt.Fprintf(&sb, "(showing top %d of more results)\n", t.maxResults)
	}

	return &Result{
		Title:  fmt.Sprintf("Found %d relevant file(s)", len(ranked)),
		Output: sb.String(),
		Metadata: map[string]any{
			"query": params.Query,
			"count": len(ranked),
		},
	}, nil
}

func (t *SemanticSearchTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
