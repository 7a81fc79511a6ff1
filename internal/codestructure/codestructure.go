// Package codestructure provides a thin façade RepoMapGeneration and
// SemanticSearch call through for symbol-level structure, instead of
// each tool reaching into internal/lsp directly. The only adapter
// implemented here answers from whatever internal/lsp already has
// parsed; a tree-sitter or language-specific index would slot in
// behind the same Provider interface without touching its callers.
package codestructure

import (
	"context"

	"github.com/agentic-session/orchestrator/internal/lsp"
)

// Symbol is a named code entity at a location, as reported by a
// language server's document-symbol query.
type Symbol struct {
	Name string
	Kind string
	File string
	Line int
}

// Provider resolves symbol-level structure for a file or a workspace
// query.
type Provider interface {
	SymbolsInFile(ctx context.Context, path string) ([]Symbol, error)
	FindSymbol(ctx context.Context, query string) ([]Symbol, error)
}

// LSPBackedProvider answers structure queries using whatever language
// server internal/lsp already has spawned. It returns an empty result
// rather than an error when no server covers a file's extension —
// structure lookups are advisory, not a hard dependency for the tools
// that call it.
type LSPBackedProvider struct {
	client *lsp.Client
}

// NewLSPBackedProvider creates a provider backed by an LSP client.
func NewLSPBackedProvider(client *lsp.Client) *LSPBackedProvider {
	return &LSPBackedProvider{client: client}
}

func (p *LSPBackedProvider) SymbolsInFile(ctx context.Context, path string) ([]Symbol, error) {
	if p.client == nil || p.client.IsDisabled() {
		return nil, nil
	}
	syms, err := p.client.DocumentSymbol(ctx, path)
	if err != nil {
		return nil, nil
	}
	return convert(syms, path), nil
}

func (p *LSPBackedProvider) FindSymbol(ctx context.Context, query string) ([]Symbol, error) {
	if p.client == nil || p.client.IsDisabled() {
		return nil, nil
	}
	syms, err := p.client.WorkspaceSymbol(ctx, query)
	if err != nil {
		return nil, nil
	}
	return convert(syms, ""), nil
}

func convert(syms []lsp.Symbol, fallbackFile string) []Symbol {
	out := make([]Symbol, 0, len(syms))
	for _, s := range syms {
		file := fallbackFile
		if s.Location.URI != "" {
			file = s.Location.URI
		}
		out = append(out, Symbol{
			Name: s.Name,
			Kind: s.Kind.String(),
			File: file,
			Line: s.Location.Range.Start.Line,
		})
	}
	return out
}
