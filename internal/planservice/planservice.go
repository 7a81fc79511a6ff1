// Package planservice turns a Plan exchange's free-form query into a
// proposed PlanReply: an ordered list of PlanStep entries the user
// reviews before any CodeEditing tool use is allowed to run. It is an
// external collaborator in the same sense as internal/provider — the
// orchestrator core only depends on the Service interface below, never
// on a specific planning strategy.
package planservice

import (
	"context"
	"fmt"

	"github.com/agentic-session/orchestrator/internal/codestructure"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// Service proposes a plan for a Plan exchange's request.
type Service interface {
	ProposePlan(ctx context.Context, p types.Plan) (*types.PlanReply, error)
}

// StructureBackedService grounds its step proposals on whatever
// codestructure.Provider reports for symbols matching the query's
// keywords. It is a heuristic placeholder for the driver's own
// planning turn (the driver itself, not this package, produces the
// plan the user actually sees in the common case) — this service
// exists for callers that want a plan without round-tripping through
// a full driver turn, e.g. a "quick plan" API affordance.
type StructureBackedService struct {
	structure codestructure.Provider
}

// NewStructureBackedService creates a plan service backed by a
// code-structure provider.
func NewStructureBackedService(structure codestructure.Provider) *StructureBackedService {
	return &StructureBackedService{structure: structure}
}

func (s *StructureBackedService) ProposePlan(ctx context.Context, p types.Plan) (*types.PlanReply, error) {
	if s.structure == nil {
		return &types.PlanReply{Steps: []types.PlanStep{{
			Title:   "Investigate",
			Changes: fmt.Sprintf("No code-structure provider configured; review %q manually.", p.Query),
		}}}, nil
	}

	symbols, err := s.structure.FindSymbol(ctx, p.Query)
	if err != nil {
		return nil, fmt.Errorf("plan service: find symbol: %w", err)
	}
	if len(symbols) == 0 {
		return &types.PlanReply{Steps: []types.PlanStep{{
			Title:   "Locate relevant code",
			Changes: fmt.Sprintf("No symbols matched %q; a broader codebase search is needed before editing.", p.Query),
		}}}, nil
	}

	byFile := map[string][]codestructure.Symbol{}
	order := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if _, ok := byFile[sym.File]; !ok {
			order = append(order, sym.File)
		}
		byFile[sym.File] = append(byFile[sym.File], sym)
	}

	steps := make([]types.PlanStep, 0, len(order))
	for _, file := range order {
		names := ""
		for i, sym := range byFile[file] {
			if i > 0 {
				names += ", "
			}
			names += sym.Name
		}
		steps = append(steps, types.PlanStep{
			FilesToEdit: []string{file},
			Title:       fmt.Sprintf("Update %s", file),
			Changes:     fmt.Sprintf("Address %q by modifying: %s", p.Query, names),
		})
	}

	return &types.PlanReply{Steps: steps}, nil
}
