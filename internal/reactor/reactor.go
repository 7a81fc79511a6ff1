// Package reactor implements the scratch-pad event loop: a single
// consumer that serializes human messages, editor-state changes, and
// language-server diagnostics into ordered work, gated by mutually
// exclusive focussing/fixing flags so reactive diagnostic fixes never
// interrupt a primary task in flight.
package reactor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/agentic-session/orchestrator/internal/agent"
	"github.com/agentic-session/orchestrator/internal/event"
	"github.com/agentic-session/orchestrator/internal/logging"
	"github.com/agentic-session/orchestrator/internal/lsp"
	"github.com/agentic-session/orchestrator/internal/session"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// EventKind identifies what kind of environment event a Event carries.
type EventKind string

const (
	EventLSPDiagnostic    EventKind = "lsp_diagnostic"
	EventHuman            EventKind = "human"
	EventSymbol           EventKind = "symbol"
	EventEditorStateChange EventKind = "editor_state_change"
	EventAgent            EventKind = "agent"
	EventShutdown         EventKind = "shutdown"
)

// DefaultConcurrencyCeiling bounds the anchor-edit fan-out.
const DefaultConcurrencyCeiling = 100

// Event is one item on the reactor's environment-event stream.
type Event struct {
	Kind      EventKind
	SessionID string

	// EventHuman
	Agentic  *types.AgenticEditInfo
	Anchored []types.AnchoredEditInfo
	Context  types.UserContext

	// EventLSPDiagnostic
	DiagnosticsByURI map[string][]lsp.Diagnostic

	// EventEditorStateChange
	EditorState *EditorStateChange

	// EventAgent
	AgentNote string

	// EventSymbol carries no payload beyond SessionID: the symbol
	// itself is resolved from the session's already-open files.
}

// EditOutcome records the result of one fanned-out sub-edit.
type EditOutcome struct {
	FilePath   string
	SessionID  string
	ExchangeID string
	Err        error
}

// EditorStateChange is the synthetic event the reactor emits to itself
// once every sub-edit in an anchor-edit batch has completed.
type EditorStateChange struct {
	EditsDone []EditOutcome
	UserQuery string
}

// DriveFunc runs the Tool-Use Agent Driver's full step loop against a
// session already holding the triggering exchange. Swappable so tests
// can exercise gating/fan-out logic without a live provider.
type DriveFunc func(ctx context.Context, sess *types.Session, ag *agent.Agent) error

// Config wires the reactor's collaborators.
type Config struct {
	SessionService     *session.Service
	AgentRegistry      *agent.Registry
	LSPClient          *lsp.Client
	Drive              DriveFunc
	DefaultAgentName   string
	ConcurrencyCeiling int64
	EventBus           *event.Bus
}

// Reactor owns the focussing/fixing gate and the accumulated
// scratch-pad context for each session it has reacted to.
type Reactor struct {
	cfg Config
	sem *semaphore.Weighted

	mu           sync.Mutex
	focussing    map[string]bool
	fixing       map[string]bool
	focusedFiles map[string][]string
	extraContext map[string]string
	priorQueries map[string][]string

	events chan Event
}

// New constructs a Reactor. Call Run in its own goroutine to start
// consuming events; use Submit to push events onto the stream.
func New(cfg Config) *Reactor {
	ceiling := cfg.ConcurrencyCeiling
	if ceiling <= 0 {
		ceiling = DefaultConcurrencyCeiling
	}
	return &Reactor{
		cfg:          cfg,
		sem:          semaphore.NewWeighted(ceiling),
		focussing:    make(map[string]bool),
		fixing:       make(map[string]bool),
		focusedFiles: make(map[string][]string),
		extraContext: make(map[string]string),
		priorQueries: make(map[string][]string),
		events:       make(chan Event, 256),
	}
}

// Submit enqueues an event for the reactor to process. Blocks if the
// internal buffer is full — callers on the hot path should select on
// ctx.Done() alongside a direct channel send if back-pressure matters.
func (r *Reactor) Submit(ev Event) {
	r.events <- ev
}

// Run drains the event stream until ctx is cancelled or a Shutdown
// event arrives. LSP-diagnostic events are discarded — not queued —
// whenever the originating session is focussing or fixing.
func (r *Reactor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.events:
			if ev.Kind == EventLSPDiagnostic && r.isGated(ev.SessionID) {
				logging.Debug().Str("session_id", ev.SessionID).Msg("reactor: discarding lsp diagnostic, busy")
				continue
			}
			r.dispatch(ctx, ev)
			if ev.Kind == EventShutdown {
				return
			}
		}
	}
}

func (r *Reactor) isGated(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fixing[sessionID] || r.focussing[sessionID]
}

func (r *Reactor) dispatch(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventLSPDiagnostic:
		r.reactToDiagnostics(ctx, ev)
	case EventHuman:
		r.handleHuman(ctx, ev)
	case EventSymbol:
		// No reactive behavior defined for bare symbol-change pressure
		// beyond what the LSP/editor-state paths already cover.
	case EventEditorStateChange:
		r.reactToEdits(ev)
	case EventAgent:
		r.mu.Lock()
		r.extraContext[ev.SessionID] = strings.TrimSpace(r.extraContext[ev.SessionID] + "\n" + ev.AgentNote)
		r.mu.Unlock()
	case EventShutdown:
		logging.Info().Msg("reactor: shutdown received, draining")
	}
}

// handleHuman routes a human message to the agentic or anchored path.
// Anchored requests trigger the parallel fan-out; agentic requests run
// a single drive pass against the session directly.
func (r *Reactor) handleHuman(ctx context.Context, ev Event) {
	if len(ev.Anchored) > 0 {
		r.anchorEditFanOut(ctx, ev)
		return
	}
	if ev.Agentic != nil {
		r.agenticEdit(ctx, ev)
	}
}

func (r *Reactor) agenticEdit(ctx context.Context, ev Event) {
	r.setFocussing(ev.SessionID, true)
	defer r.setFocussing(ev.SessionID, false)

	r.mu.Lock()
	r.priorQueries[ev.SessionID] = append(r.priorQueries[ev.SessionID], ev.Agentic.Query)
	r.mu.Unlock()

	sess, err := r.cfg.SessionService.Get(ctx, ev.SessionID)
	if err != nil {
		logging.Warn().Err(err).Str("session_id", ev.SessionID).Msg("reactor: agentic edit, session lookup failed")
		return
	}

	exchangeID, err := r.cfg.SessionService.AppendEdit(ctx, sess, types.Edit{
		InfoKind: types.EditAgentic,
		Agentic:  ev.Agentic,
		Context:  ev.Context,
	})
	if err != nil {
		logging.Warn().Err(err).Str("session_id", ev.SessionID).Msg("reactor: agentic edit, append failed")
		return
	}

	ag := r.resolveAgent()
	if err := r.cfg.Drive(ctx, sess, ag); err != nil {
		logging.Warn().Err(err).Str("session_id", ev.SessionID).Str("exchange_id", exchangeID).Msg("reactor: agentic edit drive failed")
	}
}

// anchorEditFanOut forks one child session per anchored symbol, drives
// each independently with a concurrency ceiling, then — once every
// sub-edit has completed — emits a synthetic EditorStateChange and
// only then releases the focussing flag.
func (r *Reactor) anchorEditFanOut(ctx context.Context, ev Event) {
	r.setFocussing(ev.SessionID, true)

	parent, err := r.cfg.SessionService.Get(ctx, ev.SessionID)
	if err != nil {
		logging.Warn().Err(err).Str("session_id", ev.SessionID).Msg("reactor: anchor edit, session lookup failed")
		r.setFocussing(ev.SessionID, false)
		return
	}
	anchorExchangeID := ""
	if len(parent.Exchanges) > 0 {
		anchorExchangeID = parent.Exchanges[len(parent.Exchanges)-1].ID
	}

	var files []string
	for _, t := range ev.Anchored {
		files = append(files, t.FilePath)
	}
	r.mu.Lock()
	r.focusedFiles[ev.SessionID] = files
	r.mu.Unlock()

	var wg sync.WaitGroup
	outcomes := make([]EditOutcome, len(ev.Anchored))
	ag := r.resolveAgent()

	for i, target := range ev.Anchored {
		wg.Add(1)
		go func(i int, target types.AnchoredEditInfo) {
			defer wg.Done()
			if err := r.sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = EditOutcome{FilePath: target.FilePath, Err: err}
				return
			}
			defer r.sem.Release(1)

			outcomes[i] = r.runOneAnchoredEdit(ctx, parent.ID, anchorExchangeID, target, ev.Context, ag)
		}(i, target)
	}
	wg.Wait()

	r.Submit(Event{
		Kind:      EventEditorStateChange,
		SessionID: ev.SessionID,
		EditorState: &EditorStateChange{
			EditsDone: outcomes,
			UserQuery: ev.Anchored[0].Query,
		},
	})

	r.setFocussing(ev.SessionID, false)
}

func (r *Reactor) runOneAnchoredEdit(ctx context.Context, parentSessionID, anchorExchangeID string, target types.AnchoredEditInfo, userCtx types.UserContext, ag *agent.Agent) EditOutcome {
	child, err := r.cfg.SessionService.Fork(ctx, parentSessionID, anchorExchangeID)
	if err != nil {
		return EditOutcome{FilePath: target.FilePath, Err: fmt.Errorf("fork for %s: %w", target.FilePath, err)}
	}

	anchored := target
	exchangeID, err := r.cfg.SessionService.AppendEdit(ctx, child, types.Edit{
		InfoKind: types.EditAnchored,
		Anchored: &anchored,
		Context:  userCtx,
	})
	if err != nil {
		return EditOutcome{FilePath: target.FilePath, SessionID: child.ID, Err: err}
	}

	if err := r.cfg.Drive(ctx, child, ag); err != nil {
		return EditOutcome{FilePath: target.FilePath, SessionID: child.ID, ExchangeID: exchangeID, Err: err}
	}
	return EditOutcome{FilePath: target.FilePath, SessionID: child.ID, ExchangeID: exchangeID}
}

// reactToEdits folds a completed edit batch's outcomes into the
// session's extra-context accumulator, the way the reaction path
// keeps the scratch-pad's prompt cache prefix aware of recent edits.
func (r *Reactor) reactToEdits(ev Event) {
	if ev.EditorState == nil {
		return
	}
	var summary strings.Builder
	for _, outcome := range ev.EditorState.EditsDone {
		if outcome.Err != nil {
			fmt.Fprintf(&summary, "edit failed for %s: %v\n", outcome.FilePath, outcome.Err)
			continue
		}
		fmt.Fprintf(&summary, "edited %s (session %s)\n", outcome.FilePath, outcome.SessionID)
	}

	r.mu.Lock()
	r.extraContext[ev.SessionID] = strings.TrimSpace(r.extraContext[ev.SessionID] + "\n" + summary.String())
	r.mu.Unlock()

	r.publish(event.EditsAccepted, event.ExchangeData{SessionID: ev.SessionID})
}

// reactToDiagnostics fixes the focused file set sequentially — one
// code-edit per file, never concurrently, so a diagnostic fix on one
// file can't re-trigger diagnostics on a file still mid-edit.
func (r *Reactor) reactToDiagnostics(ctx context.Context, ev Event) {
	r.mu.Lock()
	focused := append([]string(nil), r.focusedFiles[ev.SessionID]...)
	extra := r.extraContext[ev.SessionID]
	r.mu.Unlock()

	if len(focused) == 0 {
		return
	}
	focusedSet := make(map[string]bool, len(focused))
	for _, f := range focused {
		focusedSet[f] = true
	}

	relevant := map[string][]lsp.Diagnostic{}
	for uri, diags := range ev.DiagnosticsByURI {
		if focusedSet[uri] {
			relevant[uri] = diags
		}
	}
	if len(relevant) == 0 {
		return
	}

	r.setFixing(ev.SessionID, true)
	defer r.setFixing(ev.SessionID, false)

	ag := r.resolveAgent()
	for _, filePath := range focused {
		diags, ok := relevant[filePath]
		if !ok {
			continue
		}
		r.fixOneFile(ctx, ev.SessionID, filePath, diags, extra, ag)
	}
}

func (r *Reactor) fixOneFile(ctx context.Context, sessionID, filePath string, diags []lsp.Diagnostic, extraContext string, ag *agent.Agent) {
	sess, err := r.cfg.SessionService.Get(ctx, sessionID)
	if err != nil {
		logging.Warn().Err(err).Str("session_id", sessionID).Msg("reactor: diagnostic fix, session lookup failed")
		return
	}

	query := renderDiagnosticBlock(filePath, diags, extraContext)
	anchored := types.AnchoredEditInfo{Query: query, FilePath: filePath, LineStart: 0, LineEnd: -1}
	exchangeID, err := r.cfg.SessionService.AppendEdit(ctx, sess, types.Edit{
		InfoKind: types.EditAnchored,
		Anchored: &anchored,
	})
	if err != nil {
		logging.Warn().Err(err).Str("session_id", sessionID).Msg("reactor: diagnostic fix, append failed")
		return
	}

	if err := r.cfg.Drive(ctx, sess, ag); err != nil {
		logging.Warn().Err(err).Str("session_id", sessionID).Str("exchange_id", exchangeID).Msg("reactor: diagnostic fix drive failed")
	}
}

func renderDiagnosticBlock(filePath string, diags []lsp.Diagnostic, extraContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<fs_file_path>\n%s\n</fs_file_path>\n", filePath)
	for _, d := range diags {
		fmt.Fprintf(&b, "<message>\n%s\n</message>\n", d.Message)
	}
	if extraContext != "" {
		fmt.Fprintf(&b, "<extra_context>\n%s\n</extra_context>\n", extraContext)
	}
	return b.String()
}

func (r *Reactor) setFocussing(sessionID string, v bool) {
	r.mu.Lock()
	r.focussing[sessionID] = v
	r.mu.Unlock()
}

func (r *Reactor) setFixing(sessionID string, v bool) {
	r.mu.Lock()
	r.fixing[sessionID] = v
	r.mu.Unlock()
}

func (r *Reactor) resolveAgent() *agent.Agent {
	if r.cfg.AgentRegistry == nil {
		return nil
	}
	name := r.cfg.DefaultAgentName
	if name == "" {
		name = "build"
	}
	ag, err := r.cfg.AgentRegistry.Get(name)
	if err != nil {
		return nil
	}
	return ag
}

func (r *Reactor) publish(evtType event.EventType, data any) {
	if r.cfg.EventBus == nil {
		return
	}
	r.cfg.EventBus.Publish(event.Event{Type: evtType, Data: data})
}
