package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentic-session/orchestrator/internal/agent"
	"github.com/agentic-session/orchestrator/internal/event"
	"github.com/agentic-session/orchestrator/internal/logging"
	"github.com/agentic-session/orchestrator/internal/permission"
	"github.com/agentic-session/orchestrator/internal/provider"
	"github.com/agentic-session/orchestrator/internal/session"
	"github.com/agentic-session/orchestrator/internal/tool"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// MaxSteps bounds how many tool invocations a single Process call will
// drive before giving up and returning control to the caller.
const MaxSteps = 50

// Config wires the driver to its collaborators.
type Config struct {
	ProviderRegistry  *provider.Registry
	ToolRegistry      *tool.Registry
	SessionService    *session.Service
	PermissionChecker *permission.Checker
	DoomLoop          *permission.DoomLoopDetector
	EventBus          *event.Bus

	PrimaryProviderID  string
	PrimaryModelID     string
	FailoverProviderID string
	FailoverModelID    string

	// JSONMode selects the structured tool-schema calling convention
	// over the text-mode <thinking>/tool-tag parsing.
	JSONMode bool
}

// Driver runs the Tool-Use Agent Driver loop for a session: repeatedly
// asking the provider for the next tool invocation and dispatching it,
// until a terminal tool fires, the step budget is spent, or the run
// fails outright.
type Driver struct {
	cfg Config

	mu     sync.Mutex
	active map[string]*inflight
}

type inflight struct {
	cancel  context.CancelFunc
	abortCh chan struct{}
	waiters []chan error
}

// New creates a Driver.
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg, active: make(map[string]*inflight)}
}

// Process drives sess forward under ag until a terminal tool fires or
// the step budget runs out. Only one Process call runs per session at
// a time; a concurrent call for the same session blocks until the
// first completes. If that run failed, the waiting call returns its
// error; otherwise it then runs against the (now mutated) session.
func (d *Driver) Process(ctx context.Context, sess *types.Session, ag *agent.Agent) error {
	for {
		wait, started := d.joinOrStart(sess.ID)
		if started {
			break
		}
		if err := <-wait; err != nil {
			return err
		}
		// The previous run finished; loop back and try to become the
		// active runner ourselves rather than silently joining a run
		// that may already be gone.
	}
	defer d.finish(sess.ID)

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.active[sess.ID].cancel = cancel
	abortCh := d.active[sess.ID].abortCh
	d.mu.Unlock()

	err := d.drive(runCtx, abortCh, sess, ag)
	d.mu.Lock()
	for _, w := range d.active[sess.ID].waiters {
		w <- err
	}
	d.mu.Unlock()
	return err
}

// joinOrStart registers the caller as the active runner for sessionID,
// or — if one is already running — returns a channel the caller should
// wait on before retrying against the mutated session.
func (d *Driver) joinOrStart(sessionID string) (chan error, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, busy := d.active[sessionID]; busy {
		wait := make(chan error, 1)
		existing.waiters = append(existing.waiters, wait)
		return wait, false
	}

	d.active[sessionID] = &inflight{abortCh: make(chan struct{})}
	return nil, true
}

func (d *Driver) finish(sessionID string) {
	d.mu.Lock()
	delete(d.active, sessionID)
	d.mu.Unlock()
}

// Abort cancels the in-flight run for sessionID, if any.
func (d *Driver) Abort(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.active[sessionID]; ok {
		if r.cancel != nil {
			r.cancel()
		}
		close(r.abortCh)
	}
}

// drive is the outer loop: one attempt() per step until a terminal
// tool fires, the step budget is exhausted, or an error propagates.
func (d *Driver) drive(ctx context.Context, abortCh chan struct{}, sess *types.Session, ag *agent.Agent) error {
	parentExchangeID := lastHumanExchangeID(sess)

	for step := 0; step < MaxSteps; step++ {
		select {
		case <-abortCh:
			return ErrCancelled
		default:
		}

		outcome, err := d.attempt(ctx, sess, ag, parentExchangeID)
		if err != nil {
			return fmt.Errorf("driver step %d: %w", step, err)
		}

		terminal, err := d.dispatch(ctx, abortCh, sess, ag, parentExchangeID, outcome)
		if err != nil {
			return fmt.Errorf("driver step %d dispatch: %w", step, err)
		}
		if terminal {
			return nil
		}
	}

	logging.Warn().Str("session_id", sess.ID).Int("steps", MaxSteps).Msg("driver step budget exhausted")
	return nil
}

// publish emits a UI event if the driver was configured with a bus.
func (d *Driver) publish(evtType event.EventType, data any) {
	if d.cfg.EventBus == nil {
		return
	}
	d.cfg.EventBus.Publish(event.Event{Type: evtType, Data: data})
}

// lastHumanExchangeID returns the ID of the most recent HumanChat
// exchange, which new AgentChat exchanges reply to.
func lastHumanExchangeID(sess *types.Session) string {
	for i := len(sess.Exchanges) - 1; i >= 0; i-- {
		if sess.Exchanges[i].Kind == types.KindHumanChat {
			return sess.Exchanges[i].ID
		}
	}
	return ""
}
