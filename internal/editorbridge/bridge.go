// Package editorbridge declares the orchestrator's view of the editor
// it is embedded in: opening files, running terminal commands,
// fetching diagnostics, and (where supported) taking a screenshot of
// the running application. The core never talks to an editor
// directly — it calls this interface, so a different host can swap
// the adapter without touching session or driver semantics.
package editorbridge

import "context"

// Bridge is the narrow interface the driver's RequestScreenshot tool
// and the reactor's environment-event source depend on.
type Bridge interface {
	// OpenFile returns a file's content as the editor currently sees
	// it (which may include unsaved buffer edits a plain os.ReadFile
	// would miss).
	OpenFile(ctx context.Context, path string) (string, error)

	// RunTests invokes the editor's configured test command and
	// returns its combined output.
	RunTests(ctx context.Context, command string) (string, error)

	// SpawnTerminal runs a command in the editor's integrated
	// terminal and returns its combined output.
	SpawnTerminal(ctx context.Context, command string) (string, error)

	// TakeScreenshot captures the running application's current
	// visual state, returning a data: URL. Returns ErrUnsupported if
	// the host editor has no visual surface to capture.
	TakeScreenshot(ctx context.Context) (dataURL string, err error)
}

// ErrUnsupported is returned by adapters that cannot fulfill a given
// bridge capability in their current host (e.g. a headless CLI has no
// screen to screenshot).
var ErrUnsupported = bridgeUnsupportedError{}

type bridgeUnsupportedError struct{}

func (bridgeUnsupportedError) Error() string { return "editor bridge: capability not supported by this host" }
