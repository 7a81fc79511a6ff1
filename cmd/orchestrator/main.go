// Command orchestrator runs the Agentic Session Orchestrator: the
// Session Store, Tool Dispatcher, Tool-Use Agent Driver, and
// Scratch-Pad Reactor, exposed over the ambient HTTP/SSE surface.
package main

import (
	"fmt"
	"os"

	"github.com/agentic-session/orchestrator/cmd/orchestrator/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
