package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-session/orchestrator/internal/agent"
	"github.com/agentic-session/orchestrator/internal/config"
	"github.com/agentic-session/orchestrator/internal/driver"
	"github.com/agentic-session/orchestrator/internal/editorbridge"
	"github.com/agentic-session/orchestrator/internal/event"
	"github.com/agentic-session/orchestrator/internal/logging"
	"github.com/agentic-session/orchestrator/internal/lsp"
	"github.com/agentic-session/orchestrator/internal/mcp"
	"github.com/agentic-session/orchestrator/internal/codestructure"
	"github.com/agentic-session/orchestrator/internal/permission"
	"github.com/agentic-session/orchestrator/internal/planservice"
	"github.com/agentic-session/orchestrator/internal/project"
	"github.com/agentic-session/orchestrator/internal/provider"
	"github.com/agentic-session/orchestrator/internal/reactor"
	"github.com/agentic-session/orchestrator/internal/server"
	"github.com/agentic-session/orchestrator/internal/session"
	"github.com/agentic-session/orchestrator/internal/storage"
	"github.com/agentic-session/orchestrator/internal/tool"
	"github.com/agentic-session/orchestrator/internal/vcs"
)

var (
	servePort     int
	serveHostname string
	serveDir      string
	serveJSONMode bool
	serveNoLSP    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestrator's HTTP/SSE surface",
	Long: `Starts the orchestrator as a headless server exposing session
lifecycle (create/list/fork/abort), human and edit turns, and the UI
event sink over HTTP/SSE.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to listen on")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "127.0.0.1", "hostname to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "working directory")
	serveCmd.Flags().BoolVar(&serveJSONMode, "json-mode", true, "use structured tool-calling instead of text-mode XML tags")
	serveCmd.Flags().BoolVar(&serveNoLSP, "no-lsp", false, "disable language-server integration")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	logging.Info().Str("version", Version).Msg("starting orchestrator")
	logging.Info().Str("directory", workDir).Msg("working directory")

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if m := GetGlobalModel(); m != "" {
		appConfig.Model = m
	}

	ctx := context.Background()
	// internal/permission and internal/vcs publish through the event
	// package's global functions rather than holding their own *Bus, so
	// the server must subscribe on that same instance to see their
	// events over SSE.
	bus := event.Default()
	store := storage.New(paths.StoragePath())

	providerReg, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to initialize some providers")
	}

	if info, err := project.FromDirectory(workDir); err != nil {
		logging.Warn().Err(err).Msg("failed to detect project info")
	} else {
		logging.Info().Str("project_id", info.ID).Str("worktree", info.Worktree).Msg("detected project")
	}

	vcsWatcher, err := vcs.NewWatcher(workDir)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to start VCS watcher")
	} else if vcsWatcher != nil {
		vcsWatcher.Start()
		defer vcsWatcher.Stop()
	}

	lspClient := lsp.NewClient(workDir, serveNoLSP)
	mcpClient := mcp.NewClient()
	bridge := editorbridge.NewLocalAdapter(workDir, defaultShell())

	toolReg := tool.DefaultRegistry(workDir, store, tool.Dependencies{
		LSP:           lspClient,
		EditorBridge:  bridge,
		MCP:           mcpClient,
		DeepReasoning: appConfig.DeepReasoning,
	})
	mcp.RegisterMCPTools(mcpClient, toolReg)

	planSvc := planservice.NewStructureBackedService(codestructure.NewLSPBackedProvider(lspClient))

	agentReg := agent.NewRegistry()
	agentReg.LoadFromUserConfig(appConfig.Agent)

	permissionChecker := permission.NewChecker()
	doomLoop := permission.NewDoomLoopDetector()

	sessionService := session.NewService(store, bus)

	primaryProviderID, primaryModelID := provider.ParseModelString(appConfig.Model)

	drv := driver.New(driver.Config{
		ProviderRegistry:  providerReg,
		ToolRegistry:      toolReg,
		SessionService:    sessionService,
		PermissionChecker: permissionChecker,
		DoomLoop:          doomLoop,
		EventBus:          bus,
		PrimaryProviderID: primaryProviderID,
		PrimaryModelID:    primaryModelID,
		JSONMode:          serveJSONMode,
	})

	react := reactor.New(reactor.Config{
		SessionService: sessionService,
		AgentRegistry:  agentReg,
		LSPClient:      lspClient,
		Drive:          drv.Process,
		EventBus:       bus,
	})
	reactorCtx, stopReactor := context.WithCancel(ctx)
	go react.Run(reactorCtx)

	lspClient.OnDiagnostics(func(uri string, diags []lsp.Diagnostic) {
		react.Submit(reactor.Event{
			Kind:             reactor.EventLSPDiagnostic,
			DiagnosticsByURI: map[string][]lsp.Diagnostic{uri: diags},
		})
	})

	serverConfig := server.DefaultConfig()
	serverConfig.Port = servePort
	serverConfig.Directory = workDir

	srv := server.New(serverConfig, store, sessionService, providerReg, toolReg, agentReg, permissionChecker, doomLoop, drv, react, bus, planSvc)

	go func() {
		logging.Info().
			Str("hostname", serveHostname).
			Int("port", servePort).
			Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")
	stopReactor()

	if err := mcpClient.Close(); err != nil {
		logging.Warn().Err(err).Msg("error closing MCP servers")
	}
	if err := lspClient.Close(); err != nil {
		logging.Warn().Err(err).Msg("error closing language servers")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}

	logging.Info().Msg("orchestrator stopped")
	return nil
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}
