// Package server exposes the orchestrator's session lifecycle and its
// event sink over HTTP: the ambient delivery surface a driving process
// (a CLI, an editor extension, a test harness) uses to create
// sessions, push human turns, and subscribe to the UI event stream.
// Neither the Session Store, the Tool Dispatcher, nor the Tool-Use
// Agent Driver depend on this package — it is wiring, not a core
// subsystem.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/agentic-session/orchestrator/internal/agent"
	"github.com/agentic-session/orchestrator/internal/driver"
	"github.com/agentic-session/orchestrator/internal/event"
	"github.com/agentic-session/orchestrator/internal/permission"
	"github.com/agentic-session/orchestrator/internal/planservice"
	"github.com/agentic-session/orchestrator/internal/provider"
	"github.com/agentic-session/orchestrator/internal/reactor"
	"github.com/agentic-session/orchestrator/internal/session"
	"github.com/agentic-session/orchestrator/internal/storage"
	"github.com/agentic-session/orchestrator/internal/tool"
)

// Config holds server configuration.
type Config struct {
	Port         int
	Directory    string
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Port:        8080,
		EnableCORS:  true,
		ReadTimeout: 30 * time.Second,
		// No write timeout: SSE connections are held open indefinitely.
		WriteTimeout: 0,
	}
}

// Server wires the HTTP/SSE surface to the orchestrator's core
// collaborators.
type Server struct {
	config  Config
	router  *chi.Mux
	httpSrv *http.Server

	storage           *storage.Storage
	sessionService    *session.Service
	providerRegistry  *provider.Registry
	toolRegistry      *tool.Registry
	agentRegistry     *agent.Registry
	permissionChecker *permission.Checker
	doomLoop          *permission.DoomLoopDetector
	driver            *driver.Driver
	reactor           *reactor.Reactor
	bus               *event.Bus
	planService       planservice.Service
}

// New creates a Server wiring every collaborator needed to serve the
// session-lifecycle and event-streaming routes. planService may be nil;
// the quick-plan route then falls back to a todo-style not-configured
// response instead of failing the whole server.
func New(
	cfg Config,
	store *storage.Storage,
	sessionService *session.Service,
	providerRegistry *provider.Registry,
	toolRegistry *tool.Registry,
	agentRegistry *agent.Registry,
	permissionChecker *permission.Checker,
	doomLoop *permission.DoomLoopDetector,
	drv *driver.Driver,
	react *reactor.Reactor,
	bus *event.Bus,
	planService planservice.Service,
) *Server {
	s := &Server{
		config:            cfg,
		router:            chi.NewRouter(),
		storage:           store,
		sessionService:    sessionService,
		providerRegistry:  providerRegistry,
		toolRegistry:      toolRegistry,
		agentRegistry:     agentRegistry,
		permissionChecker: permissionChecker,
		doomLoop:          doomLoop,
		driver:            drv,
		reactor:           react,
		bus:               bus,
		planService:       planService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	if s.config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(s.instanceContext)
}

type contextKey string

const contextKeyDirectory contextKey = "directory"

// instanceContext injects the request's ?directory= query parameter
// (falling back to the server's configured default) into the request
// context, for deployments that route one server across several
// working directories.
func (s *Server) instanceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		directory := r.URL.Query().Get("directory")
		if directory == "" {
			directory = s.config.Directory
		}
		ctx := context.WithValue(r.Context(), contextKeyDirectory, directory)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getDirectory(ctx context.Context) string {
	directory, _ := ctx.Value(contextKeyDirectory).(string)
	return directory
}

// Router returns the underlying chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start starts the HTTP server and blocks until it stops or errors.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
