package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures the session-lifecycle and event-streaming API.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Patch("/", s.updateSession)
			r.Delete("/", s.deleteSession)

			r.Get("/children", s.getChildren)
			r.Post("/fork", s.forkSession)
			r.Post("/abort", s.abortSession)

			r.Post("/message", s.sendMessage)
			r.Post("/edit", s.sendEdit)
			r.Post("/plan", s.proposePlan)

			r.Get("/event", s.sessionEvents)

			r.Post("/permissions/{permissionID}", s.respondPermission)
		})
	})

	r.Get("/event", s.globalEvents)

	r.Get("/agent", s.listAgents)
	r.Get("/provider", s.listProviders)
}
