package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentic-session/orchestrator/internal/agent"
	"github.com/agentic-session/orchestrator/internal/logging"
	"github.com/agentic-session/orchestrator/internal/reactor"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// CreateSessionRequest is the request body for POST /session.
type CreateSessionRequest struct {
	Directory string `json:"directory"`
	Title     string `json:"title,omitempty"`
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	directory := r.URL.Query().Get("directory")

	sessions, err := s.sessionService.List(r.Context(), directory)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	directory := req.Directory
	if directory == "" {
		directory = getDirectory(r.Context())
	}
	if directory == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "directory is required")
		return
	}

	sess, err := s.sessionService.Create(r.Context(), directory, req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.sessionService.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	sess, err := s.sessionService.Update(r.Context(), sessionID, updates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.sessionService.Delete(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

func (s *Server) getChildren(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	children, err := s.sessionService.GetChildren(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if children == nil {
		children = []*types.Session{}
	}
	writeJSON(w, http.StatusOK, children)
}

// ForkSessionRequest is the request body for POST /session/{id}/fork.
type ForkSessionRequest struct {
	ExchangeID string `json:"exchangeID"`
}

func (s *Server) forkSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req ForkSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	child, err := s.sessionService.Fork(r.Context(), sessionID, req.ExchangeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, child)
}

func (s *Server) abortSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if s.driver != nil {
		s.driver.Abort(sessionID)
	}
	if err := s.sessionService.Abort(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

// SendMessageRequest is the request body for POST /session/{id}/message:
// a plain human chat turn that the driver picks up immediately.
type SendMessageRequest struct {
	Query   string            `json:"query"`
	Context types.UserContext `json:"context,omitempty"`
	Labels  []string          `json:"labels,omitempty"`
	Agent   string            `json:"agent,omitempty"`
}

// sendMessage appends a human turn and kicks off the Tool-Use Agent
// Driver in the background. The caller observes progress over the
// session's SSE endpoint rather than on this response, since a full
// driver run can take many tool-use round trips.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "query is required")
		return
	}

	sess, err := s.sessionService.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	exchangeID, err := s.sessionService.AppendHuman(r.Context(), sess, req.Query, req.Context, req.Labels)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	agentName := req.Agent
	if agentName == "" {
		agentName = "build"
	}
	ag, err := s.agentRegistry.Get(agentName)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	s.runDriverAsync(sess, ag)

	writeJSON(w, http.StatusAccepted, map[string]string{"exchangeID": exchangeID})
}

// SendEditRequest is the request body for POST /session/{id}/edit: an
// agentic (whole-codebase) or anchored (file-scoped) edit request,
// routed through the Scratch-Pad Reactor rather than driven directly.
type SendEditRequest struct {
	Agentic  *types.AgenticEditInfo   `json:"agentic,omitempty"`
	Anchored []types.AnchoredEditInfo `json:"anchored,omitempty"`
	Context  types.UserContext        `json:"context,omitempty"`
}

func (s *Server) sendEdit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req SendEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Agentic == nil && len(req.Anchored) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "agentic or anchored edit required")
		return
	}
	if s.reactor == nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "reactor not configured")
		return
	}

	s.reactor.Submit(reactor.Event{
		Kind:      reactor.EventHuman,
		SessionID: sessionID,
		Agentic:   req.Agentic,
		Anchored:  req.Anchored,
		Context:   req.Context,
	})

	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// RespondPermissionRequest is the request body for
// POST /session/{id}/permissions/{permissionID}.
type RespondPermissionRequest struct {
	Response string `json:"response"` // "once" | "always" | "reject"
}

func (s *Server) respondPermission(w http.ResponseWriter, r *http.Request) {
	permissionID := chi.URLParam(r, "permissionID")

	var req RespondPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	s.permissionChecker.Respond(permissionID, req.Response)
	writeSuccess(w)
}

// proposePlan handles POST /session/{id}/plan: a quick-plan affordance
// that answers with a proposed step list without round-tripping
// through the full Tool-Use Agent Driver loop.
func (s *Server) proposePlan(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req types.Plan
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "query is required")
		return
	}
	if s.planService == nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "plan service not configured")
		return
	}

	reply, err := s.planService.ProposePlan(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	logging.Info().Str("session_id", sessionID).Int("steps", len(reply.Steps)).Msg("server: plan proposed")
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.agentRegistry.List())
}

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.providerRegistry.List())
}

// runDriverAsync runs the driver loop detached from the request's
// context, since the request response is returned immediately (202)
// and the caller follows progress via SSE.
func (s *Server) runDriverAsync(sess *types.Session, ag *agent.Agent) {
	go func() {
		if err := s.driver.Process(context.Background(), sess, ag); err != nil {
			logging.Warn().Err(err).Str("session_id", sess.ID).Msg("server: driver run failed")
		}
	}()
}
