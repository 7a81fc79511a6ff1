package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentic-session/orchestrator/internal/event"
	"github.com/agentic-session/orchestrator/internal/logging"
)

// sseHeartbeatInterval is the interval between SSE heartbeat comments,
// keeping idle connections from being reaped by intermediate proxies.
const sseHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE, flushing after every
// event via http.ResponseController, with the writer's own Flush as the
// fallback. newSSEWriter rejects writers that do not implement
// http.Flusher.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

func (s *sseWriter) writeEvent(data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: message\ndata: %s\n\n", jsonData); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprint(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

func prepareSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// globalEvents handles GET /event: every event the bus ever publishes.
func (s *Server) globalEvents(w http.ResponseWriter, r *http.Request) {
	prepareSSEHeaders(w)

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	s.streamEvents(r, sse, nil)
}

// sessionEvents handles GET /session/{sessionID}/event, filtering the
// bus down to events that carry a matching session ID.
func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	prepareSSEHeaders(w)

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	s.streamEvents(r, sse, func(e event.Event) bool {
		return eventSessionID(e) == sessionID
	})
}

// streamEvents subscribes to the bus and relays every event matching
// filter (nil filter means "everything") until the client disconnects.
func (s *Server) streamEvents(r *http.Request, sse *sseWriter, filter func(event.Event) bool) {
	events := make(chan event.Event, 16)

	unsub := s.bus.SubscribeAll(func(e event.Event) {
		if filter != nil && !filter(e) {
			return
		}
		select {
		case events <- e:
		default:
			logging.Warn().Str("event_type", string(e.Type)).Msg("server: sse event dropped, channel full")
		}
	})
	defer unsub()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := sse.writeEvent(e); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}

// eventSessionID extracts a session ID from whichever payload shape an
// event carries, or "" if the event isn't session-scoped.
func eventSessionID(e event.Event) string {
	switch data := e.Data.(type) {
	case event.SessionCreatedData:
		if data.Info != nil {
			return data.Info.ID
		}
	case event.SessionUpdatedData:
		if data.Info != nil {
			return data.Info.ID
		}
	case event.SessionDeletedData:
		if data.Info != nil {
			return data.Info.ID
		}
	case event.SessionIdleData:
		return data.SessionID
	case event.SessionErrorData:
		return data.SessionID
	case event.ExchangeData:
		return data.SessionID
	case event.ToolUseDetectedData:
		return data.SessionID
	case event.ToolOutputDeltaData:
		return data.SessionID
	case event.EditsStartedData:
		return data.SessionID
	case event.EditsAcceptedData:
		return data.SessionID
	case event.EditsCancelledData:
		return data.SessionID
	case event.PlanAcceptedData:
		return data.SessionID
	case event.PlanCancelledData:
		return data.SessionID
	case event.InferenceStartedData:
		return data.SessionID
	case event.FinishedExchangeData:
		return data.SessionID
	case event.AgenticTopLevelThinkingData:
		return data.SessionID
	case event.AgenticSymbolLevelThinkingData:
		return data.SessionID
	case event.PermissionUpdatedData:
		return data.SessionID
	case event.PermissionRepliedData:
		return data.SessionID
	case event.ChatEventData:
		return data.SessionID
	}
	return ""
}
