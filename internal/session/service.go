// Package session implements the Session Store: the append-only
// Exchange log plus its derived ActionNode projection, and the
// storage-facing operations around it.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/agentic-session/orchestrator/internal/event"
	"github.com/agentic-session/orchestrator/internal/storage"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// Service manages session CRUD and the Session Store operations that
// mutate a session's exchange log. Mutation logic itself lives on
// *types.Session (pkg/types/session_ops.go) so it can be unit tested
// without a storage dependency; Service wraps it with persistence,
// ID generation, and UI-event emission.
type Service struct {
	storage *storage.Storage
	bus     *event.Bus

	mu       sync.RWMutex
	abortChs map[string]chan struct{}
}

// NewService creates a new session service.
func NewService(store *storage.Storage, bus *event.Bus) *Service {
	return &Service{
		storage:  store,
		bus:      bus,
		abortChs: make(map[string]chan struct{}),
	}
}

func (s *Service) publish(evtType event.EventType, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{Type: evtType, Data: data})
}

// Create creates a new session rooted at directory.
func (s *Service) Create(ctx context.Context, directory, title string) (*types.Session, error) {
	now := time.Now().UnixMilli()
	projectID := hashDirectory(directory)

	if title == "" {
		title = "New Session"
	}

	sess := &types.Session{
		ID:           generateID(),
		ProjectID:    projectID,
		Directory:    directory,
		Title:        title,
		Version:      "1",
		EnabledTools: map[types.ToolKind]bool{},
		Time: types.SessionTime{
			Created: now,
			Updated: now,
		},
	}

	if err := s.SaveToStorage(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.publish(event.SessionCreated, event.SessionCreatedData{Info: sess})
	return sess, nil
}

// Get retrieves a session by ID, scanning across all known projects.
func (s *Service) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	projects, err := s.storage.List(ctx, []string{"session"})
	if err != nil {
		return nil, err
	}

	for _, projectID := range projects {
		var sess types.Session
		if err := s.storage.Get(ctx, []string{"session", projectID, sessionID}, &sess); err == nil {
			return &sess, nil
		}
	}

	return nil, storage.ErrNotFound
}

// Update applies a title change to a session and persists it.
func (s *Service) Update(ctx context.Context, sessionID string, updates map[string]any) (*types.Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if title, ok := updates["title"].(string); ok {
		sess.Title = title
	}

	if err := s.SaveToStorage(ctx, sess); err != nil {
		return nil, err
	}

	s.publish(event.SessionUpdated, event.SessionUpdatedData{Info: sess})
	return sess, nil
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, []string{"session", sess.ProjectID, sessionID}); err != nil {
		return err
	}

	s.publish(event.SessionDeleted, event.SessionDeletedData{Info: sess})
	return nil
}

// List lists sessions for a directory. An empty directory lists every
// session across every project.
func (s *Service) List(ctx context.Context, directory string) ([]*types.Session, error) {
	var sessions []*types.Session

	collect := func(projectID string) error {
		return s.storage.Scan(ctx, []string{"session", projectID}, func(key string, data json.RawMessage) error {
			var sess types.Session
			if err := json.Unmarshal(data, &sess); err != nil {
				return err
			}
			sessions = append(sessions, &sess)
			return nil
		})
	}

	if directory == "" {
		projects, err := s.storage.List(ctx, []string{"session"})
		if err != nil {
			return nil, err
		}
		for _, projectID := range projects {
			if err := collect(projectID); err != nil {
				return nil, err
			}
		}
		return sessions, nil
	}

	return sessions, collect(hashDirectory(directory))
}

// GetChildren returns sessions forked from sessionID.
func (s *Service) GetChildren(ctx context.Context, sessionID string) ([]*types.Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	all, err := s.List(ctx, sess.Directory)
	if err != nil {
		return nil, err
	}

	var children []*types.Session
	for _, child := range all {
		if child.ParentID != nil && *child.ParentID == sessionID {
			children = append(children, child)
		}
	}
	return children, nil
}

// Fork creates a child session carrying a copy of the parent's
// exchange log up to and including exchangeID.
func (s *Service) Fork(ctx context.Context, sessionID, exchangeID string) (*types.Session, error) {
	parent, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	child, err := s.Create(ctx, parent.Directory, parent.Title+" (fork)")
	if err != nil {
		return nil, err
	}
	child.ParentID = &sessionID

	for _, ex := range parent.Exchanges {
		child.Exchanges = append(child.Exchanges, ex)
		if ex.ID == exchangeID {
			break
		}
	}

	if err := s.SaveToStorage(ctx, child); err != nil {
		return nil, err
	}
	return child, nil
}

// Abort cancels an in-flight driver run for sessionID by closing its
// abort channel, if one is registered.
func (s *Service) Abort(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.abortChs[sessionID]; ok {
		close(ch)
		delete(s.abortChs, sessionID)
	}
	return nil
}

// RegisterAbort installs an abort channel for sessionID, returning it
// so the driver loop can select on it.
func (s *Service) RegisterAbort(sessionID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	s.abortChs[sessionID] = ch
	return ch
}

// GetDiffs returns the accumulated file diffs for a session.
func (s *Service) GetDiffs(ctx context.Context, sessionID string) ([]types.FileDiff, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Summary.Diffs, nil
}

// AppendHuman pushes a HumanChat exchange, persists, and publishes a
// chat event.
func (s *Service) AppendHuman(ctx context.Context, sess *types.Session, query string, userCtx types.UserContext, labels []string) (string, error) {
	exchangeID := generateID()
	sess.AppendHuman(exchangeID, query, userCtx, labels, time.Now().UnixMilli())

	if err := s.SaveToStorage(ctx, sess); err != nil {
		return "", err
	}

	s.publish(event.ChatEvent, event.ExchangeData{SessionID: sess.ID, ExchangeID: exchangeID})
	return exchangeID, nil
}

// AppendEdit pushes an Edit exchange (agentic or anchored), persists,
// and publishes a chat event so UI listeners see the new turn.
func (s *Service) AppendEdit(ctx context.Context, sess *types.Session, edit types.Edit) (string, error) {
	exchangeID := generateID()
	sess.AppendEdit(exchangeID, edit, time.Now().UnixMilli())

	if err := s.SaveToStorage(ctx, sess); err != nil {
		return "", err
	}

	s.publish(event.ChatEvent, event.ExchangeData{SessionID: sess.ID, ExchangeID: exchangeID})
	return exchangeID, nil
}

// AppendAgentToolUse records the agent's declared tool intent. usage
// carries the LLM call's token accounting, if the provider reported it.
func (s *Service) AppendAgentToolUse(ctx context.Context, sess *types.Session, parentExchangeID string, toolKind types.ToolKind, parameters []byte, thinking, toolUseID string, usage *types.TokenUsage) (string, error) {
	exchangeID := generateID()
	sess.AppendAgentToolUse(exchangeID, parentExchangeID, toolKind, parameters, thinking, toolUseID, usage, time.Now().UnixMilli())

	if err := s.SaveToStorage(ctx, sess); err != nil {
		return "", err
	}

	s.publish(event.ToolUseDetected, event.ToolUseDetectedData{
		ExchangeData: event.ExchangeData{SessionID: sess.ID, ExchangeID: exchangeID},
		ToolKind:     toolKind,
		ToolUseID:    toolUseID,
	})
	return exchangeID, nil
}

// AppendToolOutput records a tool's observation against the session.
func (s *Service) AppendToolOutput(ctx context.Context, sess *types.Session, parentToolUseID string, toolKind types.ToolKind, observation string, userCtx types.UserContext) (string, error) {
	exchangeID := generateID()
	sess.AppendToolOutput(exchangeID, parentToolUseID, toolKind, observation, userCtx, time.Now().UnixMilli())

	if err := s.SaveToStorage(ctx, sess); err != nil {
		return "", err
	}
	return exchangeID, nil
}

// MarkActionTerminal records a terminal tool's (AskFollowupQuestions,
// AttemptCompletion) observation directly on its action node and
// persists the session, without appending a ToolOutput exchange.
func (s *Service) MarkActionTerminal(ctx context.Context, sess *types.Session, toolUseID, observation string) error {
	if !sess.MarkActionTerminal(toolUseID, observation, time.Now().UnixMilli()) {
		return fmt.Errorf("mark action terminal: tool use %s not found", toolUseID)
	}
	return s.SaveToStorage(ctx, sess)
}

// MarkActionCancelled records a cancelled-mid-flight tool invocation as
// an error observation on its action node and persists the session,
// leaving the exchange log itself untouched.
func (s *Service) MarkActionCancelled(ctx context.Context, sess *types.Session, toolUseID, errText string) error {
	if !sess.MarkActionCancelled(toolUseID, errText, time.Now().UnixMilli()) {
		return fmt.Errorf("mark action cancelled: tool use %s not found", toolUseID)
	}
	return s.SaveToStorage(ctx, sess)
}

// ReactToFeedback closes an exchange in response to user review and
// emits the matching UI event.
func (s *Service) ReactToFeedback(ctx context.Context, sess *types.Session, exchangeID string, stepIndex *int, accepted bool) error {
	kind, found := sess.ReactToFeedback(exchangeID, stepIndex, accepted)
	if !found {
		return fmt.Errorf("react to feedback: exchange %s not found", exchangeID)
	}

	ref := event.ExchangeData{SessionID: sess.ID, ExchangeID: exchangeID}
	switch kind {
	case types.ReplyPlan:
		if accepted {
			s.publish(event.PlanAsAccepted, event.PlanAcceptedData{ExchangeData: ref})
		} else {
			s.publish(event.PlanAsCancelled, event.PlanCancelledData{ExchangeData: ref})
		}
	case types.ReplyEdit:
		if accepted {
			s.publish(event.EditsAccepted, event.EditsAcceptedData{ExchangeData: ref})
		} else {
			s.publish(event.EditsCancelled, event.EditsCancelledData{ExchangeData: ref})
		}
	}
	s.publish(event.FinishedExchange, event.FinishedExchangeData{ExchangeData: ref, State: sess.Exchanges[len(sess.Exchanges)-1].State})

	return s.SaveToStorage(ctx, sess)
}

// MoveToCheckpoint hides every exchange after (or at, for index 0)
// the target exchange.
func (s *Service) MoveToCheckpoint(ctx context.Context, sess *types.Session, exchangeID string) error {
	if !sess.MoveToCheckpoint(exchangeID) {
		return fmt.Errorf("move to checkpoint: exchange %s not found", exchangeID)
	}
	return s.SaveToStorage(ctx, sess)
}

// UndoIncluding truncates the exchange log at exchangeID.
func (s *Service) UndoIncluding(ctx context.Context, sess *types.Session, exchangeID string) error {
	if !sess.UndoIncluding(exchangeID) {
		return fmt.Errorf("undo including: exchange %s not found", exchangeID)
	}
	return s.SaveToStorage(ctx, sess)
}

// SetExchangeCancelled cancels a still-running exchange.
func (s *Service) SetExchangeCancelled(ctx context.Context, sess *types.Session, exchangeID string) error {
	if !sess.SetExchangeCancelled(exchangeID) {
		return nil
	}
	return s.SaveToStorage(ctx, sess)
}

// TruncateHidden permanently drops every hidden exchange. Called at
// the start of handling a new human message.
func (s *Service) TruncateHidden(ctx context.Context, sess *types.Session) error {
	sess.TruncateHidden()
	return s.SaveToStorage(ctx, sess)
}

// SaveToStorage serializes the session and atomically writes it,
// bumping Time.Updated first. Storage.Put already implements the
// write-tmp/rename recipe this needs for crash safety.
func (s *Service) SaveToStorage(ctx context.Context, sess *types.Session) error {
	sess.Time.Updated = time.Now().UnixMilli()
	return s.storage.Put(ctx, []string{"session", sess.ProjectID, sess.ID}, sess)
}

// generateID generates a new ULID.
func generateID() string {
	return ulid.Make().String()
}

// hashDirectory creates a stable project ID from a directory path.
func hashDirectory(directory string) string {
	h := sha256.New()
	h.Write([]byte(directory))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
