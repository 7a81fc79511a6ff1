// Package session implements the Session Store: the append-only log of
// Exchanges that records everything that happens in a coding session,
// plus the ActionNode projection derived from it.
//
// A Session holds an ordered list of Exchanges (HumanChat, AgentChat,
// ToolOutput, Edit, Plan) and a parallel list of ActionNodes, one per
// tool invocation, correlating a ToolUse exchange with the ToolOutput
// exchange that eventually answers it. Mutation logic is pure and
// lives on *types.Session (pkg/types/session_ops.go) so it can be
// tested without any storage dependency:
//
//	sess.AppendHuman(exchangeID, query, userCtx, labels, now)
//	sess.AppendAgentToolUse(exchangeID, parentID, toolKind, params, thinking, toolUseID, usage, now)
//	sess.AppendToolOutput(exchangeID, toolUseID, toolKind, observation, userCtx, now)
//	sess.MarkActionTerminal(toolUseID, observation, now)
//	sess.MarkActionCancelled(toolUseID, errText, now)
//	sess.ReactToFeedback(exchangeID, stepIndex, accepted)
//	sess.MoveToCheckpoint(exchangeID)
//	sess.UndoIncluding(exchangeID)
//	sess.SetExchangeCancelled(exchangeID)
//	sess.TruncateHidden()
//	sess.ToConversationSequence(jsonMode)
//
// Service wraps those pure methods with ID generation, persistence,
// and UI-event emission:
//
//	svc := session.NewService(store, bus)
//	sess, err := svc.Create(ctx, "/home/user/project", "Code Review")
//	exchangeID, err := svc.AppendHuman(ctx, sess, "refactor this function", userCtx, nil)
//
// Every mutation is followed by SaveToStorage, which atomically
// persists the session (write-temp-then-rename) and bumps
// sess.Time.Updated.
//
// The agentic loop that drives an LLM through a sequence of tool
// calls against a session's Exchange log — retries, streaming,
// compaction, title generation — lives in internal/driver, which
// depends on this package for the exchange log it appends to.
package session
