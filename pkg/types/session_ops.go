package types

import "fmt"

// AppendHuman pushes a HumanChat exchange and its action node, merging
// context into the session's global running context. Labels and
// repoRef travel with the exchange for prompt reconstruction.
func (s *Session) AppendHuman(exchangeID, query string, context UserContext, labels []string, createdAt int64) {
	s.GlobalContext.Merge(context)

	s.Exchanges = append(s.Exchanges, Exchange{
		ID:        exchangeID,
		Kind:      KindHumanChat,
		State:     StateAccepted,
		CreatedAt: createdAt,
		Human: &HumanChat{
			Query:   query,
			Context: context,
			Labels:  labels,
		},
	})
}

// AppendEdit pushes an Edit exchange — either agentic or anchored —
// merging its context into the session's global running context the
// same way AppendHuman does, since an edit request is itself a
// human-authored turn.
func (s *Session) AppendEdit(exchangeID string, edit Edit, createdAt int64) {
	s.GlobalContext.Merge(edit.Context)

	s.Exchanges = append(s.Exchanges, Exchange{
		ID:        exchangeID,
		Kind:      KindEdit,
		State:     StateAccepted,
		CreatedAt: createdAt,
		Edit:      &edit,
	})
}

// AppendAgentToolUse records the agent's declared intent to invoke a
// tool: an AgentChat exchange with ReplyKind Tool, plus a fresh action
// node awaiting its observation. usage carries the token accounting
// for the LLM call that produced this invocation, or nil if the
// provider didn't report any.
func (s *Session) AppendAgentToolUse(exchangeID, parentExchangeID string, toolKind ToolKind, parameters []byte, thinking, toolUseID string, usage *TokenUsage, createdAt int64) {
	s.Exchanges = append(s.Exchanges, Exchange{
		ID:        exchangeID,
		Kind:      KindAgentChat,
		State:     StateRunning,
		CreatedAt: createdAt,
		Agent: &AgentChat{
			ParentExchangeID: parentExchangeID,
			ReplyKind:        ReplyToolUse,
			Tool: &ToolUse{
				ToolKind:   toolKind,
				Parameters: parameters,
				Thinking:   thinking,
				ToolUseID:  toolUseID,
			},
		},
	})

	s.ActionNodes = append(s.ActionNodes, ActionNode{
		ToolUseExchangeID: exchangeID,
		ToolKind:          toolKind,
		ToolUseID:         toolUseID,
		Thinking:          thinking,
		StartedAt:         createdAt,
		Usage:             usage,
	})
}

// AppendToolOutput records the observation produced by executing a
// ToolUse: pushes a ToolOutput exchange and fills in the observation
// text and elapsed wall-time on the action node whose ToolUseID
// matches.
func (s *Session) AppendToolOutput(exchangeID, parentToolUseID string, toolKind ToolKind, observation string, context UserContext, createdAt int64) {
	s.Exchanges = append(s.Exchanges, Exchange{
		ID:        exchangeID,
		Kind:      KindToolOutput,
		State:     StateAccepted,
		CreatedAt: createdAt,
		ToolOutput: &ToolOutput{
			ToolKind:    toolKind,
			Observation: observation,
			ToolUseID:   parentToolUseID,
			Context:     context,
		},
	})

	if node := s.findActionNode(parentToolUseID); node != nil {
		node.ToolOutputExchangeID = exchangeID
		node.Observation = observation
		node.ElapsedMs = elapsedSince(node.StartedAt, createdAt)
	}
}

// MarkActionTerminal records a terminal tool's observation directly on
// its action node — AskFollowupQuestions and AttemptCompletion end the
// driver loop without a ToolOutput exchange, since the question or
// completion text is already visible via the ToolUse exchange itself.
func (s *Session) MarkActionTerminal(toolUseID, observation string, createdAt int64) bool {
	node := s.findActionNode(toolUseID)
	if node == nil {
		return false
	}
	node.Observation = observation
	node.IsTerminal = true
	node.ElapsedMs = elapsedSince(node.StartedAt, createdAt)
	return true
}

// MarkActionCancelled records a cancelled-mid-flight tool invocation as
// an error observation on its action node, without touching the
// exchange log — the session is otherwise left exactly as it was
// before the tool ran.
func (s *Session) MarkActionCancelled(toolUseID, errText string, createdAt int64) bool {
	node := s.findActionNode(toolUseID)
	if node == nil {
		return false
	}
	node.ErrorObservation = errText
	node.ElapsedMs = elapsedSince(node.StartedAt, createdAt)
	return true
}

// findActionNode returns a pointer to the most recent action node with
// the given tool-use id, or nil if none matches.
func (s *Session) findActionNode(toolUseID string) *ActionNode {
	for i := len(s.ActionNodes) - 1; i >= 0; i-- {
		if s.ActionNodes[i].ToolUseID == toolUseID {
			return &s.ActionNodes[i]
		}
	}
	return nil
}

// elapsedSince returns end-start, or 0 if start was never recorded.
func elapsedSince(start, end int64) int64 {
	if start == 0 {
		return 0
	}
	if d := end - start; d > 0 {
		return d
	}
	return 0
}

// ReactToFeedback closes the exchange matching exchangeID in response
// to user review. Plan replies truncate their step list to
// step_index+1, or are marked discarded entirely when step_index is 0
// or unset with accepted false. Edit replies just record Accepted.
// Chat/Tool replies are a no-op on the reply body — the exchange still
// closes. Returns the AgentReplyKind reacted to, for UI-event dispatch,
// and false if no exchange matched.
func (s *Session) ReactToFeedback(exchangeID string, stepIndex *int, accepted bool) (AgentReplyKind, bool) {
	for i := range s.Exchanges {
		ex := &s.Exchanges[i]
		if ex.ID != exchangeID || ex.Kind != KindAgentChat || ex.Agent == nil {
			continue
		}

		reactedKind := ex.Agent.ReplyKind
		switch ex.Agent.ReplyKind {
		case ReplyPlan:
			if ex.Agent.Plan != nil {
				if !accepted || stepIndex == nil {
					ex.Agent.Plan.Discarded = true
				} else if *stepIndex == 0 {
					ex.Agent.Plan.Discarded = true
				} else {
					end := *stepIndex + 1
					if end < len(ex.Agent.Plan.Steps) {
						ex.Agent.Plan.Steps = ex.Agent.Plan.Steps[:end]
					}
				}
			}
		case ReplyEdit:
			if ex.Agent.Edit != nil {
				ex.Agent.Edit.Accepted = accepted
			}
		case ReplyChat, ReplyToolUse:
			// no-op on the reply body
		}

		if accepted {
			ex.State = StateAccepted
		} else {
			ex.State = StateRejected
		}
		return reactedKind, true
	}
	return "", false
}

// MoveToCheckpoint marks every exchange after the target as hidden —
// at or after, when the target sits at index 0. Hiding is a mark, not
// a removal; TruncateHidden is what actually drops them later.
func (s *Session) MoveToCheckpoint(exchangeID string) bool {
	targetIndex := -1
	for i, ex := range s.Exchanges {
		if ex.ID == exchangeID {
			targetIndex = i
			break
		}
	}
	if targetIndex == -1 {
		return false
	}

	for i := range s.Exchanges {
		var hide bool
		if targetIndex == 0 {
			hide = i >= targetIndex
		} else {
			hide = i > targetIndex
		}
		s.Exchanges[i].IsHidden = hide
	}
	s.LastCheckpointExchangeID = exchangeID
	return true
}

// UndoIncluding truncates the exchange list up to but not including
// exchangeID — the target exchange and everything after it is
// dropped. Reports whether exchangeID was found.
func (s *Session) UndoIncluding(exchangeID string) bool {
	for i, ex := range s.Exchanges {
		if ex.ID == exchangeID {
			s.Exchanges = s.Exchanges[:i]
			return true
		}
	}
	return false
}

// SetExchangeCancelled marks a still-running AgentChat exchange
// cancelled. A no-op (returns false) for any exchange that is not
// currently open.
func (s *Session) SetExchangeCancelled(exchangeID string) bool {
	for i := range s.Exchanges {
		ex := &s.Exchanges[i]
		if ex.ID != exchangeID {
			continue
		}
		if !ex.IsOpen() {
			return false
		}
		ex.State = StateCancelled
		return true
	}
	return false
}

// TruncateHidden permanently removes every is_hidden exchange. Called
// at the start of handling a new human message so move_to_checkpoint's
// marks become real truncation once the session moves forward again.
func (s *Session) TruncateHidden() {
	kept := s.Exchanges[:0]
	for _, ex := range s.Exchanges {
		if !ex.IsHidden {
			kept = append(kept, ex)
		}
	}
	s.Exchanges = kept
}

// ChatMessage is a uniform, role-tagged projection of one exchange,
// ready to hand to the model. Exactly the fields relevant to the
// projecting exchange kind are populated.
type ChatMessage struct {
	Role       string      `json:"role"` // "user" | "assistant"
	Text       string      `json:"text,omitempty"`
	Images     []ImageRef  `json:"images,omitempty"`
	ToolUse    *ToolUse    `json:"toolUse,omitempty"`
	ToolReturn *ToolOutput `json:"toolReturn,omitempty"`
}

// ToConversationSequence projects each non-compressed, non-hidden
// exchange into a uniform ChatMessage, suitable for prompt
// reconstruction. jsonMode selects structured tool-use/tool-return
// records over the text-mode <thinking>/Observation rendering.
func (s *Session) ToConversationSequence(jsonMode bool) []ChatMessage {
	out := make([]ChatMessage, 0, len(s.Exchanges))

	for _, ex := range s.Exchanges {
		if ex.IsCompressed || ex.IsHidden {
			continue
		}

		switch ex.Kind {
		case KindHumanChat:
			if ex.Human == nil {
				continue
			}
			out = append(out, ChatMessage{
				Role:   "user",
				Text:   ex.Human.Query,
				Images: ex.Human.Context.Images,
			})

		case KindAgentChat:
			if ex.Agent == nil {
				continue
			}
			out = append(out, projectAgentChat(ex.Agent, jsonMode))

		case KindToolOutput:
			if ex.ToolOutput == nil {
				continue
			}
			out = append(out, projectToolOutput(ex.ToolOutput, jsonMode))

		case KindEdit:
			if ex.Edit == nil {
				continue
			}
			out = append(out, ChatMessage{Role: "user", Text: renderEditRequest(ex.Edit)})

		case KindPlan:
			if ex.Plan == nil {
				continue
			}
			out = append(out, ChatMessage{Role: "user", Text: renderPlanRequest(ex.Plan)})
		}
	}

	return out
}

func projectAgentChat(a *AgentChat, jsonMode bool) ChatMessage {
	switch a.ReplyKind {
	case ReplyChat:
		if a.Chat == nil {
			return ChatMessage{Role: "assistant"}
		}
		return ChatMessage{Role: "assistant", Text: a.Chat.Text}

	case ReplyEdit:
		if a.Edit == nil {
			return ChatMessage{Role: "assistant"}
		}
		if a.Edit.Accepted {
			return ChatMessage{Role: "assistant", Text: a.Edit.Diff}
		}
		return ChatMessage{Role: "assistant", Text: fmt.Sprintf("REJECTED:\n%s", a.Edit.Diff)}

	case ReplyPlan:
		if a.Plan == nil {
			return ChatMessage{Role: "assistant"}
		}
		if a.Plan.Discarded {
			return ChatMessage{Role: "assistant", Text: "The plan was discarded by the user."}
		}
		return ChatMessage{Role: "assistant", Text: renderPlanSteps(a.Plan.Steps)}

	case ReplyToolUse:
		if a.Tool == nil {
			return ChatMessage{Role: "assistant"}
		}
		if jsonMode {
			return ChatMessage{Role: "assistant", Text: a.Tool.Thinking, ToolUse: a.Tool}
		}
		return ChatMessage{Role: "assistant", Text: fmt.Sprintf("<thinking>%s</thinking>\n%s", a.Tool.Thinking, renderToolUseText(a.Tool))}
	}
	return ChatMessage{Role: "assistant"}
}

func projectToolOutput(t *ToolOutput, jsonMode bool) ChatMessage {
	if jsonMode {
		return ChatMessage{Role: "user", ToolReturn: t, Images: t.Images}
	}
	return ChatMessage{
		Role:   "user",
		Text:   fmt.Sprintf("Observation (%s): %s", t.ToolKind, t.Observation),
		Images: t.Images,
	}
}

func renderToolUseText(tu *ToolUse) string {
	return fmt.Sprintf("%s(%s)", tu.ToolKind, string(tu.Parameters))
}

func renderPlanSteps(steps []PlanStep) string {
	out := ""
	for i, step := range steps {
		out += fmt.Sprintf("%d. %s\n   files: %v\n   %s\n", i+1, step.Title, step.FilesToEdit, step.Changes)
	}
	return out
}

func renderEditRequest(e *Edit) string {
	switch e.InfoKind {
	case EditAnchored:
		if e.Anchored == nil {
			return "<edit_request anchored/>"
		}
		return fmt.Sprintf("<edit_request anchored=\"true\" file=%q lines=\"%d-%d\">\n%s\n</edit_request>",
			e.Anchored.FilePath, e.Anchored.LineStart, e.Anchored.LineEnd, e.Anchored.Query)
	default:
		if e.Agentic == nil {
			return "<edit_request/>"
		}
		return fmt.Sprintf("<edit_request agentic=\"true\">\n%s\n</edit_request>", e.Agentic.Query)
	}
}

func renderPlanRequest(p *Plan) string {
	return fmt.Sprintf("<plan_request>\n%s\n</plan_request>", p.Query)
}
