package driver

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"

	"github.com/agentic-session/orchestrator/internal/agent"
	"github.com/agentic-session/orchestrator/internal/event"
	"github.com/agentic-session/orchestrator/internal/logging"
	"github.com/agentic-session/orchestrator/internal/provider"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// maxAttempts is the fixed retry budget: 4 tries, alternating models.
const maxAttempts = 4

// outcome is the tool invocation an attempt produced, still unrecorded
// against the session — dispatch() is what appends it.
type outcome struct {
	toolKind   types.ToolKind
	parameters json.RawMessage
	thinking   string
	toolUseID  string
	usage      *types.TokenUsage
}

// attempt runs the retry loop for one driver step: up to maxAttempts
// provider calls, alternating the failover model on odd attempts and
// the primary model on even ones, until a tool invocation parses
// cleanly or the budget is exhausted.
func (d *Driver) attempt(ctx context.Context, sess *types.Session, ag *agent.Agent, parentExchangeID string) (*outcome, error) {
	tracker := newStreamOffsetTracker()
	systemPrompt := d.buildSystemPrompt(sess, ag)
	sequence := sess.ToConversationSequence(d.cfg.JSONMode)
	messages := toEinoMessages(sequence, systemPrompt, d.cfg.JSONMode)

	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		select {
		case <-ctx.Done():
			return nil, ErrCancelled
		default:
		}

		providerID, modelID := d.modelForAttempt(n, ag)
		d.publish(event.InferenceStarted, event.InferenceStartedData{
			ExchangeData: event.ExchangeData{SessionID: sess.ID, ExchangeID: parentExchangeID},
			Attempt:      n,
		})

		out, err := d.runOneAttempt(ctx, sess, parentExchangeID, ag, providerID, modelID, messages, tracker)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
			return nil, ErrCancelled
		}
		if errors.Is(err, ErrProviderAuth) {
			return nil, err
		}

		logging.Warn().Str("session_id", sess.ID).Int("attempt", n).Err(err).Msg("driver attempt failed")
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrExhaustedRetries, lastErr)
}

// modelForAttempt alternates failover (odd) and primary (even)
// models, falling back to the agent's own model reference and finally
// the driver's primary configuration when either side is unset.
func (d *Driver) modelForAttempt(n int, ag *agent.Agent) (providerID, modelID string) {
	useFailover := n%2 == 1
	if useFailover && d.cfg.FailoverProviderID != "" {
		return d.cfg.FailoverProviderID, d.cfg.FailoverModelID
	}
	if ag != nil && ag.Model != nil && ag.Model.ProviderID != "" {
		return ag.Model.ProviderID, ag.Model.ModelID
	}
	return d.cfg.PrimaryProviderID, d.cfg.PrimaryModelID
}

// runOneAttempt performs a single provider round trip — with a short
// backoff-guarded sub-retry for purely transient transport errors —
// and parses the resulting completion into a tool invocation.
func (d *Driver) runOneAttempt(
	ctx context.Context,
	sess *types.Session,
	parentExchangeID string,
	ag *agent.Agent,
	providerID, modelID string,
	messages []*schema.Message,
	tracker *streamOffsetTracker,
) (*outcome, error) {
	prov, err := d.cfg.ProviderRegistry.Get(providerID)
	if err != nil {
		return nil, fmt.Errorf("resolve provider %s: %w", providerID, err)
	}

	req := &provider.CompletionRequest{Model: modelID, Messages: messages}
	if d.cfg.JSONMode {
		req.Tools = toolInfosForAgent(d.cfg.ToolRegistry, ag, sess.EnabledTools)
	}

	var content strings.Builder
	var toolCalls []schema.ToolCall
	var usage *types.TokenUsage

	operation := func() error {
		content.Reset()
		toolCalls = nil
		usage = nil

		stream, err := prov.CreateCompletion(ctx, req)
		if err != nil {
			if isTransientProviderError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		defer stream.Close()

		for {
			select {
			case <-ctx.Done():
				return backoff.Permanent(ErrCancelled)
			default:
			}

			chunk, recvErr := stream.Recv()
			if recvErr != nil {
				break
			}
			if chunk == nil {
				continue
			}

			content.WriteString(chunk.Content)
			if len(chunk.ToolCalls) > 0 {
				toolCalls = chunk.ToolCalls
			}
			if chunk.ResponseMeta != nil && chunk.ResponseMeta.Usage != nil {
				usage = &types.TokenUsage{
					Input:  chunk.ResponseMeta.Usage.PromptTokens,
					Output: chunk.ResponseMeta.Usage.CompletionTokens,
				}
			}

			d.emitStreamedThinking(sess.ID, parentExchangeID, tracker, content.String())
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		if errors.Is(err, ErrCancelled) {
			return nil, ErrCancelled
		}
		return nil, err
	}

	var out *outcome
	var err error
	if d.cfg.JSONMode {
		out, err = d.finishJSONMode(toolCalls, content.String())
	} else {
		out, err = d.finishTextMode(content.String())
	}
	if err != nil {
		return nil, err
	}
	out.usage = usage
	return out, nil
}

func (d *Driver) finishJSONMode(toolCalls []schema.ToolCall, content string) (*outcome, error) {
	if len(toolCalls) == 0 {
		if strings.TrimSpace(content) == "" {
			return nil, ErrEmptyCompletion
		}
		return nil, fmt.Errorf("%w: no tool call in json-mode response", ErrParseFailure)
	}

	call := toolCalls[0]
	return &outcome{
		toolKind:   types.ToolKind(call.Function.Name),
		parameters: json.RawMessage(call.Function.Arguments),
		thinking:   strings.TrimSpace(content),
		toolUseID:  call.ID,
	}, nil
}

func (d *Driver) finishTextMode(content string) (*outcome, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyCompletion
	}

	parsed, err := parseTextResponse(content)
	if err != nil {
		return nil, err
	}

	params, err := xmlBlockToJSON(parsed.InnerXML)
	if err != nil {
		return nil, err
	}

	return &outcome{
		toolKind:   types.ToolKind(parsed.ToolTag),
		parameters: params,
		thinking:   parsed.Thinking,
		toolUseID:  "",
	}, nil
}

// xmlBlockToJSON turns a flat run of sibling XML elements (a tool
// block's inner content) into a JSON object keyed by element name,
// since text-mode tool parameters have no Go struct to decode into.
func xmlBlockToJSON(innerXML string) (json.RawMessage, error) {
	dec := xml.NewDecoder(strings.NewReader(innerXML))
	fields := map[string]string{}

	var currentName string
	var currentText strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			currentName = t.Name.Local
			currentText.Reset()
		case xml.CharData:
			currentText.Write(t)
		case xml.EndElement:
			if currentName != "" {
				fields[currentName] = strings.TrimSpace(currentText.String())
				currentName = ""
			}
		}
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return raw, nil
}

// emitStreamedThinking feeds the accumulated buffer to the offset
// tracker and publishes top-level/symbol-level thinking deltas the
// first time each segment completes.
func (d *Driver) emitStreamedThinking(sessionID, exchangeID string, tracker *streamOffsetTracker, buf string) {
	if thinking, ok := tracker.FeedThinking(buf); ok {
		d.publish(event.AgenticTopLevelThinking, event.AgenticTopLevelThinkingData{
			ExchangeData: event.ExchangeData{SessionID: sessionID, ExchangeID: exchangeID},
			Delta:        thinking,
		})
	}
	for _, step := range tracker.FeedSteps(buf) {
		d.publish(event.AgenticSymbolLevelThink, event.AgenticSymbolLevelThinkingData{
			ExchangeData: event.ExchangeData{SessionID: sessionID, ExchangeID: exchangeID},
			Delta:        step,
		})
	}
}

// isTransientProviderError reports whether err looks like a
// retriable transport failure rather than a permanent rejection.
func isTransientProviderError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "connection reset", "503", "502", "429", "rate limit", "temporarily unavailable"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
