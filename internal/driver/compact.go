package driver

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/oklog/ulid/v2"

	"github.com/agentic-session/orchestrator/internal/provider"
	"github.com/agentic-session/orchestrator/pkg/types"
)

// CompactionConfig controls when and how much of the exchange log
// gets summarized to free up context budget.
type CompactionConfig struct {
	// MinExchangesToKeep is the minimum number of recent exchanges left
	// untouched at the tail of the log.
	MinExchangesToKeep int

	// SummaryMaxTokens bounds the generated summary's length.
	SummaryMaxTokens int

	// ContextThreshold is the fraction of a model's context window at
	// which compaction is due. Compact itself does not read it; it
	// compacts whenever it is called and the log is long enough.
	ContextThreshold float64
}

// DefaultCompactionConfig holds the thresholds Compact uses; Compact
// takes no CompactionConfig argument and always reads this value.
var DefaultCompactionConfig = CompactionConfig{
	MinExchangesToKeep: 4,
	SummaryMaxTokens:   2000,
	ContextThreshold:   0.75,
}

// Compact summarizes every exchange but the most recent
// MinExchangesToKeep, marking the summarized ones IsCompressed and
// inserting a synthetic AgentChat::Chat exchange carrying the summary
// in their place. No-op if the log is already short enough.
func (d *Driver) Compact(ctx context.Context, sess *types.Session) error {
	cfg := DefaultCompactionConfig

	live := liveExchangeIndices(sess)
	if len(live) <= cfg.MinExchangesToKeep {
		return nil
	}
	compactCount := len(live) - cfg.MinExchangesToKeep
	toCompact := live[:compactCount]

	now := time.Now().UnixMilli()
	sess.Time.Compacting = &now
	defer func() {
		sess.Time.Compacting = nil
		d.cfg.SessionService.SaveToStorage(ctx, sess)
	}()
	if err := d.cfg.SessionService.SaveToStorage(ctx, sess); err != nil {
		return err
	}

	summary, err := d.summarize(ctx, sess, compactCount, cfg)
	if err != nil {
		return err
	}

	for _, idx := range toCompact {
		sess.Exchanges[idx].IsCompressed = true
	}

	sess.Exchanges = append(sess.Exchanges, types.Exchange{
		ID:        ulid.Make().String(),
		Kind:      types.KindAgentChat,
		State:     types.StateAccepted,
		CreatedAt: time.Now().UnixMilli(),
		Agent: &types.AgentChat{
			ReplyKind: types.ReplyChat,
			Chat:      &types.ChatReply{Text: summary},
		},
	})

	return d.cfg.SessionService.SaveToStorage(ctx, sess)
}

// liveExchangeIndices returns the indices of exchanges eligible for
// compaction: not already compressed or hidden.
func liveExchangeIndices(sess *types.Session) []int {
	var idx []int
	for i, ex := range sess.Exchanges {
		if ex.IsCompressed || ex.IsHidden {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

// summarize asks the default model for a summary of the first
// compactCount entries of sess's conversation sequence. Those entries
// correspond 1:1, in order, to the first compactCount indices
// liveExchangeIndices returned, since ToConversationSequence applies
// the same IsCompressed/IsHidden filter before projecting.
func (d *Driver) summarize(ctx context.Context, sess *types.Session, compactCount int, cfg CompactionConfig) (string, error) {
	model, err := d.cfg.ProviderRegistry.DefaultModel()
	if err != nil {
		return "", err
	}
	prov, err := d.cfg.ProviderRegistry.Get(model.ProviderID)
	if err != nil {
		return "", err
	}

	var transcript strings.Builder
	sequence := sess.ToConversationSequence(false)
	if compactCount > len(sequence) {
		compactCount = len(sequence)
	}
	for _, msg := range sequence[:compactCount] {
		transcript.WriteString(msg.Role)
		transcript.WriteString(": ")
		transcript.WriteString(msg.Text)
		transcript.WriteString("\n")
	}

	stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model: model.ID,
		Messages: []*schema.Message{
			{Role: schema.System, Content: "You are a conversation summarizer. Create a concise summary of the conversation that preserves key context for continuing the discussion."},
			{Role: schema.User, Content: transcript.String()},
		},
		MaxTokens: cfg.SummaryMaxTokens,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var summary strings.Builder
	for {
		msg, recvErr := stream.Recv()
		if recvErr != nil {
			break
		}
		summary.WriteString(msg.Content)
	}

	return strings.TrimSpace(summary.String()), nil
}
