package driver

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/agentic-session/orchestrator/internal/provider"
	"github.com/agentic-session/orchestrator/pkg/types"
)

const titleSystemPrompt = `You are a title generator. You output ONLY a thread title. Nothing else.

Generate a brief title that would help the user find this conversation later.

Rules:
- A single line, <=50 characters
- No explanations
- Use -ing verbs for actions (Debugging, Implementing, Analyzing)
- Keep exact: technical terms, numbers, filenames
- Remove: the, this, my, a, an
- Always output something meaningful

Examples:
"debug 500 errors in production" -> Debugging production 500 errors
"refactor user service" -> Refactoring user service
"implement rate limiting" -> Implementing rate limiting`

const defaultTitlePrefix = "New Session"

// isDefaultTitle checks if a title is still the placeholder assigned
// at session creation.
func isDefaultTitle(title string) bool {
	return title == defaultTitlePrefix || strings.HasPrefix(title, defaultTitlePrefix)
}

// EnsureTitle generates a title for sess from userContent if it is
// still using the default title. Called once, after the first human
// message of a top-level (non-forked) session.
func (d *Driver) EnsureTitle(ctx context.Context, sess *types.Session, userContent string) {
	if sess.ParentID != nil && *sess.ParentID != "" {
		return
	}
	if !isDefaultTitle(sess.Title) {
		return
	}

	model, err := d.cfg.ProviderRegistry.DefaultModel()
	if err != nil {
		return
	}
	prov, err := d.cfg.ProviderRegistry.Get(model.ProviderID)
	if err != nil {
		return
	}

	stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model: model.ID,
		Messages: []*schema.Message{
			{Role: schema.System, Content: titleSystemPrompt},
			{Role: schema.User, Content: "Generate a title for this conversation:\n\n" + userContent},
		},
		MaxTokens: 50,
	})
	if err != nil {
		return
	}
	defer stream.Close()

	var title strings.Builder
	for {
		msg, recvErr := stream.Recv()
		if recvErr != nil {
			break
		}
		title.WriteString(msg.Content)
	}

	titleText := strings.TrimSpace(title.String())
	for _, line := range strings.Split(titleText, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			titleText = line
			break
		}
	}
	if len(titleText) > 100 {
		titleText = titleText[:97] + "..."
	}
	if titleText == "" {
		return
	}

	d.cfg.SessionService.Update(ctx, sess.ID, map[string]any{"title": titleText})
}
