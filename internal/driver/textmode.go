package driver

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

var (
	thinkingBlockRe = regexp.MustCompile(`(?s)<thinking>(.*?)</thinking>`)
	toolBlockRe     = regexp.MustCompile(`(?s)<(\w+)>(.*)</(\w+)>\s*$`)
	stepListRe      = regexp.MustCompile(`(?s)<step_list>(.*?)</step_list>`)
	stepRe          = regexp.MustCompile(`(?s)<step>(.*?)</step>`)
)

// textResponse is what a successful text-mode parse yields: the
// thinking preamble plus the tool's tag name and raw inner XML.
type textResponse struct {
	Thinking  string
	ToolTag   string
	InnerXML  string
}

// parseTextResponse extracts <thinking> and the trailing tool-tagged
// block from a complete text-mode completion. The tool block is
// expected to be the last top-level tag in the response. Plain text
// before it is ignored; a second top-level tag besides <thinking>, or
// a closing tag that does not match the opening one, is a parse
// failure.
func parseTextResponse(content string) (*textResponse, error) {
	thinking := ""
	if m := thinkingBlockRe.FindStringSubmatch(content); m != nil {
		thinking = strings.TrimSpace(m[1])
		content = thinkingBlockRe.ReplaceAllString(content, "")
	}

	m := toolBlockRe.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil || m[1] != m[3] {
		return nil, fmt.Errorf("%w: no tool block found in response", ErrParseFailure)
	}

	return &textResponse{Thinking: thinking, ToolTag: m[1], InnerXML: m[2]}, nil
}

// decodeToolParams unmarshals a tool block's inner XML into dst, which
// must be a pointer to a struct whose fields carry `xml:"..."` tags
// matching the tool's parameter names.
func decodeToolParams(innerXML string, dst any) error {
	wrapped := "<params>" + innerXML + "</params>"
	if err := xml.Unmarshal([]byte(wrapped), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

// streamOffsetTracker incrementally extracts <thinking> and each
// completed <step_list><step> entry from a growing buffer, emitting
// each segment exactly once regardless of how many times Feed is
// called with the accumulated text so far. Re-parsing the whole buffer
// on every delta is acceptable for correctness; what matters is that
// lastStepOffset prevents re-emitting steps already handed out.
type streamOffsetTracker struct {
	thinkingEmitted bool
	lastStepOffset  int
}

// newStreamOffsetTracker creates a tracker for one request's lifetime.
func newStreamOffsetTracker() *streamOffsetTracker {
	return &streamOffsetTracker{}
}

// FeedThinking returns the <thinking> content the first time its
// closing tag appears in buf, and "" (ok=false) on every call after.
func (t *streamOffsetTracker) FeedThinking(buf string) (thinking string, ok bool) {
	if t.thinkingEmitted {
		return "", false
	}
	m := thinkingBlockRe.FindStringSubmatch(buf)
	if m == nil {
		return "", false
	}
	t.thinkingEmitted = true
	return strings.TrimSpace(m[1]), true
}

// FeedSteps returns any <step> entries inside a <step_list> block that
// have completed since the last call, in order.
func (t *streamOffsetTracker) FeedSteps(buf string) []string {
	start := strings.Index(buf, "<step_list>")
	if start < 0 {
		return nil
	}
	listContent := buf[start+len("<step_list>"):]
	if end := strings.Index(listContent, "</step_list>"); end >= 0 {
		listContent = listContent[:end]
	}

	var fresh []string
	offset := 0
	for _, m := range stepRe.FindAllStringSubmatchIndex(listContent, -1) {
		stepEnd := m[1]
		if stepEnd <= t.lastStepOffset {
			continue
		}
		fresh = append(fresh, strings.TrimSpace(listContent[m[2]:m[3]]))
		offset = stepEnd
	}
	if offset > t.lastStepOffset {
		t.lastStepOffset = offset
	}
	return fresh
}
