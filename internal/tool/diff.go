package tool

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// editDiff is the unified diff CodeEditing reports back as part of its
// "I performed the edits… here is the git diff" observation, plus the
// line counts the driver surfaces in the exchange's metadata.
type editDiff struct {
	Text      string
	Additions int
	Deletions int
}

// computeEditDiff builds the unified diff between a file's before/after
// content for the CodeEditing tool's observation. path and baseDir are
// used only to render the +++ / --- headers relative to the session's
// working directory; an empty diff (no change) returns a zero-value
// editDiff.
func computeEditDiff(path, before, after, baseDir string) editDiff {
	if before == after {
		return editDiff{}
	}

	dmp := diffmatchpatch.New()
	charsBefore, charsAfter, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(charsBefore, charsAfter, false), lineArray)

	result := editDiff{}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			result.Additions += countNewlines(d.Text)
		case diffmatchpatch.DiffDelete:
			result.Deletions += countNewlines(d.Text)
		}
	}

	patchText := dmp.PatchToText(dmp.PatchMake(before, diffs))
	if patchText == "" {
		return result
	}

	rel := relativeToWorkDir(path, baseDir)
	var header strings.Builder
	if rel != "" {
		fmt.Fprintf(&header, "--- %s\n+++ %s\n", rel, rel)
	}
	header.WriteString(patchText)
	result.Text = header.String()
	return result
}

// buildDiffMetadata is the legacy three-value shape older call sites
// still use; it wraps computeEditDiff.
func buildDiffMetadata(path, before, after, baseDir string) (string, int, int) {
	d := computeEditDiff(path, before, after, baseDir)
	return d.Text, d.Additions, d.Deletions
}

// relativeToWorkDir renders path relative to baseDir when possible,
// falling back to the absolute path if they don't share a root.
func relativeToWorkDir(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if baseDir == "" {
		return path
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return path
	}
	return rel
}

// countNewlines counts the lines a diffmatchpatch segment spans,
// crediting a final partial line (one not ending in \n) as a line too.
func countNewlines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
