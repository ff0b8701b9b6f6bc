package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// codeBlockPattern matches a fenced block with an optional language tag.
// Captures: (1) language, (2) content.
var codeBlockPattern = regexp.MustCompile("(?s)```([A-Za-z]*)[ \\t]*\\r?\\n?(.*?)```")

// strayFencePattern matches fence markers left without a partner.
var strayFencePattern = regexp.MustCompile("```(?:json|JSON)?")

// StripCodeFences returns the JSON payload of a completion that may be wrapped
// in markdown. The first ```json or untagged block wins, even when surrounded
// by exposition. Without a complete block, stray fence markers are removed.
// Text that already parses as JSON is returned trimmed, so fences quoted
// inside its strings survive.
func StripCodeFences(s string) string {
	if trimmed := strings.TrimSpace(s); json.Valid([]byte(trimmed)) {
		return trimmed
	}
	for _, m := range codeBlockPattern.FindAllStringSubmatch(s, -1) {
		lang := strings.ToLower(m[1])
		if lang != "" && lang != "json" {
			continue
		}
		return strings.TrimSpace(m[2])
	}
	return strings.TrimSpace(strayFencePattern.ReplaceAllString(s, ""))
}
