// Package prompt holds the prompt templates sent to the generative backend and
// the renderer that fills their {{PLACEHOLDER}} slots.
package prompt

import (
	"sort"
	"strings"
)

// Placeholder formats a placeholder name as it appears in templates.
func Placeholder(name string) string {
	return "{{" + name + "}}"
}

// Render returns template with every occurrence of each {{KEY}} in values
// replaced by its value. Placeholders with no value are left verbatim.
func Render(template string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(template, "{{") {
		return template // Fast path: nothing to substitute
	}

	// Sorted so the replacer is built identically on every call.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, Placeholder(k), values[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Unfilled lists placeholders still present in rendered, in order of first
// appearance. Callers use it to catch templates rendered with missing values.
func Unfilled(rendered string) []string {
	var names []string
	seen := make(map[string]bool)
	rest := rendered
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end < 0 {
			break
		}
		name := rest[start+2 : start+2+end]
		if name != "" && !strings.ContainsAny(name, " \n\t{") && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		rest = rest[start+2+end+2:]
	}
	return names
}
