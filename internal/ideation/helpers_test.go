package ideation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// stubGenerator answers prompts through respond and records them.
type stubGenerator struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (json.RawMessage, error)
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (json.RawMessage, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.respond(prompt)
}

func (g *stubGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

var categoryNamePattern = regexp.MustCompile(`(?m)^Name: (.+)$`)

func isCategoryPrompt(prompt string) bool {
	return strings.Contains(prompt, "category design assistant")
}

// promptCategory extracts the category name from an option prompt.
func promptCategory(prompt string) string {
	m := categoryNamePattern.FindStringSubmatch(prompt)
	if m == nil {
		return ""
	}
	return m[1]
}

func testCategories(n int) []Category {
	out := make([]Category, n)
	for i := range out {
		out[i] = Category{
			Name:           fmt.Sprintf("Category %d", i),
			Description:    fmt.Sprintf("Description %d", i),
			ExampleOptions: []string{fmt.Sprintf("example %d-a", i), fmt.Sprintf("example %d-b", i)},
		}
	}
	return out
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func optionsFor(name string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s option %d", name, i)
	}
	return out
}

// wellBehaved returns a responder producing n categories and m options per
// category.
func wellBehaved(n, m int) func(string) (json.RawMessage, error) {
	return func(prompt string) (json.RawMessage, error) {
		if isCategoryPrompt(prompt) {
			return mustJSON(testCategories(n)), nil
		}
		return mustJSON(optionsFor(promptCategory(prompt), m)), nil
	}
}
