package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"facetforge/internal/ideation"
	"facetforge/internal/logging"
)

// Registry maps tool names to tools. The MCP server lists and dispatches
// through it; registration normally happens once at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	names []string // sorted, rebuilt on Register
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds tool after checking its definition and filling in the
// schema defaults tools/list relies on.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("register %q: %w", tool.Name, err)
	}
	tool.Schema.normalize()
	for _, name := range tool.Schema.Required {
		if _, ok := tool.Schema.Properties[name]; !ok {
			return fmt.Errorf("register %q: %w: %s", tool.Name, ErrUndeclaredRequired, name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("register %q: %w", tool.Name, ErrToolAlreadyRegistered)
	}
	r.tools[tool.Name] = tool
	r.names = append(r.names, tool.Name)
	sort.Strings(r.names)

	logging.ToolsDebug("Registered tool %s (%d required args)", tool.Name, len(tool.Schema.Required))
	return nil
}

// MustRegister is Register for the built-in tools; a failure is a bug.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get returns the named tool or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// All returns the tools in name order, as tools/list reports them.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, len(r.names))
	for i, name := range r.names {
		out[i] = r.tools[name]
	}
	return out
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Execute looks up name and runs it. An unknown name wraps ErrToolNotFound.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return r.ExecuteTool(ctx, tool, args)
}

// ExecuteTool checks required arguments, then runs tool. The returned
// result is never nil, so callers can log its duration on failure too.
func (r *Registry) ExecuteTool(ctx context.Context, tool *Tool, args map[string]any) (*ToolResult, error) {
	start := time.Now()
	res := &ToolResult{ToolName: tool.Name}

	if err := checkRequired(tool.Schema, args); err != nil {
		res.Error = err
		res.DurationMs = time.Since(start).Milliseconds()
		return res, err
	}

	res.Result, res.Error = tool.Execute(ctx, args)
	elapsed := time.Since(start)
	res.DurationMs = elapsed.Milliseconds()

	if res.Error != nil {
		logging.Get(logging.CategoryTools).Warn("Tool %s failed after %v: %v", tool.Name, elapsed, res.Error)
	} else {
		logging.Tools("Tool %s completed in %v", tool.Name, elapsed)
	}
	return res, res.Error
}

// checkRequired reports the first required argument, in schema order, that
// is absent or null.
func checkRequired(schema ToolSchema, args map[string]any) error {
	for _, name := range schema.Required {
		if v, ok := args[name]; !ok || v == nil {
			return fmt.Errorf("%w: %w", ErrMissingRequiredArg,
				&ideation.ValidationError{Field: name, Index: -1, Reason: "is required"})
		}
	}
	return nil
}
