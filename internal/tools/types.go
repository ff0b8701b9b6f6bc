// Package tools defines the callable tools facetforge exposes and the
// registry the MCP server dispatches through.
//
// Architecture:
//
//	tools/call → Registry.Execute() → Tool.Execute() → JSON envelope text
package tools

import (
	"context"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Minimum     *int   `json:"minimum,omitempty"`
	Maximum     *int   `json:"maximum,omitempty"`
}

// ToolSchema is the JSON schema of a tool's arguments object.
type ToolSchema struct {
	// Type is always "object"; Register fills it in.
	Type string `json:"type"`

	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// normalize fills the fields MCP clients expect to be present.
func (s *ToolSchema) normalize() {
	if s.Type == "" {
		s.Type = "object"
	}
	if s.Required == nil {
		s.Required = []string{}
	}
	if s.Properties == nil {
		s.Properties = map[string]Property{}
	}
}

// ExecuteFunc is the signature for tool execution.
// The result is the text returned to the caller. Domain failures are
// reported inside the text; the error is reserved for failures to run.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a named operation callable through the registry.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does to MCP clients.
	Description string

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Result is the string output from the tool.
	Result string

	// Error is set if the tool failed to run.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}

func intPtr(v int) *int { return &v }
