// Package mcp serves the tool registry over the Model Context Protocol:
// JSON-RPC 2.0 messages, one per line, on stdin/stdout.
package mcp

import (
	"encoding/json"

	"facetforge/internal/tools"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// mcpRequest represents an inbound JSON-RPC request or notification.
// ID is absent for notifications and may be a number or a string.
type mcpRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the request expects no response.
func (r *mcpRequest) isNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// mcpResponse represents an outbound JSON-RPC response.
type mcpResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *mcpError       `json:"error,omitempty"`
}

// mcpError represents an error in MCP response.
type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ServerInfo identifies the server during initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

type serverCapabilities struct {
	Tools toolsCapability `json:"tools"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// MCPToolSchema is one entry of a tools/list result.
type MCPToolSchema struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema tools.ToolSchema `json:"inputSchema"`
}

type listToolsResult struct {
	Tools []MCPToolSchema `json:"tools"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// MCPContent is a content block of a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCPCallResult is the result of tools/call.
type MCPCallResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

func textResult(text string, isError bool) MCPCallResult {
	return MCPCallResult{Content: []MCPContent{{Type: "text", Text: text}}, IsError: isError}
}
