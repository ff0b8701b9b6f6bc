package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"facetforge/internal/logging"
	"facetforge/internal/tools"
)

// maxMessageSize bounds a single inbound line.
const maxMessageSize = 4 * 1024 * 1024

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Info ServerInfo
	// MaxConcurrentCalls bounds tools/call executions in flight. Zero means 1.
	MaxConcurrentCalls int64
}

// CallObserver receives tools/call outcomes.
type CallObserver interface {
	ObserveToolCall(tool string, elapsed time.Duration, err error)
}

// Server dispatches MCP requests to a tool registry.
type Server struct {
	registry *tools.Registry
	info     ServerInfo
	sem      *semaphore.Weighted
	observer CallObserver

	writeMu sync.Mutex
	enc     *json.Encoder
}

// NewServer creates a server for registry.
func NewServer(registry *tools.Registry, cfg ServerConfig) *Server {
	limit := cfg.MaxConcurrentCalls
	if limit <= 0 {
		limit = 1
	}
	info := cfg.Info
	if info.Name == "" {
		info.Name = "facetforge"
	}
	return &Server{
		registry: registry,
		info:     info,
		sem:      semaphore.NewWeighted(limit),
	}
}

// SetObserver reports tool calls to o.
func (s *Server) SetObserver(o CallObserver) {
	s.observer = o
}

// Serve reads requests from r and writes responses to w until r reaches EOF
// or ctx is cancelled. Tool calls run concurrently with reading, bounded by
// MaxConcurrentCalls; Serve waits for them before returning.
//
// When r is an io.Closer it is closed on cancel so the reader goroutine
// ends. Otherwise that goroutine stays blocked in Read until r returns,
// which for os.Stdin means until the process exits.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.enc = json.NewEncoder(w)

	done := make(chan struct{})
	var stopOnce sync.Once
	stopReader := func() { stopOnce.Do(func() { close(done) }) }
	defer stopReader()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		readErr <- readLines(r, lines, done)
	}()

	var calls errgroup.Group
	logging.MCP("MCP server %s %s listening on stdio", s.info.Name, s.info.Version)

	for {
		select {
		case <-ctx.Done():
			stopReader()
			if c, ok := r.(io.Closer); ok {
				_ = c.Close()
			}
			_ = calls.Wait()
			logging.MCP("MCP server stopping: %v", ctx.Err())
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				_ = calls.Wait()
				err := <-readErr
				if err != nil {
					logging.MCPError("Reading stdin failed: %v", err)
					return fmt.Errorf("read requests: %w", err)
				}
				logging.MCP("MCP client closed the stream")
				return nil
			}
			s.handleLine(ctx, line, &calls)
		}
	}
}

// readLines splits r into lines and feeds them to out until EOF or done.
func readLines(r io.Reader, out chan<- []byte, done <-chan struct{}) error {
	defer close(out)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg := make([]byte, len(line))
		copy(msg, line)
		select {
		case out <- msg:
		case <-done:
			return nil
		}
	}
	return scanner.Err()
}

func (s *Server) handleLine(ctx context.Context, line []byte, calls *errgroup.Group) {
	var req mcpRequest
	if err := json.Unmarshal(line, &req); err != nil {
		logging.MCPDebug("Unparseable message: %v", err)
		s.writeError(nil, CodeParseError, "Parse error", err.Error())
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		if !req.isNotification() {
			s.writeError(req.ID, CodeInvalidRequest, "Invalid Request", nil)
		}
		return
	}

	logging.MCPDebug("<- %s", req.Method)

	if req.isNotification() {
		switch req.Method {
		case "notifications/initialized", "notifications/cancelled":
		default:
			logging.MCPDebug("Ignoring notification %s", req.Method)
		}
		return
	}

	switch req.Method {
	case "initialize":
		s.writeResult(req.ID, initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    serverCapabilities{Tools: toolsCapability{ListChanged: false}},
			ServerInfo:      s.info,
		})
	case "ping":
		s.writeResult(req.ID, struct{}{})
	case "tools/list":
		s.writeResult(req.ID, s.listTools())
	case "tools/call":
		s.startCall(ctx, req, calls)
	default:
		s.writeError(req.ID, CodeMethodNotFound, "Method not found", req.Method)
	}
}

func (s *Server) listTools() listToolsResult {
	all := s.registry.All()
	out := listToolsResult{Tools: make([]MCPToolSchema, 0, len(all))}
	for _, t := range all {
		out.Tools = append(out.Tools, MCPToolSchema{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema,
		})
	}
	return out
}

// startCall validates a tools/call request and runs it in the background.
func (s *Server) startCall(ctx context.Context, req mcpRequest, calls *errgroup.Group) {
	var params callToolParams
	if len(req.Params) == 0 {
		s.writeError(req.ID, CodeInvalidParams, "Invalid params", "missing params")
		return
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		detail := "missing tool name"
		if err != nil {
			detail = err.Error()
		}
		s.writeError(req.ID, CodeInvalidParams, "Invalid params", detail)
		return
	}
	tool := s.registry.Get(params.Name)
	if tool == nil {
		s.writeError(req.ID, CodeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name), nil)
		return
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	calls.Go(func() error {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.writeError(req.ID, CodeInternalError, "Server shutting down", err.Error())
			return nil
		}
		defer s.sem.Release(1)

		s.writeResult(req.ID, s.runTool(ctx, tool, params.Arguments))
		return nil
	})
}

// runTool executes tool and converts every outcome into a call result.
// Domain failures stay inside the envelope text.
func (s *Server) runTool(ctx context.Context, tool *tools.Tool, args map[string]any) (result MCPCallResult) {
	start := time.Now()
	var runErr error
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("tool %s panicked: %v", tool.Name, r)
			logging.MCPError("%v", runErr)
			result = textResult(tools.FailureText(runErr), true)
		}
		elapsed := time.Since(start)
		logging.AuditTool(tool.Name, elapsed, runErr)
		if s.observer != nil {
			s.observer.ObserveToolCall(tool.Name, elapsed, runErr)
		}
	}()

	res, err := s.registry.ExecuteTool(ctx, tool, args)
	if err != nil {
		runErr = err
		if !errors.Is(err, tools.ErrMissingRequiredArg) {
			logging.MCPError("Tool %s failed: %v", tool.Name, err)
		}
		return textResult(tools.FailureText(err), true)
	}
	return textResult(res.Result, false)
}

func (s *Server) writeResult(id json.RawMessage, result any) {
	s.write(mcpResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) writeError(id json.RawMessage, code int, message string, data any) {
	s.write(mcpResponse{JSONRPC: "2.0", ID: id, Error: &mcpError{Code: code, Message: message, Data: data}})
}

func (s *Server) write(resp mcpResponse) {
	if resp.ID == nil {
		resp.ID = json.RawMessage("null")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.enc.Encode(resp); err != nil {
		logging.MCPError("Writing response failed: %v", err)
	}
}
