package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names an audit event.
type AuditEventType string

const (
	AuditBackendCall AuditEventType = "backend_call" // One dispatch to the generative backend
	AuditRunComplete AuditEventType = "run_complete" // One pipeline run, success or failure
	AuditToolCall    AuditEventType = "tool_call"    // One MCP tools/call execution
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"` // Unix milliseconds
	EventType  AuditEventType         `json:"event"`
	RunID      string                 `json:"run,omitempty"`
	Target     string                 `json:"target,omitempty"`
	Success    bool                   `json:"success"`
	Code       string                 `json:"code,omitempty"`
	DurationMs int64                  `json:"dur_ms"`
	Error      string                 `json:"error,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
	auditNow  = time.Now
)

// InitAudit opens path for appending audit events. An empty path leaves the
// audit trail disabled. Calling it again while open is a no-op.
func InitAudit(path string) error {
	if path == "" {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		_ = auditFile.Close()
		auditFile = nil
	}
}

// AuditEnabled reports whether InitAudit opened a file.
func AuditEnabled() bool {
	auditMu.Lock()
	defer auditMu.Unlock()
	return auditFile != nil
}

// Audit writes event as one JSON line. It does nothing until InitAudit.
func Audit(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = auditNow().UnixMilli()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = auditFile.Write(data)
}

// AuditBackend records a backend dispatch of the given kind.
func AuditBackend(kind string, elapsed time.Duration, err error) {
	Audit(AuditEvent{
		EventType:  AuditBackendCall,
		Target:     kind,
		Success:    err == nil,
		DurationMs: elapsed.Milliseconds(),
		Error:      errString(err),
	})
}

// AuditRun records the end of a pipeline run. code is empty on success.
func AuditRun(runID, subject, code string, elapsed time.Duration, fallbacks int) {
	event := AuditEvent{
		EventType:  AuditRunComplete,
		RunID:      runID,
		Target:     subject,
		Success:    code == "",
		Code:       code,
		DurationMs: elapsed.Milliseconds(),
	}
	if fallbacks > 0 {
		event.Fields = map[string]interface{}{"fallbacks": fallbacks}
	}
	Audit(event)
}

// AuditTool records one tool execution.
func AuditTool(tool string, elapsed time.Duration, err error) {
	Audit(AuditEvent{
		EventType:  AuditToolCall,
		Target:     tool,
		Success:    err == nil,
		DurationMs: elapsed.Milliseconds(),
		Error:      errString(err),
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
