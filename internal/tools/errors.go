package tools

import "errors"

// Registration failures. They surface at startup, never to MCP clients.
var (
	ErrToolNameEmpty         = errors.New("tools: tool has no name")
	ErrToolExecuteNil        = errors.New("tools: tool has no execute function")
	ErrToolAlreadyRegistered = errors.New("tools: tool name already registered")

	// ErrUndeclaredRequired means a required argument is missing from the
	// schema properties, so tools/list would advertise an unusable schema.
	ErrUndeclaredRequired = errors.New("tools: required argument not declared in schema properties")
)

// tools/call failures. The argument errors also wrap an
// ideation.ValidationError naming the field, so the failure envelope
// reports VALIDATION_ERROR.
var (
	ErrToolNotFound       = errors.New("unknown tool")
	ErrMissingRequiredArg = errors.New("tools/call arguments lack a required field")
	ErrInvalidArgType     = errors.New("tools/call argument has the wrong JSON type")
)
