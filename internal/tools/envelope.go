package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"facetforge/internal/ideation"
)

// envelope is the response shape shared by every tool:
// {"success":true,"data":...} or {"success":false,"error":{...}}.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   *ideation.Failure `json:"error,omitempty"`
}

// encode renders v as the pretty-printed text returned to clients.
func encode(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode tool response: %w", err)
	}
	return string(b), nil
}

// FailureText renders err as a failure envelope. Used when a tool cannot
// produce its own envelope, for example on missing arguments.
func FailureText(err error) string {
	text, encErr := encode(envelope{Success: false, Error: ideation.NewFailure(err)})
	if encErr != nil {
		return fmt.Sprintf(`{"success":false,"error":{"code":%q,"message":%q}}`,
			ideation.CodeInternalError, err.Error())
	}
	return text
}

// decodeArgs copies the loosely typed MCP arguments into dst, which holds
// the defaults for absent keys.
func decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgType, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%w: %w", ErrInvalidArgType, &ideation.ValidationError{
				Field:  typeErr.Field,
				Index:  -1,
				Reason: "must be of type " + typeErr.Type.String(),
			})
		}
		return fmt.Errorf("%w: %w", ErrInvalidArgType, &ideation.ValidationError{
			Field: "arguments", Index: -1, Reason: err.Error(),
		})
	}
	return nil
}
