package llm

import (
	"context"
	"encoding/json"

	"facetforge/internal/logging"
	"facetforge/internal/prompt"
)

// repairState is a step of the parse/repair cycle.
type repairState int

const (
	stateParsing repairState = iota
	stateRepairing
	stateFailed
)

func (s repairState) String() string {
	switch s {
	case stateParsing:
		return "parsing"
	case stateRepairing:
		return "repairing"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// resolver drives Parsing → Repairing → Parsing → Failed for one completion.
// At most one repair call is made.
type resolver struct {
	client *Client

	state    repairState
	text     string
	repaired bool
	parseErr error
	fixErr   error
}

// resolve turns raw completion text into a JSON value, asking the backend to
// fix its own output once if the first parse fails.
func (c *Client) resolve(ctx context.Context, raw string) (json.RawMessage, error) {
	r := &resolver{client: c, state: stateParsing, text: StripCodeFences(raw)}
	return r.run(ctx)
}

func (r *resolver) run(ctx context.Context) (json.RawMessage, error) {
	for {
		switch r.state {
		case stateParsing:
			value, err := decodeJSON(r.text)
			if err == nil {
				if r.repaired {
					logging.Generation("JSON repaired by backend")
					r.client.observer.ObserveRepair(true)
				}
				return value, nil
			}
			r.parseErr = err
			if r.repaired {
				r.state = stateFailed
			} else {
				logging.GenerationWarn("JSON parse failed, attempting repair: %v", err)
				r.state = stateRepairing
			}

		case stateRepairing:
			r.repaired = true
			fixed, err := r.client.call(ctx, CallRepair, prompt.Repair(r.text))
			if err != nil {
				r.fixErr = err
				r.state = stateFailed
				continue
			}
			r.text = StripCodeFences(fixed)
			r.state = stateParsing

		case stateFailed:
			r.client.observer.ObserveRepair(false)
			return nil, &ParseError{Cause: r.parseErr, Repair: r.fixErr}
		}
	}
}

// decodeJSON validates s and returns it as a raw JSON value.
func decodeJSON(s string) (json.RawMessage, error) {
	var v json.RawMessage
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
