package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/state"
)

// marshalState converts a state tree to JSON TEXT for storage. Insertion
// order is kept so a loaded snapshot lists entities as they were saved.
func marshalState(s state.State) (string, error) {
	data, err := s.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), nil
}

func unmarshalState(data string) (state.State, error) {
	var s state.State
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return state.State{}, fmt.Errorf("unmarshal state: %w", err)
	}
	return s, nil
}

// marshalAction converts an action to canonical JSON TEXT.
func marshalAction(a action.Action) (string, error) {
	data, err := ir.MarshalCanonical(a.Object())
	if err != nil {
		return "", fmt.Errorf("marshal action: %w", err)
	}
	return string(data), nil
}

func unmarshalAction(data string) (action.Action, error) {
	v, err := ir.Unmarshal([]byte(data))
	if err != nil {
		return action.Action{}, fmt.Errorf("unmarshal action: %w", err)
	}
	a, err := action.Decode(v)
	if err != nil {
		return action.Action{}, fmt.Errorf("unmarshal action: %w", err)
	}
	return a, nil
}
