package jsonutil

import (
	"encoding/json"
	"fmt"
)

// Overlay shallow-merges patch over base and decodes the result into out.
// Top-level keys present in patch replace the corresponding keys of base;
// everything else is kept. base and out may point at the same value.
func Overlay(base any, patch json.RawMessage, out any) error {
	fields, err := Fields(base)
	if err != nil {
		return err
	}
	var updates map[string]json.RawMessage
	if err := json.Unmarshal(patch, &updates); err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}
	for key, value := range updates {
		fields[key] = value
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode merged value: %w", err)
	}
	if err := json.Unmarshal(merged, out); err != nil {
		return fmt.Errorf("decode merged value: %w", err)
	}
	return nil
}

// Fields encodes v and returns its top-level object members.
func Fields(v any) (map[string]json.RawMessage, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, fmt.Errorf("value is not a JSON object: %w", err)
	}
	return fields, nil
}
