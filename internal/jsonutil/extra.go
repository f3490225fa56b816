package jsonutil

import (
	"encoding/json"
	"fmt"
)

// SplitExtra returns the top-level members of data whose names are not in
// known. It returns nil when every member is known.
func SplitExtra(data []byte, known map[string]struct{}) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for key := range fields {
		if _, ok := known[key]; ok {
			delete(fields, key)
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// MergeExtra adds extra members to an encoded JSON object. Members already
// present in encoded win.
func MergeExtra(encoded []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return encoded, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	for key, value := range extra {
		if _, ok := fields[key]; ok {
			continue
		}
		fields[key] = value
	}
	return json.Marshal(fields)
}

// KnownFields builds the member-name set consumed by SplitExtra.
func KnownFields(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
