package operation

import (
	"encoding/json"
	"slices"

	"saasywrap/internal/jsonutil"
)

// Operation is one remotely executed unit of work.
type Operation struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         Status   `json:"status"`
	EstimatedTime  string   `json:"estimated_time,omitempty"`
	Dependencies   []string `json:"dependencies"`
	RequirementIDs []string `json:"requirement_ids"`
	TransformType  string   `json:"transform_type,omitempty"`
	Type           string   `json:"type,omitempty"`

	// Extra keeps members the backend sent that this type does not model, so
	// they round-trip back in chat requests.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownFields = jsonutil.KnownFields(
	"id", "title", "description", "status", "estimated_time",
	"dependencies", "requirement_ids", "transform_type", "type",
)

type plainOperation Operation

// UnmarshalJSON decodes an operation, retaining unknown members in Extra.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var plain plainOperation
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	extra, err := jsonutil.SplitExtra(data, knownFields)
	if err != nil {
		return err
	}
	plain.Extra = extra
	*o = Operation(plain)
	return nil
}

// MarshalJSON encodes an operation together with its Extra members.
func (o Operation) MarshalJSON() ([]byte, error) {
	plain := plainOperation(o)
	if plain.Dependencies == nil {
		plain.Dependencies = []string{}
	}
	if plain.RequirementIDs == nil {
		plain.RequirementIDs = []string{}
	}
	encoded, err := json.Marshal(plain)
	if err != nil {
		return nil, err
	}
	return jsonutil.MergeExtra(encoded, o.Extra)
}

// Clone returns a deep copy.
func (o Operation) Clone() Operation {
	out := o
	out.Dependencies = slices.Clone(o.Dependencies)
	out.RequirementIDs = slices.Clone(o.RequirementIDs)
	if o.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(o.Extra))
		for key, value := range o.Extra {
			out.Extra[key] = slices.Clone(value)
		}
	}
	return out
}

// References reports whether the operation implements requirement id.
func (o Operation) References(id string) bool {
	return slices.Contains(o.RequirementIDs, id)
}

// Decode parses backend-supplied operations, normalizing missing or unknown
// statuses to pending.
func Decode(items []json.RawMessage) ([]Operation, error) {
	out := make([]Operation, 0, len(items))
	for _, raw := range items {
		var op Operation
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, err
		}
		if status, ok := ParseStatus(string(op.Status)); ok {
			op.Status = status
		} else {
			op.Status = StatusPending
		}
		out = append(out, op)
	}
	return out, nil
}
