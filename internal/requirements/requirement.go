package requirements

import (
	"encoding/json"
	"slices"
	"strings"

	"saasywrap/internal/jsonutil"
	"saasywrap/internal/operation"
)

// Importance levels accepted for local edits.
const (
	ImportanceLow    = "low"
	ImportanceMedium = "medium"
	ImportanceHigh   = "high"
)

// Categories offered for local edits. Backend-supplied records may use others.
var DefaultCategories = []string{"frontend", "backend", "database", "uncategorized"}

// Change history entry types.
const (
	ChangeCreated            = "created"
	ChangeTitleChanged       = "title_changed"
	ChangeDescriptionChanged = "description_changed"
	ChangeImportanceChanged  = "importance_changed"
	ChangeCategoryChanged    = "category_changed"
	ChangeTagAdded           = "tag_added"
	ChangeModified           = "modified"
)

// Change is one append-only history entry.
type Change struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"userId"`
	Details   string `json:"details"`
}

// Requirement is a user- or AI-authored specification record.
type Requirement struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Importance    string   `json:"importance"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	DateAdded     string   `json:"dateAdded,omitempty"`
	DateModified  string   `json:"dateModified,omitempty"`
	CreatedBy     string   `json:"createdBy,omitempty"`
	ChangeHistory []Change `json:"changeHistory,omitempty"`

	// Extra keeps backend members this type does not model.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownFields = jsonutil.KnownFields(
	"id", "title", "description", "importance", "category", "tags",
	"dateAdded", "dateModified", "createdBy", "changeHistory",
)

type plainRequirement Requirement

// UnmarshalJSON decodes a requirement, retaining unknown members in Extra.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var plain plainRequirement
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	extra, err := jsonutil.SplitExtra(data, knownFields)
	if err != nil {
		return err
	}
	plain.Extra = extra
	*r = Requirement(plain)
	return nil
}

// MarshalJSON encodes a requirement together with its Extra members.
func (r Requirement) MarshalJSON() ([]byte, error) {
	plain := plainRequirement(r)
	if plain.Tags == nil {
		plain.Tags = []string{}
	}
	encoded, err := json.Marshal(plain)
	if err != nil {
		return nil, err
	}
	return jsonutil.MergeExtra(encoded, r.Extra)
}

// Clone returns a deep copy.
func (r Requirement) Clone() Requirement {
	out := r
	out.Tags = slices.Clone(r.Tags)
	out.ChangeHistory = slices.Clone(r.ChangeHistory)
	if r.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for key, value := range r.Extra {
			out.Extra[key] = slices.Clone(value)
		}
	}
	return out
}

// Ref returns the fields operation advisories compare.
func (r Requirement) Ref() operation.RequirementRef {
	return operation.RequirementRef{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Importance:  r.Importance,
	}
}

// ValidImportance reports whether value is low, medium, or high.
func ValidImportance(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	default:
		return false
	}
}
