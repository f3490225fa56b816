package requirements

import (
	"fmt"
	"slices"
	"strings"

	"saasywrap/internal/services"
)

// Patch carries local field edits. Nil fields are left alone.
type Patch struct {
	Title       *string
	Description *string
	Importance  *string
	Category    *string
	AddTags     []string
}

type fieldEdit struct {
	kind    string
	summary string
	details string
}

// Update applies patch to the requirement with id and appends one history
// entry: the field-specific type when a single field changed, "modified" when
// several did. Edits that change nothing leave the record untouched and
// report false.
func (r *Registry) Update(id string, patch Patch) (Requirement, bool, error) {
	if patch.Importance != nil && !ValidImportance(*patch.Importance) {
		return Requirement{}, false, services.Wrap(
			services.ErrValidation, "requirements", "update",
			fmt.Sprintf("importance must be low, medium, or high (got %q)", *patch.Importance), nil,
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return Requirement{}, false, r.notFound(id)
	}
	req := r.items[idx].Clone()

	var edits []fieldEdit
	if patch.Title != nil && *patch.Title != req.Title {
		edits = append(edits, fieldEdit{
			kind:    ChangeTitleChanged,
			summary: fmt.Sprintf("title changed from %q to %q", req.Title, *patch.Title),
			details: fmt.Sprintf("Title changed from %q to %q", req.Title, *patch.Title),
		})
		req.Title = *patch.Title
	}
	if patch.Description != nil && *patch.Description != req.Description {
		edits = append(edits, fieldEdit{
			kind:    ChangeDescriptionChanged,
			summary: "description updated",
			details: "Description updated",
		})
		req.Description = *patch.Description
	}
	if patch.Importance != nil {
		value := strings.ToLower(strings.TrimSpace(*patch.Importance))
		if value != req.Importance {
			edits = append(edits, fieldEdit{
				kind:    ChangeImportanceChanged,
				summary: fmt.Sprintf("importance changed from %q to %q", req.Importance, value),
				details: "Importance changed to " + value,
			})
			req.Importance = value
		}
	}
	if patch.Category != nil {
		value := strings.TrimSpace(*patch.Category)
		if value != req.Category {
			edits = append(edits, fieldEdit{
				kind:    ChangeCategoryChanged,
				summary: fmt.Sprintf("category changed from %q to %q", req.Category, value),
				details: "Category changed to " + value,
			})
			req.Category = value
		}
	}
	for _, tag := range patch.AddTags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(req.Tags, tag) {
			continue
		}
		req.Tags = append(req.Tags, tag)
		edits = append(edits, fieldEdit{
			kind:    ChangeTagAdded,
			summary: fmt.Sprintf("tag %q added", tag),
			details: fmt.Sprintf("Tag %q added", tag),
		})
	}

	if len(edits) == 0 {
		return req, false, nil
	}

	now := r.timestamp()
	entry := Change{Timestamp: now, UserID: r.userID}
	if len(edits) == 1 {
		entry.Type = edits[0].kind
		entry.Details = edits[0].details
	} else {
		summaries := make([]string, len(edits))
		for i, edit := range edits {
			summaries[i] = edit.summary
		}
		entry.Type = ChangeModified
		entry.Details = strings.Join(summaries, ", ")
	}
	req.DateModified = now
	req.ChangeHistory = append(req.ChangeHistory, entry)
	r.items[idx] = req
	return req.Clone(), true, nil
}
