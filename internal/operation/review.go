package operation

import (
	"fmt"
	"slices"
	"strings"
)

// RequirementRef is the part of a requirement the list advisories compare.
type RequirementRef struct {
	ID          string
	Title       string
	Description string
	Importance  string
}

// Advisory kinds raised by ReviewRequirements.
const (
	AdvisoryDeletedRequirements  = "deleted_requirements"
	AdvisoryModifiedRequirements = "modified_requirements"
	AdvisoryUnlinkedOperations   = "unlinked_operations"
)

// Advisory is a cross-list consistency notice meant for the list's transcript.
type Advisory struct {
	Kind           string
	Message        string
	OperationIDs   []string
	RequirementIDs []string
}

// ReviewRequirements compares the list against a requirements change and
// reports operations that reference deleted or modified requirements, plus
// operations that implement no requirement at all. prev may be nil when the
// previous requirement set is unknown; modifications are then not reported.
func ReviewRequirements(kind Kind, ops []Operation, prev, cur []RequirementRef) []Advisory {
	current := make(map[string]RequirementRef, len(cur))
	for _, ref := range cur {
		current[ref.ID] = ref
	}
	previous := make(map[string]RequirementRef, len(prev))
	for _, ref := range prev {
		previous[ref.ID] = ref
	}

	var advisories []Advisory

	var deletedIDs []string
	var deletedOps []Operation
	for _, op := range ops {
		hit := false
		for _, reqID := range op.RequirementIDs {
			if _, ok := current[reqID]; ok {
				continue
			}
			hit = true
			if !slices.Contains(deletedIDs, reqID) {
				deletedIDs = append(deletedIDs, reqID)
			}
		}
		if hit {
			deletedOps = append(deletedOps, op)
		}
	}
	if len(deletedOps) > 0 {
		advisories = append(advisories, Advisory{
			Kind: AdvisoryDeletedRequirements,
			Message: fmt.Sprintf(
				"Requirements %s no longer exist but are still referenced by %ss: %s. "+
					"Reply to remove those %ss, drop the stale references, or point them at other requirements. "+
					"Deleted requirements can be restored from the requirements chat.",
				strings.Join(deletedIDs, ", "), kind.Noun, titles(deletedOps), kind.Noun,
			),
			OperationIDs:   ids(deletedOps),
			RequirementIDs: deletedIDs,
		})
	}

	if len(previous) > 0 {
		var modified []RequirementRef
		for _, ref := range cur {
			old, ok := previous[ref.ID]
			if !ok {
				continue
			}
			if old.Title != ref.Title || old.Description != ref.Description || old.Importance != ref.Importance {
				modified = append(modified, ref)
			}
		}
		var affected []Operation
		var modifiedIDs []string
		for _, ref := range modified {
			referenced := false
			for _, op := range ops {
				if op.References(ref.ID) {
					referenced = true
					if !slices.ContainsFunc(affected, func(o Operation) bool { return o.ID == op.ID }) {
						affected = append(affected, op)
					}
				}
			}
			if referenced {
				modifiedIDs = append(modifiedIDs, ref.ID)
			}
		}
		if len(affected) > 0 {
			names := make([]string, 0, len(modifiedIDs))
			for _, id := range modifiedIDs {
				names = append(names, displayTitle(current[id].Title, id))
			}
			advisories = append(advisories, Advisory{
				Kind: AdvisoryModifiedRequirements,
				Message: fmt.Sprintf(
					"Requirements changed: %s. Affected %ss: %s. "+
						"Reply to update those %ss, regenerate them, or keep them as they are.",
					strings.Join(names, ", "), kind.Noun, titles(affected), kind.Noun,
				),
				OperationIDs:   ids(affected),
				RequirementIDs: modifiedIDs,
			})
		}
	}

	var unlinked []Operation
	for _, op := range ops {
		if len(op.RequirementIDs) == 0 {
			unlinked = append(unlinked, op)
		}
	}
	if len(unlinked) > 0 && kind.Name == Blueprint.Name {
		advisories = append(advisories, Advisory{
			Kind: AdvisoryUnlinkedOperations,
			Message: fmt.Sprintf(
				"These %ss implement no requirement: %s. Reply to link them to requirements or remove them.",
				kind.Noun, titles(unlinked),
			),
			OperationIDs: ids(unlinked),
		})
	}

	return advisories
}

func titles(ops []Operation) string {
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, displayTitle(op.Title, op.ID))
	}
	return strings.Join(names, ", ")
}

func ids(ops []Operation) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.ID)
	}
	return out
}

func displayTitle(title, id string) string {
	if strings.TrimSpace(title) == "" {
		return id
	}
	return title
}
