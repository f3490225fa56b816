package requirements

import (
	"fmt"
	"strings"

	"saasywrap/internal/operation"
)

// Advisory kinds raised by ReviewOperations.
const (
	AdvisoryUnreferenced = "unreferenced_requirements"
	AdvisoryOverlapping  = "overlapping_requirements"
)

// ReviewOperations checks the registry against an operation list and reports
// requirements no operation implements and requirements implemented by more
// than one operation. Lists that carry no requirement links at all are skipped.
func (r *Registry) ReviewOperations(kind operation.Kind, ops []operation.Operation) []operation.Advisory {
	linked := false
	for _, op := range ops {
		if len(op.RequirementIDs) > 0 {
			linked = true
			break
		}
	}
	if !linked {
		return nil
	}

	reqs := r.Snapshot()
	implementers := make(map[string][]operation.Operation, len(reqs))
	for _, op := range ops {
		for _, id := range op.RequirementIDs {
			implementers[id] = append(implementers[id], op)
		}
	}

	var advisories []operation.Advisory

	var unreferenced []Requirement
	for _, req := range reqs {
		if len(implementers[req.ID]) == 0 {
			unreferenced = append(unreferenced, req)
		}
	}
	if len(unreferenced) > 0 {
		advisories = append(advisories, operation.Advisory{
			Kind: AdvisoryUnreferenced,
			Message: fmt.Sprintf(
				"No %s implements these requirements: %s. Reply to have the %s cover them, or remove the requirements.",
				kind.Noun, requirementTitles(unreferenced), kind.Name,
			),
			RequirementIDs: requirementIDs(unreferenced),
		})
	}

	var overlapping []Requirement
	var lines []string
	var opIDs []string
	for _, req := range reqs {
		impl := implementers[req.ID]
		if len(impl) < 2 {
			continue
		}
		overlapping = append(overlapping, req)
		names := make([]string, len(impl))
		for i, op := range impl {
			names[i] = op.Title
			opIDs = appendUnique(opIDs, op.ID)
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", displayTitle(req), strings.Join(names, ", ")))
	}
	if len(overlapping) > 0 {
		advisories = append(advisories, operation.Advisory{
			Kind: AdvisoryOverlapping,
			Message: fmt.Sprintf(
				"Several %ss implement the same requirement: %s. Reply if they should be merged or split differently.",
				kind.Noun, strings.Join(lines, "; "),
			),
			OperationIDs:   opIDs,
			RequirementIDs: requirementIDs(overlapping),
		})
	}
	return advisories
}

func requirementTitles(reqs []Requirement) string {
	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = displayTitle(req)
	}
	return strings.Join(names, ", ")
}

func requirementIDs(reqs []Requirement) []string {
	ids := make([]string, len(reqs))
	for i, req := range reqs {
		ids[i] = req.ID
	}
	return ids
}

func displayTitle(req Requirement) string {
	if strings.TrimSpace(req.Title) == "" {
		return req.ID
	}
	return req.Title
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}
