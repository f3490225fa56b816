package operation

import "strings"

// Kind names the endpoints and payload fields used by one flavour of list.
type Kind struct {
	// Name is the stable identifier used in storage, logs, and the CLI.
	Name string
	// Noun is the singular display noun ("transform", "step").
	Noun string

	GeneratePath string
	ChatPath     string
	ExecutePath  string

	// ListField holds the list in generate and chat responses.
	ListField string
	// CurrentField carries the current list in chat requests.
	CurrentField string
	// IDField carries the operation id in execute requests.
	IDField string
	// ChangeField holds the new operation inside an "add" chat change.
	ChangeField string
}

var (
	// Blueprint is the list of blueprint transforms.
	Blueprint = Kind{
		Name:         "blueprint",
		Noun:         "transform",
		GeneratePath: "/api/generate-blueprint",
		ChatPath:     "/api/chat/blueprint",
		ExecutePath:  "/api/execute-blueprint-transform",
		ListField:    "blueprint",
		CurrentField: "currentBlueprint",
		IDField:      "transformId",
		ChangeField:  "transform",
	}
	// Plan is the list of plan steps.
	Plan = Kind{
		Name:         "plan",
		Noun:         "step",
		GeneratePath: "/api/generate-plan",
		ChatPath:     "/api/chat/plans",
		ExecutePath:  "/api/execute-plan-step",
		ListField:    "plans",
		CurrentField: "currentPlans",
		IDField:      "stepId",
		ChangeField:  "step",
	}
)

// Kinds returns every list kind.
func Kinds() []Kind {
	return []Kind{Blueprint, Plan}
}

// KindByName resolves a kind from its name; "plans" is accepted for Plan.
func KindByName(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Blueprint.Name:
		return Blueprint, true
	case Plan.Name, "plans":
		return Plan, true
	default:
		return Kind{}, false
	}
}

func (k Kind) String() string {
	return k.Name
}
