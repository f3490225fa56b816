package operation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle of an operation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	// StatusRolledBack is display-only; nothing in the executor produces it.
	StatusRolledBack Status = "rolled_back"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusRolledBack,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var statusIcons = map[Status]string{
	StatusPending:    "⭕",
	StatusInProgress: "⏳",
	StatusCompleted:  "✅",
	StatusFailed:     "❌",
	StatusRolledBack: "↩️",
}

var titleCaser = cases.Title(language.English)

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status. Unknown values report false.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Icon returns the glyph shown next to the status; unknown values render as pending.
func (s Status) Icon() string {
	if icon, ok := statusIcons[s]; ok {
		return icon
	}
	return statusIcons[StatusPending]
}

// Label returns a human-readable form such as "In Progress".
func (s Status) Label() string {
	if s == "" {
		return "Unknown"
	}
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}
