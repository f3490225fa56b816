package requirements

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"saasywrap/internal/operation"
	"saasywrap/internal/services"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seq := 0
	return NewRegistry(
		WithUserID("tester"),
		WithClock(func() time.Time { return clock }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("req-gen-%d", seq)
		}),
	)
}

func raw(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		out[i] = json.RawMessage(v)
	}
	return out
}

func titles(reqs []Requirement) []string {
	out := make([]string, len(reqs))
	for i, req := range reqs {
		out[i] = req.ID + ":" + req.Title
	}
	return out
}

func TestMergeUpdateThenDeleteNetsDeletion(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Load([]Requirement{{ID: "r1", Title: "A"}})

	result, err := reg.Merge(ChatUpdate{
		Requirements: raw(`{"id":"r1","title":"B"}`, `{"id":"r2","title":"C"}`),
		Deleted:      []string{"r1"},
	})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"r2:C"}, titles(reg.Snapshot())); diff != "" {
		t.Fatalf("registry mismatch (-want +got):\n%s", diff)
	}
	want := MergeResult{Added: []string{"r2"}, Updated: []string{"r1"}, Deleted: []string{"r1"}}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("merge result mismatch (-want +got):\n%s", diff)
	}
	added, _ := reg.Get("r2")
	if added.CreatedBy != "tester" || len(added.ChangeHistory) != 1 || added.ChangeHistory[0].Details != "Requirement generated by AI" {
		t.Fatalf("expected enriched requirement, got %+v", added)
	}
}

func TestMergeShallowOverlayKeepsUntouchedFields(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Load([]Requirement{{
		ID:            "r1",
		Title:         "A",
		Description:   "keep me",
		Importance:    "high",
		Tags:          []string{"auth"},
		DateAdded:     "2025-01-01T00:00:00.000Z",
		CreatedBy:     "someone",
		ChangeHistory: []Change{{Type: ChangeCreated, Details: "original"}},
	}})

	if _, err := reg.Merge(ChatUpdate{Requirements: raw(`{"id":"r1","title":"B","priority":2}`)}); err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	got, _ := reg.Get("r1")
	if got.Title != "B" || got.Description != "keep me" || got.Importance != "high" {
		t.Fatalf("unexpected merge %+v", got)
	}
	if got.DateAdded != "2025-01-01T00:00:00.000Z" || got.CreatedBy != "someone" {
		t.Fatalf("expected original metadata kept, got %+v", got)
	}
	if got.DateModified != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("expected refreshed dateModified, got %q", got.DateModified)
	}
	if len(got.ChangeHistory) != 1 || got.ChangeHistory[0].Details != "original" {
		t.Fatalf("expected history preserved, got %+v", got.ChangeHistory)
	}
	if string(got.Extra["priority"]) != "2" {
		t.Fatalf("expected unknown field kept, got %v", got.Extra)
	}
}

func TestMergeAssignsIDsToNewRecords(t *testing.T) {
	reg := newTestRegistry(t)
	result, err := reg.Merge(ChatUpdate{Requirements: raw(`{"title":"Login"}`)})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"req-gen-1"}, result.Added); diff != "" {
		t.Fatalf("added mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeRejectsMalformedWithoutChanges(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Load([]Requirement{{ID: "r1", Title: "A"}})
	_, err := reg.Merge(ChatUpdate{Requirements: raw(`{"id":"r2","title":"ok"}`, `"not an object"`)})
	if !errors.Is(err, services.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if diff := cmp.Diff([]string{"r1:A"}, titles(reg.Snapshot())); diff != "" {
		t.Fatalf("registry should be unchanged (-want +got):\n%s", diff)
	}
}

func TestDefaultIDFormat(t *testing.T) {
	reg := NewRegistry()
	req := reg.AddNew()
	parts := strings.Split(req.ID, "-")
	if len(parts) != 3 || parts[0] != "req" || len(parts[2]) != 9 {
		t.Fatalf("unexpected id format %q", req.ID)
	}
}

func TestAddNewDefaults(t *testing.T) {
	reg := newTestRegistry(t)
	req := reg.AddNew()
	want := Requirement{
		ID:           "req-gen-1",
		Title:        "New Requirement",
		Description:  "Add description here...",
		Importance:   ImportanceMedium,
		Category:     "uncategorized",
		Tags:         []string{},
		DateAdded:    "2026-03-01T12:00:00.000Z",
		DateModified: "2026-03-01T12:00:00.000Z",
		CreatedBy:    "tester",
		ChangeHistory: []Change{{
			Type:      ChangeCreated,
			Timestamp: "2026-03-01T12:00:00.000Z",
			UserID:    "tester",
			Details:   "Requirement created by user",
		}},
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Fatalf("new requirement mismatch (-want +got):\n%s", diff)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one requirement, got %d", reg.Len())
	}
}

func TestUpdateSingleFieldHistory(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Load([]Requirement{{ID: "r1", Title: "A", Importance: "low"}})

	title := "Better"
	got, changed, err := reg.Update("r1", Patch{Title: &title})
	if err != nil || !changed {
		t.Fatalf("Update returned changed=%v err=%v", changed, err)
	}
	last := got.ChangeHistory[len(got.ChangeHistory)-1]
	if last.Type != ChangeTitleChanged || last.Details != `Title changed from "A" to "Better"` || last.UserID != "tester" {
		t.Fatalf("unexpected history entry %+v", last)
	}

	if _, changed, _ := reg.Update("r1", Patch{Title: &title}); changed {
		t.Fatal("expected identical title to be a no-op")
	}
}

func TestUpdateSeveralFieldsRecordsModified(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Load([]Requirement{{ID: "r1", Title: "A", Importance: "low", Tags: []string{"x"}}})

	importance := "HIGH"
	category := "backend"
	got, changed, err := reg.Update("r1", Patch{Importance: &importance, Category: &category, AddTags: []string{"x", "y"}})
	if err != nil || !changed {
		t.Fatalf("Update returned changed=%v err=%v", changed, err)
	}
	if got.Importance != "high" || got.Category != "backend" {
		t.Fatalf("unexpected fields %+v", got)
	}
	if diff := cmp.Diff([]string{"x", "y"}, got.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if len(got.ChangeHistory) != 1 {
		t.Fatalf("expected one history entry, got %+v", got.ChangeHistory)
	}
	entry := got.ChangeHistory[0]
	if entry.Type != ChangeModified || !strings.Contains(entry.Details, `tag "y" added`) {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestUpdateValidation(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Load([]Requirement{{ID: "r1"}})
	bad := "urgent"
	if _, _, err := reg.Update("r1", Patch{Importance: &bad}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	title := "x"
	if _, _, err := reg.Update("ghost", Patch{Title: &title}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Load([]Requirement{{ID: "r1"}, {ID: "r2"}})
	if err := reg.Delete("r1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := reg.Delete("r1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if diff := cmp.Diff([]string{"r2:"}, titles(reg.Snapshot())); diff != "" {
		t.Fatalf("registry mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceEnrichesEveryRecord(t *testing.T) {
	reg := newTestRegistry(t)
	if err := reg.Replace(raw(`{"title":"A"}`, `{"id":"r9","title":"B","createdBy":"ai"}`)); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}
	got := reg.Snapshot()
	if got[0].ID != "req-gen-1" || got[1].CreatedBy != "ai" || got[0].CreatedBy != "tester" {
		t.Fatalf("unexpected enrichment %+v", got)
	}
}

func TestRequirementJSONUsesCamelCase(t *testing.T) {
	encoded, err := json.Marshal(Requirement{ID: "r1", DateAdded: "t", ChangeHistory: []Change{{Type: "created", UserID: "u"}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"dateAdded":"t"`, `"changeHistory":[`, `"userId":"u"`, `"tags":[]`} {
		if !strings.Contains(string(encoded), want) {
			t.Fatalf("encoded requirement missing %s: %s", want, encoded)
		}
	}
}

func TestReviewOperations(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Load([]Requirement{{ID: "r1", Title: "Users"}, {ID: "r2", Title: "Reports"}, {ID: "r3", Title: "Billing"}})
	ops := []operation.Operation{
		{ID: "t1", Title: "Schema", RequirementIDs: []string{"r1"}},
		{ID: "t2", Title: "Form", RequirementIDs: []string{"r1", "r2"}},
	}

	advisories := reg.ReviewOperations(operation.Blueprint, ops)
	if len(advisories) != 2 {
		t.Fatalf("expected two advisories, got %+v", advisories)
	}
	if diff := cmp.Diff([]string{"r3"}, advisories[0].RequirementIDs); diff != "" {
		t.Fatalf("unreferenced mismatch (-want +got):\n%s", diff)
	}
	if advisories[1].Kind != AdvisoryOverlapping {
		t.Fatalf("unexpected kind %q", advisories[1].Kind)
	}
	if diff := cmp.Diff([]string{"t1", "t2"}, advisories[1].OperationIDs, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("overlap ops mismatch (-want +got):\n%s", diff)
	}

	if got := reg.ReviewOperations(operation.Plan, []operation.Operation{{ID: "s1"}}); got != nil {
		t.Fatalf("expected unlinked list to be skipped, got %+v", got)
	}
}
