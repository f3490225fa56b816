package operation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"saasywrap/internal/services"
)

func sampleOps() []Operation {
	return []Operation{
		{ID: "t1", Title: "Schema", Status: StatusPending, RequirementIDs: []string{"r1"}},
		{ID: "t2", Title: "Form", Status: StatusPending, RequirementIDs: []string{"r1", "r2"}},
		{ID: "t3", Title: "Dashboard", Status: StatusPending},
	}
}

func TestParseStatusAndLabels(t *testing.T) {
	if status, ok := ParseStatus(" In_Progress "); !ok || status != StatusInProgress {
		t.Fatalf("unexpected parse %q %v", status, ok)
	}
	if _, ok := ParseStatus("exploded"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if StatusRolledBack.Label() != "Rolled Back" {
		t.Fatalf("unexpected label %q", StatusRolledBack.Label())
	}
	if Status("weird").Icon() != StatusPending.Icon() {
		t.Fatal("expected unknown status to use the pending icon")
	}
	if StatusCompleted.Icon() != "✅" {
		t.Fatalf("unexpected icon %q", StatusCompleted.Icon())
	}
}

func TestKindByName(t *testing.T) {
	if kind, ok := KindByName("plans"); !ok || kind.IDField != "stepId" {
		t.Fatalf("unexpected plan kind %+v", kind)
	}
	if kind, ok := KindByName("Blueprint"); !ok || kind.ExecutePath != "/api/execute-blueprint-transform" {
		t.Fatalf("unexpected blueprint kind %+v", kind)
	}
	if _, ok := KindByName("roadmap"); ok {
		t.Fatal("expected unknown kind")
	}
}

func TestOperationJSONRoundTripKeepsExtra(t *testing.T) {
	raw := `{"id":"t1","title":"Schema","status":"pending","transform_type":"schema","implementation":{"sql":"create table"}}`
	var op Operation
	if err := json.Unmarshal([]byte(raw), &op); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if op.TransformType != "schema" || string(op.Extra["implementation"]) != `{"sql":"create table"}` {
		t.Fatalf("unexpected decode %+v", op)
	}
	encoded, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"implementation":{"sql":"create table"}`, `"requirement_ids":[]`, `"dependencies":[]`} {
		if !strings.Contains(string(encoded), want) {
			t.Fatalf("encoded operation missing %s: %s", want, encoded)
		}
	}
}

func TestDecodeNormalizesStatus(t *testing.T) {
	ops, err := Decode([]json.RawMessage{
		json.RawMessage(`{"id":"a","status":"COMPLETED"}`),
		json.RawMessage(`{"id":"b"}`),
		json.RawMessage(`{"id":"c","status":"queued"}`),
	})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	got := []Status{ops[0].Status, ops[1].Status, ops[2].Status}
	want := []Status{StatusCompleted, StatusPending, StatusPending}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestListReplaceAssignsIDsAndRejectsDuplicates(t *testing.T) {
	list := NewList(Plan)
	if err := list.Replace([]Operation{{Title: "no id"}, {ID: "s2"}}); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}
	ids := list.IDs()
	if len(ids) != 2 || !strings.HasPrefix(ids[0], "step-") || ids[1] != "s2" {
		t.Fatalf("unexpected ids %v", ids)
	}

	err := list.Replace([]Operation{{ID: "x"}, {ID: "x"}})
	if !errors.Is(err, services.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if list.Len() != 2 {
		t.Fatal("expected list unchanged after rejected replace")
	}
}

func TestListSnapshotIsIndependent(t *testing.T) {
	list := NewList(Blueprint)
	if err := list.Replace(sampleOps()); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}
	snap := list.Snapshot()
	snap[0].Title = "mutated"
	snap[1].RequirementIDs[0] = "zz"
	op, _ := list.Get("t1")
	if op.Title != "Schema" {
		t.Fatal("snapshot mutation leaked into list")
	}
	op2, _ := list.Get("t2")
	if op2.RequirementIDs[0] != "r1" {
		t.Fatal("snapshot slice mutation leaked into list")
	}
}

func TestSetStatusAndFirstPending(t *testing.T) {
	list := NewList(Blueprint)
	_ = list.Replace(sampleOps())

	if _, err := list.SetStatus("t1", StatusCompleted); err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	next, ok := list.FirstPending()
	if !ok || next.ID != "t2" {
		t.Fatalf("expected t2 pending, got %+v", next)
	}
	if _, err := list.SetStatus("missing", StatusFailed); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := list.SetStatus("t1", Status("bogus")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMarkRolledBack(t *testing.T) {
	list := NewList(Blueprint)
	_ = list.Replace(sampleOps())
	if _, err := list.MarkRolledBack("t1"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected pending operation to be rejected, got %v", err)
	}
	_, _ = list.SetStatus("t1", StatusFailed)
	op, err := list.MarkRolledBack("t1")
	if err != nil {
		t.Fatalf("MarkRolledBack returned error: %v", err)
	}
	if op.Status != StatusRolledBack {
		t.Fatalf("unexpected status %s", op.Status)
	}
}

func TestApplyChanges(t *testing.T) {
	list := NewList(Blueprint)
	_ = list.Replace(sampleOps())

	changes, err := DecodeChanges(Blueprint, []json.RawMessage{
		json.RawMessage(`{"type":"add","transform":{"id":"t4","title":"Auth","transform_type":"schema"}}`),
		json.RawMessage(`{"type":"modify","id":"t2","updates":{"title":"Better Form","requirement_ids":["r2"],"id":"hijack"}}`),
		json.RawMessage(`{"type":"remove","id":"t3"}`),
		json.RawMessage(`{"type":"remove","id":"ghost"}`),
		json.RawMessage(`{"type":"add","transform":{"id":"t1","title":"dup"}}`),
	})
	if err != nil {
		t.Fatalf("DecodeChanges returned error: %v", err)
	}
	result := list.Apply(changes)

	want := ApplyResult{
		Added:    []string{"t4"},
		Modified: []string{"t2"},
		Removed:  []string{"t3"},
		Skipped:  []string{"ghost", "t1"},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("apply result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t1", "t2", "t4"}, list.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	modified, _ := list.Get("t2")
	if modified.Title != "Better Form" || modified.Status != StatusPending {
		t.Fatalf("unexpected modified op %+v", modified)
	}
	if diff := cmp.Diff([]string{"r2"}, modified.RequirementIDs); diff != "" {
		t.Fatalf("requirement ids mismatch (-want +got):\n%s", diff)
	}
	added, _ := list.Get("t4")
	if added.Status != StatusPending {
		t.Fatalf("expected added op to default to pending, got %s", added.Status)
	}
}

func TestDecodeChangesUsesPlanField(t *testing.T) {
	changes, err := DecodeChanges(Plan, []json.RawMessage{json.RawMessage(`{"type":"add","step":{"id":"s9"}}`)})
	if err != nil {
		t.Fatalf("DecodeChanges returned error: %v", err)
	}
	if len(changes) != 1 || !strings.Contains(string(changes[0].Item), "s9") {
		t.Fatalf("unexpected changes %+v", changes)
	}
}

func TestReviewRequirements(t *testing.T) {
	ops := sampleOps()
	prev := []RequirementRef{
		{ID: "r1", Title: "Users", Importance: "high"},
		{ID: "r2", Title: "Reports", Importance: "low"},
	}
	cur := []RequirementRef{
		{ID: "r1", Title: "Users and roles", Importance: "high"},
	}

	advisories := ReviewRequirements(Blueprint, ops, prev, cur)
	kinds := make([]string, 0, len(advisories))
	for _, a := range advisories {
		kinds = append(kinds, a.Kind)
	}
	want := []string{AdvisoryDeletedRequirements, AdvisoryModifiedRequirements, AdvisoryUnlinkedOperations}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("advisory kinds mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t2"}, advisories[0].OperationIDs); diff != "" {
		t.Fatalf("deleted advisory ops mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t1", "t2"}, advisories[1].OperationIDs); diff != "" {
		t.Fatalf("modified advisory ops mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(advisories[1].Message, "Users and roles") {
		t.Fatalf("expected modified requirement title in message: %s", advisories[1].Message)
	}
	if diff := cmp.Diff([]string{"t3"}, advisories[2].OperationIDs); diff != "" {
		t.Fatalf("unlinked advisory ops mismatch (-want +got):\n%s", diff)
	}
}

func TestReviewRequirementsQuietWhenConsistent(t *testing.T) {
	ops := []Operation{{ID: "s1", RequirementIDs: []string{"r1"}}}
	refs := []RequirementRef{{ID: "r1", Title: "Users"}}
	if advisories := ReviewRequirements(Plan, ops, refs, refs); len(advisories) != 0 {
		t.Fatalf("expected no advisories, got %+v", advisories)
	}
}

func TestPreviewIgnoresEmptyUpdates(t *testing.T) {
	preview := NewPreview(PreviewSnapshot{HTML: "<p>old</p>", State: json.RawMessage(`{"v":1}`)})
	if preview.SetHTML("") {
		t.Fatal("expected empty html to be ignored")
	}
	if preview.SetState(json.RawMessage(`null`)) {
		t.Fatal("expected null state to be ignored")
	}
	if !preview.SetState(json.RawMessage(`{"v":2}`)) {
		t.Fatal("expected state overwrite")
	}
	snap := preview.Snapshot()
	if snap.HTML != "<p>old</p>" || string(snap.State) != `{"v":2}` {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
