package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"saasywrap/internal/session"
)

func TestInitAndRequirementCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)

	out := env.run(t, "requirements", "list")
	requireContains(t, out, "Login")
	requireContains(t, out, "Reports")

	out = env.run(t, "requirements", "edit", "r1", "--title", "Single sign-on", "--tag", "auth")
	requireContains(t, out, "Updated requirement r1")
	requireContains(t, out, `title changed from "Login" to "Single sign-on", tag "auth" added`)

	out = env.run(t, "requirements", "edit", "r1", "--title", "Single sign-on")
	requireContains(t, out, "Requirement r1 unchanged")

	out = env.run(t, "requirements", "history", "r1")
	requireContains(t, out, "created")
	requireContains(t, out, "modified")

	out = env.run(t, "requirements", "add")
	requireContains(t, out, "Added requirement req-")

	out = env.run(t, "requirements", "delete", "r2")
	requireContains(t, out, "Deleted requirement r2")

	out = env.run(t, "requirements", "list", "--json")
	var reqs []map[string]any
	if err := json.Unmarshal([]byte(out), &reqs); err != nil {
		t.Fatalf("decode list --json: %v\n%s", err, out)
	}
	if len(reqs) != 2 || reqs[0]["title"] != "Single sign-on" {
		t.Fatalf("unexpected requirements: %v", reqs)
	}

	out = env.run(t, "transcript")
	requireContains(t, out, "You: Initial Requirements:")
	requireContains(t, out, "Assistant: Drafted two requirements.")
}

func TestEditRequiresAField(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)
	if _, _, err := runCLI(t, []string{"requirements", "edit", "r1"}, env.configPath); err == nil {
		t.Fatal("expected error without edit flags")
	}
}

func TestRequirementsChatShowsReplyAndAdvisories(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)
	env.backend.Queue("/api/generate-blueprint", http.StatusOK, map[string]any{
		"blueprint": []any{
			map[string]any{"id": "t1", "title": "Schema", "requirement_ids": []string{"r1"}},
			map[string]any{"id": "t2", "title": "Report builder", "requirement_ids": []string{"r2"}},
		},
		"response": "Blueprint drafted.",
	})
	env.run(t, "blueprint", "generate")

	env.backend.Queue("/api/chat/requirements", http.StatusOK, map[string]any{
		"response":            "Removed reporting.",
		"deletedRequirements": []string{"r2"},
	})
	out := env.run(t, "requirements", "chat", "drop", "reports")
	requireContains(t, out, "Assistant: Removed reporting.")
	requireContains(t, out, "[blueprint] Notice: Requirements r2 no longer exist")
	requireNotContains(t, out, "You: drop reports")

	sent := env.backend.Requests("/api/chat/requirements")[0]
	if sent.String("message") != "drop reports" {
		t.Fatalf("message = %q", sent.String("message"))
	}
}

func TestBlueprintGenerateRunAndRollback(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)
	env.backend.Queue("/api/generate-blueprint", http.StatusOK, map[string]any{
		"blueprint": []any{
			map[string]any{"id": "t1", "title": "Schema", "requirement_ids": []string{"r1"}},
			map[string]any{"id": "t2", "title": "Dashboards", "requirement_ids": []string{"r2"}},
		},
		"response": "Blueprint drafted.",
	})
	out := env.run(t, "blueprint", "generate")
	requireContains(t, out, "Assistant: Blueprint drafted.")
	requireContains(t, out, "Status: 2 Pending")

	env.backend.Queue("/api/execute-blueprint-transform", http.StatusOK, map[string]any{
		"status": "completed", "message": "Schema applied", "preview": "<div>schema</div>",
	})
	env.backend.Queue("/api/execute-blueprint-transform", http.StatusOK, map[string]any{
		"status": "completed", "message": "Dashboards applied",
	})
	out = env.run(t, "blueprint", "run", "--all")
	requireContains(t, out, "In Progress t1 Schema")
	requireContains(t, out, "Assistant: Schema applied")
	requireContains(t, out, "Completed 2, failed 0")

	calls := env.backend.Requests("/api/execute-blueprint-transform")
	if len(calls) != 2 || calls[0].String("transformId") != "t1" || calls[1].String("transformId") != "t2" {
		t.Fatalf("unexpected execute calls: %+v", calls)
	}

	out = env.run(t, "preview", "blueprint")
	requireContains(t, out, "<div>schema</div>")

	out = env.run(t, "blueprint", "rollback", "t2")
	requireContains(t, out, "Rolled Back t2 Dashboards")

	out = env.run(t, "blueprint", "show", "t1")
	requireContains(t, out, "Completed")
	requireContains(t, out, "r1 Login")

	out = env.run(t, "blueprint", "run", "--next")
	requireContains(t, out, "No pending transforms")
}

func TestPlanRunStopsAtFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)
	env.backend.Queue("/api/generate-plan", http.StatusOK, map[string]any{
		"plans": []any{
			map[string]any{"id": "s1", "title": "Scaffold", "requirement_ids": []string{"r1"}},
			map[string]any{"id": "s2", "title": "Deploy", "requirement_ids": []string{"r2"}},
		},
		"response": "Plan drafted.",
	})
	env.run(t, "plan", "generate")

	env.backend.Queue("/api/execute-plan-step", http.StatusInternalServerError, map[string]string{"error": "boom"})
	out, _, err := runCLI(t, []string{"plan", "run", "--until", "s2"}, env.configPath)
	if err == nil {
		t.Fatal("expected failed run to return an error")
	}
	requireContains(t, err.Error(), "stopped at s1")
	requireContains(t, out, "Failed (HTTP 500)")
	requireContains(t, out, "Notice: Sorry, there was an error executing this step. Please try again.")
	if n := len(env.backend.Requests("/api/execute-plan-step")); n != 1 {
		t.Fatalf("expected one execute call, got %d", n)
	}

	out = env.run(t, "plans", "list")
	requireContains(t, out, "Status: 1 Pending, 1 Failed")
}

func TestBlueprintRunFailsWhenBatchHaltsOnUnfinishedStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)
	env.backend.Queue("/api/generate-blueprint", http.StatusOK, map[string]any{
		"blueprint": []any{
			map[string]any{"id": "t1", "title": "Schema", "requirement_ids": []string{"r1"}},
			map[string]any{"id": "t2", "title": "Dashboards", "requirement_ids": []string{"r2"}},
		},
		"response": "Blueprint drafted.",
	})
	env.run(t, "blueprint", "generate")

	env.backend.Queue("/api/execute-blueprint-transform", http.StatusOK, map[string]any{"status": "in_progress"})
	out, _, err := runCLI(t, []string{"blueprint", "run", "--all"}, env.configPath)
	if err == nil {
		t.Fatalf("expected halted run to return an error\n%s", out)
	}
	requireContains(t, err.Error(), "stopped at t1 (In Progress)")
	requireContains(t, out, "Completed 0, failed 0")
	if n := len(env.backend.Requests("/api/execute-blueprint-transform")); n != 1 {
		t.Fatalf("expected one execute call, got %d", n)
	}

	out = env.run(t, "blueprint", "list")
	requireContains(t, out, "In Progress")
	requireContains(t, out, "Pending")
}

func TestRunRequiresExactlyOneMode(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, args := range [][]string{
		{"blueprint", "run"},
		{"blueprint", "run", "t1", "--all"},
		{"blueprint", "run", "--all", "--next"},
	} {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestReadOnlyCommandsNeedExistingSession(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"requirements", "list"}, env.configPath)
	if err == nil {
		t.Fatal("expected missing session error")
	}
	requireContains(t, err.Error(), "saasywrap init")
}

func TestMutatingCommandRefusesLockedSession(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := session.AcquireLock(env.stateDir + "/locks/test.lock")
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, []string{"requirements", "add"}, env.configPath)
	if err == nil {
		t.Fatal("expected busy session error")
	}
	requireContains(t, err.Error(), "busy")
}

func TestExportFormats(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)

	out := env.run(t, "export")
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if doc["session"] != "test" {
		t.Fatalf("session = %v", doc["session"])
	}

	out = env.run(t, "export", "--format", "yaml")
	requireContains(t, out, "session: test")
	requireContains(t, out, "title: Login")

	if _, _, err := runCLI(t, []string{"export", "--format", "xml"}, env.configPath); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestSessionListAndDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.run(t, "session", "list")
	requireContains(t, out, "No sessions yet")

	env.seed(t)
	out = env.run(t, "session", "list")
	requireContains(t, out, "test *")

	out = env.run(t, "session", "delete", "test")
	requireContains(t, out, "Deleted session test")
	if _, _, err := runCLI(t, []string{"session", "delete", "test"}, env.configPath); err == nil {
		t.Fatal("expected not found on second delete")
	}
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.run(t, "doctor")
	requireContains(t, out, "State directory:")
	requireContains(t, out, "(reachable)")
}
