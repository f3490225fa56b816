package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"saasywrap/internal/testsupport"
)

type cliTestEnv struct {
	backend    *testsupport.FakeBackend
	configPath string
	baseDir    string
	stateDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	for _, name := range []string{"SAASYWRAP_BACKEND_URL", "SAASYWRAP_USER_ID", "SAASYWRAP_NTFY_TOPIC"} {
		t.Setenv(name, "")
	}

	fake := testsupport.NewFakeBackend(t)
	base := t.TempDir()
	env := &cliTestEnv{
		backend:    fake,
		configPath: filepath.Join(base, "config.toml"),
		baseDir:    base,
		stateDir:   filepath.Join(base, "state"),
	}
	writeTestConfig(t, env.configPath, fake.URL(), env.stateDir, filepath.Join(base, "logs"))
	return env
}

func writeTestConfig(t *testing.T, path, backendURL, stateDir, logDir string) {
	t.Helper()
	content := fmt.Sprintf(`[backend]
base_url = %q

[session]
state_dir = %q
name = "test"
user_id = "tester"

[logging]
level = "error"
log_dir = %q
`, backendURL, stateDir, logDir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	out, _, err := runCLI(t, args, e.configPath)
	if err != nil {
		t.Fatalf("saasywrap %s: %v\noutput:\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// seed runs init against two scripted requirements.
func (e *cliTestEnv) seed(t *testing.T) {
	t.Helper()
	e.backend.Queue("/api/generate-requirements", 200, map[string]any{
		"requirements": []any{
			map[string]any{"id": "r1", "title": "Login", "description": "Users sign in", "importance": "high", "category": "backend"},
			map[string]any{"id": "r2", "title": "Reports", "description": "Monthly reports", "importance": "medium", "category": "frontend"},
		},
		"response": "Drafted two requirements.",
	})
	e.run(t, "init", "--requirements", "Build a CRM")
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
