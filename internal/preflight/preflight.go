package preflight

import (
	"context"

	"saasywrap/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every doctor check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Session.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	results = append(results, CheckSessionStore(cfg))
	results = append(results, CheckSessionLock(cfg))
	results = append(results, CheckBackend(ctx, cfg))

	// Notifications are optional; report only when configured.
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, Result{Name: "Notifications", Passed: true, Detail: cfg.Notifications.NtfyTopic})
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
