package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"saasywrap/internal/backend"
	"saasywrap/internal/config"
	"saasywrap/internal/session"
)

// CheckBackend verifies that the wizard backend answers HTTP.
// It uses a 5-second timeout and a single attempt (no retries).
func CheckBackend(ctx context.Context, cfg *config.Config) Result {
	const name = "Backend"

	base := strings.TrimSpace(cfg.Backend.BaseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base_url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := backend.NewClient(backend.Config{BaseURL: base, Timeout: 5 * time.Second}, backend.WithRetryMaxAttempts(1))
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (unreachable: %s)", base, summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", base)}
}

// CheckSessionStore verifies that the session database opens with the
// expected schema version.
func CheckSessionStore(cfg *config.Config) Result {
	const name = "Session store"

	path := cfg.SessionDBPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	store, err := session.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema ok)", path)}
}

// CheckSessionLock reports whether another process currently holds the
// active session lock.
func CheckSessionLock(cfg *config.Config) Result {
	name := fmt.Sprintf("Session %q", cfg.Session.Name)
	lock, err := session.AcquireLock(cfg.SessionLockPath(cfg.Session.Name))
	if err != nil {
		if errors.Is(err, session.ErrLocked) {
			return Result{Name: name, Detail: "locked by another saasywrap process"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("lock check failed (%v)", err)}
	}
	_ = lock.Release()
	return Result{Name: name, Passed: true, Detail: "not locked"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 && idx+2 < len(msg) {
		return msg[idx+2:]
	}
	return msg
}
