package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"saasywrap/internal/backend"
	"saasywrap/internal/config"
	"saasywrap/internal/executor"
	"saasywrap/internal/logging"
	"saasywrap/internal/notifications"
	"saasywrap/internal/session"
	"saasywrap/internal/wizard"
)

type commandContext struct {
	configFlag  *string
	sessionFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, sessionFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		sessionFlag: sessionFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.sessionFlag != nil {
			if name := strings.TrimSpace(*c.sessionFlag); name != "" {
				cfg.Session.Name = name
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) backendClient(cfg *config.Config, logger *slog.Logger) *backend.Client {
	return backend.NewClient(
		backend.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.BackendTimeout()},
		backend.WithRetryMaxAttempts(cfg.Backend.RetryAttempts),
		backend.WithLogger(logger),
	)
}

// workspaceAccess selects how withWorkspace opens the session.
type workspaceAccess struct {
	// mutating holds the per-session lock and creates the session when missing.
	mutating bool
	observer executor.Observer
}

func readOnly() workspaceAccess {
	return workspaceAccess{}
}

func mutating(observer executor.Observer) workspaceAccess {
	return workspaceAccess{mutating: true, observer: observer}
}

// withWorkspace opens the configured session and passes the assembled
// workspace to fn. Mutating access holds the session lock for the duration.
func (c *commandContext) withWorkspace(cmd *cobra.Command, access workspaceAccess, fn func(*wizard.Workspace) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	name := cfg.Session.Name

	if access.mutating {
		lock, err := session.AcquireLock(cfg.SessionLockPath(name))
		if err != nil {
			if errors.Is(err, session.ErrLocked) {
				return fmt.Errorf("session %q is busy in another saasywrap process; wait for it to finish", name)
			}
			return err
		}
		defer lock.Release()
	}

	store, err := session.Open(cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	handle := store.Session(name)
	if !access.mutating {
		exists, err := handle.Exists(cmd.Context())
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("session %q not found; start it with `saasywrap init`", name)
		}
	}

	ws, err := wizard.Open(cmd.Context(), name, wizard.Deps{
		Backend:  c.backendClient(cfg, logger),
		Store:    handle,
		Notifier: notifications.NewService(cfg),
		Logger:   logger,
		UserID:   cfg.Session.UserID,
		Observer: access.observer,
	})
	if err != nil {
		return err
	}
	return fn(ws)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
