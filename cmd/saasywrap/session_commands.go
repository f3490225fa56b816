package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"saasywrap/internal/session"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "List and remove stored sessions",
	}
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionDeleteCommand(ctx))
	return sessionCmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := session.Open(cfg)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer store.Close()

			summaries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet; start one with `saasywrap init`")
				return nil
			}
			rows := make([][]string, 0, len(summaries))
			for _, summary := range summaries {
				name := summary.Name
				if name == cfg.Session.Name {
					name += " *"
				}
				rows = append(rows, []string{
					name,
					summary.UserID,
					fmt.Sprintf("%d", summary.Requirements),
					fmt.Sprintf("%d", summary.Operations),
					summary.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
				{header: "Session"},
				{header: "User"},
				{header: "Requirements", align: alignRight},
				{header: "Operations", align: alignRight},
				{header: "Updated"},
			}, rows))
			return nil
		},
	}
}

func newSessionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a session and everything stored under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := args[0]
			lock, err := session.AcquireLock(cfg.SessionLockPath(name))
			if err != nil {
				if errors.Is(err, session.ErrLocked) {
					return fmt.Errorf("session %q is busy in another saasywrap process", name)
				}
				return err
			}
			defer lock.Release()

			store, err := session.Open(cfg)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer store.Close()

			removed, err := store.Session(name).Delete(cmd.Context())
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("session %q not found", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", name)
			return nil
		},
	}
}
