package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"saasywrap/internal/notifications"
	"saasywrap/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var notify bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the session store, and backend reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("saasywrap doctor", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, line := range preflightLines(results, colorize) {
				fmt.Fprintln(out, line)
			}

			if notify {
				if cfg.Notifications.NtfyTopic == "" {
					fmt.Fprintln(out, renderStatusLine("Test notification", statusWarn, "ntfy_topic not configured", colorize))
				} else if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
					fmt.Fprintln(out, renderStatusLine("Test notification", statusError, err.Error(), colorize))
					results = append(results, preflight.Result{Name: "Test notification", Detail: err.Error()})
				} else {
					fmt.Fprintln(out, renderStatusLine("Test notification", statusOK, "sent", colorize))
				}
			}

			if preflight.Failed(results) {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Also send a test notification")
	return cmd
}
