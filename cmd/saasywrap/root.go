package main

import (
	"github.com/spf13/cobra"

	"saasywrap/internal/operation"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var sessionFlag string

	ctx := newCommandContext(&configFlag, &sessionFlag)

	rootCmd := &cobra.Command{
		Use:           "saasywrap",
		Short:         "Requirements, blueprint, and plan wizard for the saasywrap backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "Session name (defaults to session.name from the config)")

	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newRequirementsCommand(ctx))
	for _, kind := range operation.Kinds() {
		rootCmd.AddCommand(newOperationsCommand(ctx, kind))
	}
	rootCmd.AddCommand(newTranscriptCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newSessionCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
