package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"saasywrap/internal/wizard"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var description string
	var datasetPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate requirements from a description and optional dataset",
		Long: "Send the free-text description (and the dataset file, if given) to the backend and " +
			"replace the session's requirements with the generated list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(description) == "" {
				return errors.New("--requirements is required")
			}
			return ctx.withWorkspace(cmd, mutating(nil), func(ws *wizard.Workspace) error {
				marks := markTranscripts(ws)
				err := ws.Initialize(cmd.Context(), description, datasetPath)
				marks.printNew(cmd, ws, wizard.RequirementsChannel)
				if err != nil {
					return err
				}
				return printRequirements(cmd, ws.Registry().Snapshot())
			})
		},
	}

	cmd.Flags().StringVarP(&description, "requirements", "r", "", "Free-text description of what to build")
	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Dataset file uploaded with the description")
	return cmd
}
