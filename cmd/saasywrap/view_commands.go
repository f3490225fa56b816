package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"saasywrap/internal/operation"
	"saasywrap/internal/wizard"
)

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:       "transcript [requirements|blueprint|plan]",
		Short:     "Print a chat transcript",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: transcriptChannels,
		RunE: func(cmd *cobra.Command, args []string) error {
			channel := wizard.RequirementsChannel
			if len(args) == 1 {
				channel = strings.ToLower(strings.TrimSpace(args[0]))
			}
			return ctx.withWorkspace(cmd, readOnly(), func(ws *wizard.Workspace) error {
				tr, ok := ws.Transcript(channel)
				if !ok {
					return fmt.Errorf("unknown transcript %q (want one of %s)", channel, strings.Join(transcriptChannels, ", "))
				}
				msgs := tr.Messages()
				if asJSON {
					return writeJSON(cmd, msgs)
				}
				out := cmd.OutOrStdout()
				if len(msgs) == 0 {
					fmt.Fprintf(out, "The %s transcript is empty\n", tr.Channel())
					return nil
				}
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader(tr.Channel()+" transcript", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, msg := range msgs {
					fmt.Fprintln(out, transcriptLine(msg, colorize))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the transcript as JSON")
	return cmd
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var showState bool
	cmd := &cobra.Command{
		Use:   "preview [blueprint|plan]",
		Short: "Print the last preview returned for a list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := operation.Blueprint
			if len(args) == 1 {
				resolved, ok := operation.KindByName(args[0])
				if !ok {
					return fmt.Errorf("unknown list %q (want blueprint or plan)", args[0])
				}
				kind = resolved
			}
			return ctx.withWorkspace(cmd, readOnly(), func(ws *wizard.Workspace) error {
				preview := ws.Board(kind).Preview
				out := cmd.OutOrStdout()
				if showState {
					state := preview.State()
					if len(state) == 0 {
						fmt.Fprintln(out, "{}")
						return nil
					}
					fmt.Fprintln(out, string(state))
					return nil
				}
				html := preview.HTML()
				if html == "" {
					fmt.Fprintf(out, "No %s preview yet\n", kind.Name)
					return nil
				}
				fmt.Fprintln(out, html)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showState, "state", false, "Print the preview state blob instead of the preview")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole session as JSON or YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (want json or yaml)", format)
			}
			return ctx.withWorkspace(cmd, readOnly(), func(ws *wizard.Workspace) error {
				export := ws.Export()
				if format == "json" {
					return writeJSON(cmd, export)
				}
				doc, err := export.Document()
				if err != nil {
					return err
				}
				return writeYAML(cmd, doc)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json or yaml)")
	return cmd
}
