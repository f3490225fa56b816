package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"saasywrap/internal/backend"
	"saasywrap/internal/executor"
	"saasywrap/internal/operation"
	"saasywrap/internal/services"
	"saasywrap/internal/wizard"
)

func newOperationsCommand(ctx *commandContext, kind operation.Kind) *cobra.Command {
	aliases := []string{}
	if kind.Name == operation.Plan.Name {
		aliases = append(aliases, "plans")
	}
	opsCmd := &cobra.Command{
		Use:     kind.Name,
		Aliases: aliases,
		Short:   fmt.Sprintf("Generate, refine, and execute the %s", kind.Name),
	}

	opsCmd.AddCommand(newOperationsGenerateCommand(ctx, kind))
	opsCmd.AddCommand(newOperationsListCommand(ctx, kind))
	opsCmd.AddCommand(newOperationsShowCommand(ctx, kind))
	opsCmd.AddCommand(newOperationsChatCommand(ctx, kind))
	opsCmd.AddCommand(newOperationsRunCommand(ctx, kind))
	opsCmd.AddCommand(newOperationsRollbackCommand(ctx, kind))

	return opsCmd
}

func newOperationsGenerateCommand(ctx *commandContext, kind operation.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: fmt.Sprintf("Generate the %s from the current requirements", kind.Name),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, mutating(nil), func(ws *wizard.Workspace) error {
				marks := markTranscripts(ws)
				err := ws.Generate(cmd.Context(), kind)
				marks.printNew(cmd, ws, kind.Name)
				if err != nil {
					return err
				}
				printOperations(cmd, kind, ws.Board(kind).List.Snapshot())
				return nil
			})
		},
	}
}

func newOperationsListCommand(ctx *commandContext, kind operation.Kind) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss with their status", kind.Noun),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, readOnly(), func(ws *wizard.Workspace) error {
				ops := ws.Board(kind).List.Snapshot()
				if asJSON {
					return writeJSON(cmd, ops)
				}
				printOperations(cmd, kind, ops)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, fmt.Sprintf("Print %ss as JSON", kind.Noun))
	return cmd
}

func newOperationsShowCommand(ctx *commandContext, kind operation.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: fmt.Sprintf("Show one %s with its linked requirements", kind.Noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, readOnly(), func(ws *wizard.Workspace) error {
				op, ok := ws.Board(kind).List.Get(args[0])
				if !ok {
					return services.Wrap(services.ErrNotFound, "operation", kind.Name, fmt.Sprintf("%s %s not found", kind.Noun, args[0]), nil)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "%s  %s\n", op.ID, op.Title)
				fmt.Fprintf(out, "Status:       %s\n", statusCell(op.Status, colorize))
				if op.EstimatedTime != "" {
					fmt.Fprintf(out, "Estimate:     %s\n", op.EstimatedTime)
				}
				if t := operationType(op); t != "" {
					fmt.Fprintf(out, "Type:         %s\n", t)
				}
				if len(op.Dependencies) > 0 {
					fmt.Fprintf(out, "Depends on:   %s\n", strings.Join(op.Dependencies, ", "))
				}
				if op.Description != "" {
					fmt.Fprintf(out, "\n%s\n", op.Description)
				}
				if len(op.RequirementIDs) > 0 {
					fmt.Fprintln(out, "\nRequirements:")
					for _, id := range op.RequirementIDs {
						title := "(deleted)"
						if req, ok := ws.Registry().Get(id); ok {
							title = req.Title
						}
						fmt.Fprintf(out, "  - %s %s\n", id, title)
					}
				}
				return nil
			})
		},
	}
}

func newOperationsChatCommand(ctx *commandContext, kind operation.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "chat MESSAGE...",
		Short: fmt.Sprintf("Ask the backend to revise the %s", kind.Name),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, mutating(nil), func(ws *wizard.Workspace) error {
				marks := markTranscripts(ws)
				before := ws.Board(kind).List.Snapshot()
				_, err := ws.ChatOperations(cmd.Context(), kind, strings.Join(args, " "))
				marks.printNew(cmd, ws, kind.Name)
				if err != nil {
					return err
				}
				after := ws.Board(kind).List.Snapshot()
				if !sameOperations(before, after) {
					printOperations(cmd, kind, after)
				}
				return nil
			})
		},
	}
}

func newOperationsRunCommand(ctx *commandContext, kind operation.Kind) *cobra.Command {
	var all, next bool
	var until string

	cmd := &cobra.Command{
		Use:   "run [ID]",
		Short: fmt.Sprintf("Execute %ss on the backend", kind.Noun),
		Long: fmt.Sprintf("Execute one %[1]s by id, every %[1]s in order (--all), every %[1]s up to and "+
			"including a target (--until ID), or the first pending %[1]s (--next). Batches stop at the "+
			"first %[1]s that does not complete.", kind.Noun),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, set := range []bool{len(args) == 1, all, next, until != ""} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				return errors.New("choose exactly one of ID, --all, --until ID, or --next")
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			observer := func(op operation.Operation) {
				fmt.Fprintf(out, "%s %s\n", statusCell(op.Status, colorize), displayOperation(op))
			}

			return ctx.withWorkspace(cmd, mutating(observer), func(ws *wizard.Workspace) error {
				exec := ws.Board(kind).Executor
				marks := markTranscripts(ws)

				if len(args) == 1 {
					ok, err := exec.ExecuteOne(cmd.Context(), args[0])
					marks.printNew(cmd, ws, kind.Name)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("%s %s did not complete", kind.Noun, args[0])
					}
					return nil
				}

				var report executor.Report
				var err error
				switch {
				case all:
					report, err = exec.ExecuteAll(cmd.Context())
				case until != "":
					report, err = exec.ExecuteUntil(cmd.Context(), until)
				default:
					report, err = exec.ExecuteNext(cmd.Context())
				}
				marks.printNew(cmd, ws, kind.Name)
				if err != nil {
					return err
				}
				return printReport(cmd, kind, report, colorize)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, fmt.Sprintf("Execute every %s in order", kind.Noun))
	cmd.Flags().StringVar(&until, "until", "", fmt.Sprintf("Execute %ss up to and including this id", kind.Noun))
	cmd.Flags().BoolVar(&next, "next", false, fmt.Sprintf("Execute the first pending %s", kind.Noun))
	return cmd
}

func newOperationsRollbackCommand(ctx *commandContext, kind operation.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback ID",
		Short: fmt.Sprintf("Mark a completed or failed %s as rolled back", kind.Noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, mutating(nil), func(ws *wizard.Workspace) error {
				op, err := ws.Rollback(cmd.Context(), kind, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", statusCell(op.Status, shouldColorize(cmd.OutOrStdout())), displayOperation(op))
				return nil
			})
		},
	}
}

func printOperations(cmd *cobra.Command, kind operation.Kind, ops []operation.Operation) {
	out := cmd.OutOrStdout()
	if len(ops) == 0 {
		fmt.Fprintf(out, "No %ss yet; run `saasywrap %s generate`\n", kind.Noun, kind.Name)
		return
	}
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(ops))
	for i, op := range ops {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			op.ID,
			op.Title,
			statusCell(op.Status, colorize),
			strings.Join(op.RequirementIDs, ", "),
			op.EstimatedTime,
		})
	}
	fmt.Fprint(out, renderTable([]column{
		{header: "#", align: alignRight},
		{header: "ID"},
		{header: "Title", widthMax: 40},
		{header: "Status"},
		{header: "Requirements", widthMax: 30},
		{header: "Estimate"},
	}, rows))
	fmt.Fprintln(out, statusSummary(ops))
}

// statusSummary counts operations per status in lifecycle order, e.g.
// "Status: 1 Completed, 2 Pending".
func statusSummary(ops []operation.Operation) string {
	counts := make(map[operation.Status]int, len(ops))
	for _, op := range ops {
		counts[op.Status]++
	}
	parts := make([]string, 0, len(counts))
	for _, status := range operation.AllStatuses() {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status.Label()))
		}
	}
	return "Status: " + strings.Join(parts, ", ")
}

func printReport(cmd *cobra.Command, kind operation.Kind, report executor.Report, colorize bool) error {
	out := cmd.OutOrStdout()
	if len(report.Processed) == 0 {
		fmt.Fprintf(out, "No pending %ss\n", kind.Noun)
		return nil
	}
	rows := make([][]string, 0, len(report.Processed))
	for _, outcome := range report.Processed {
		status := statusCell(outcome.Status, colorize)
		if code := backend.StatusCode(outcome.Err); code != 0 {
			status += fmt.Sprintf(" (HTTP %d)", code)
		}
		if outcome.Skipped {
			status = "skipped (removed)"
		}
		rows = append(rows, []string{outcome.ID, outcome.Title, status})
	}
	fmt.Fprint(out, renderTable([]column{
		{header: "ID"},
		{header: "Title", widthMax: 40},
		{header: "Result"},
	}, rows))
	fmt.Fprintf(out, "Completed %d, failed %d in %s\n", report.Completed, report.Failed, report.Duration.Round(time.Millisecond))
	if report.Halted {
		status := "unknown"
		if last, ok := report.Last(); ok {
			status = last.Status.Label()
		}
		return fmt.Errorf("%s run stopped at %s (%s)", kind.Name, report.StoppedAt, status)
	}
	return nil
}

func displayOperation(op operation.Operation) string {
	if strings.TrimSpace(op.Title) == "" {
		return op.ID
	}
	return fmt.Sprintf("%s %s", op.ID, op.Title)
}

func operationType(op operation.Operation) string {
	if op.TransformType != "" {
		return op.TransformType
	}
	return op.Type
}

func sameOperations(a, b []operation.Operation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Title != b[i].Title || a[i].Status != b[i].Status ||
			strings.Join(a[i].RequirementIDs, ",") != strings.Join(b[i].RequirementIDs, ",") {
			return false
		}
	}
	return true
}
