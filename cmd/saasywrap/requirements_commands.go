package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"saasywrap/internal/requirements"
	"saasywrap/internal/services"
	"saasywrap/internal/wizard"
)

func newRequirementsCommand(ctx *commandContext) *cobra.Command {
	reqCmd := &cobra.Command{
		Use:     "requirements",
		Aliases: []string{"req"},
		Short:   "Inspect and edit the session's requirements",
	}

	reqCmd.AddCommand(newRequirementsListCommand(ctx))
	reqCmd.AddCommand(newRequirementsAddCommand(ctx))
	reqCmd.AddCommand(newRequirementsEditCommand(ctx))
	reqCmd.AddCommand(newRequirementsDeleteCommand(ctx))
	reqCmd.AddCommand(newRequirementsChatCommand(ctx))
	reqCmd.AddCommand(newRequirementsHistoryCommand(ctx))

	return reqCmd
}

func newRequirementsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requirements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, readOnly(), func(ws *wizard.Workspace) error {
				reqs := ws.Registry().Snapshot()
				if asJSON {
					return writeJSON(cmd, reqs)
				}
				return printRequirements(cmd, reqs)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print requirements as JSON")
	return cmd
}

func newRequirementsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Append a blank requirement to edit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, mutating(nil), func(ws *wizard.Workspace) error {
				marks := markTranscripts(ws)
				req, err := ws.AddRequirement(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added requirement %s\n", req.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Edit it with: saasywrap requirements edit %s --title ... --description ...\n", req.ID)
				marks.printNew(cmd, ws, "")
				return nil
			})
		},
	}
}

func newRequirementsEditCommand(ctx *commandContext) *cobra.Command {
	var title, description, importance, category string
	var tags []string

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit requirement fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch requirements.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("importance") {
				value := strings.ToLower(strings.TrimSpace(importance))
				patch.Importance = &value
			}
			if flags.Changed("category") {
				patch.Category = &category
			}
			patch.AddTags = tags
			if patch.Title == nil && patch.Description == nil && patch.Importance == nil && patch.Category == nil && len(patch.AddTags) == 0 {
				return fmt.Errorf("nothing to edit; pass at least one of --title, --description, --importance, --category, --tag")
			}

			return ctx.withWorkspace(cmd, mutating(nil), func(ws *wizard.Workspace) error {
				marks := markTranscripts(ws)
				req, changed, err := ws.UpdateRequirement(cmd.Context(), args[0], patch)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintf(cmd.OutOrStdout(), "Requirement %s unchanged\n", req.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated requirement %s\n", req.ID)
				if n := len(req.ChangeHistory); n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", req.ChangeHistory[n-1].Details)
				}
				marks.printNew(cmd, ws, "")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&importance, "importance", "", "New importance (low, medium, high)")
	cmd.Flags().StringVar(&category, "category", "", "New category ("+strings.Join(requirements.DefaultCategories, ", ")+")")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to add (repeatable)")
	return cmd
}

func newRequirementsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, mutating(nil), func(ws *wizard.Workspace) error {
				marks := markTranscripts(ws)
				if err := ws.DeleteRequirement(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted requirement %s\n", args[0])
				marks.printNew(cmd, ws, "")
				return nil
			})
		},
	}
}

func newRequirementsChatCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "chat MESSAGE...",
		Short: "Ask the backend to revise the requirements",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, mutating(nil), func(ws *wizard.Workspace) error {
				marks := markTranscripts(ws)
				_, err := ws.ChatRequirements(cmd.Context(), strings.Join(args, " "))
				marks.printNew(cmd, ws, wizard.RequirementsChannel)
				return err
			})
		},
	}
}

func newRequirementsHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show a requirement's change history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, readOnly(), func(ws *wizard.Workspace) error {
				req, ok := ws.Registry().Get(args[0])
				if !ok {
					return services.Wrap(services.ErrNotFound, "requirements", "history", fmt.Sprintf("requirement %s not found", args[0]), nil)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", req.ID, req.Title)
				if len(req.ChangeHistory) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No history recorded")
					return nil
				}
				rows := make([][]string, 0, len(req.ChangeHistory))
				for _, change := range req.ChangeHistory {
					rows = append(rows, []string{change.Timestamp, change.Type, change.UserID, change.Details})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
					{header: "When"},
					{header: "Change"},
					{header: "User"},
					{header: "Details", widthMax: 60},
				}, rows))
				return nil
			})
		},
	}
}

func printRequirements(cmd *cobra.Command, reqs []requirements.Requirement) error {
	if len(reqs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No requirements yet")
		return nil
	}
	rows := make([][]string, 0, len(reqs))
	for _, req := range reqs {
		rows = append(rows, []string{
			req.ID,
			req.Title,
			req.Importance,
			req.Category,
			strings.Join(req.Tags, ", "),
		})
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
		{header: "ID"},
		{header: "Title", widthMax: 40},
		{header: "Importance"},
		{header: "Category"},
		{header: "Tags", widthMax: 30},
	}, rows))
	return nil
}
