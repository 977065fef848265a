package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SubtaskCmd groups subtask operations.
func SubtaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtask",
		Short: "Manage subtasks of an assessment",
	}

	cmd.AddCommand(subtaskAddCmd(app))
	cmd.AddCommand(subtaskUpdateCmd(app))
	cmd.AddCommand(subtaskRemoveCmd(app))
	return cmd
}

func subtaskAddCmd(app *App) *cobra.Command {
	var due string

	cmd := &cobra.Command{
		Use:   "add <assessment-id> <name>",
		Short: "Add a subtask to an assessment",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assessmentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			dueAt, err := parseDue(due)
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			id, err := app.Projector.AddSubtask(cmd.Context(), assessmentID, name, dueAt)
			if err != nil {
				return err
			}
			fmt.Printf("Added subtask #%d %q under assessment #%d\n", id, name, assessmentID)
			return nil
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD[THH:MM])")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func subtaskUpdateCmd(app *App) *cobra.Command {
	var due string

	cmd := &cobra.Command{
		Use:   "update <assessment-id> <subtask-id> <name>",
		Short: "Update a subtask's name and due date",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			assessmentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			subtaskID, err := parseID(args[1])
			if err != nil {
				return err
			}
			dueAt, err := parseDue(due)
			if err != nil {
				return err
			}
			name := strings.Join(args[2:], " ")
			if err := app.Projector.UpdateSubtask(cmd.Context(), assessmentID, subtaskID, name, dueAt); err != nil {
				return err
			}
			fmt.Printf("Updated subtask #%d\n", subtaskID)
			return nil
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD[THH:MM])")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func subtaskRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <assessment-id> <subtask-id>",
		Short: "Delete a subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assessmentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			subtaskID, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := app.Projector.DeleteSubtask(cmd.Context(), assessmentID, subtaskID); err != nil {
				return err
			}
			fmt.Printf("Deleted subtask #%d\n", subtaskID)
			return nil
		},
	}
}
