package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AddCmd creates an assessment.
func AddCmd(app *App) *cobra.Command {
	var due string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add an assessment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dueAt, err := parseDue(due)
			if err != nil {
				return err
			}
			title := strings.Join(args, " ")
			id, err := app.Projector.AddAssessment(cmd.Context(), title, dueAt)
			if err != nil {
				return err
			}
			fmt.Printf("Added assessment #%d %q due %s\n", id, title, dueAt.Format("2006-01-02 15:04"))
			return nil
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD[THH:MM])")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

// UpdateCmd changes an assessment's title and due date. The remark is handled
// by its own command and stays untouched here.
func UpdateCmd(app *App) *cobra.Command {
	var due string

	cmd := &cobra.Command{
		Use:   "update <id> <title>",
		Short: "Update an assessment's title and due date",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			dueAt, err := parseDue(due)
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			if err := app.Projector.UpdateAssessment(cmd.Context(), id, title, dueAt); err != nil {
				return err
			}
			fmt.Printf("Updated assessment #%d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD[THH:MM])")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

// RemoveCmd deletes an assessment and all of its subtasks.
func RemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an assessment and its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Projector.DeleteAssessment(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Deleted assessment #%d\n", id)
			return nil
		},
	}
}

// RemarkCmd sets the free-text remark on an assessment.
func RemarkCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remark <id> [text...]",
		Short: "Set an assessment's remark (empty text clears it)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			remark := strings.Join(args[1:], " ")
			if err := app.Projector.UpdateRemark(cmd.Context(), id, remark); err != nil {
				return err
			}
			fmt.Printf("Updated remark on assessment #%d\n", id)
			return nil
		},
	}
}
