package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"study-planner/internal/view"
)

// ListCmd prints the current plan snapshot once.
func ListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all assessments and their subtasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The snapshot is primed by the projector's store subscription;
			// wait for the first emission instead of racing it.
			if err := app.Projector.WaitReady(cmd.Context()); err != nil {
				return err
			}
			renderSnapshot(cmd.OutOrStdout(), app.Projector.Snapshot(), time.Now())
			return nil
		},
	}
}

// renderSnapshot writes one plan snapshot, assessments in due-date order.
func renderSnapshot(w io.Writer, views []view.AssessmentView, now time.Time) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No assessments yet. Add one with: studyplanner add <title> --due <date>")
		return
	}

	for _, a := range views {
		fmt.Fprintf(w, "%s #%d %s  (due %s)\n", dueMarker(a.DueAt, now), a.ID, a.Title, a.DueAt.Format("2006-01-02 15:04"))
		if a.Remark != "" {
			fmt.Fprintf(w, "      remark: %s\n", a.Remark)
		}
		for _, st := range a.Subtasks {
			fmt.Fprintf(w, "    %s #%d %s  (due %s)\n", dueMarker(st.DueAt, now), st.ID, st.Name, st.DueAt.Format("2006-01-02 15:04"))
		}
	}
}

// dueMarker colors a bullet by urgency: overdue red, due within 48h yellow.
func dueMarker(dueAt, now time.Time) string {
	switch {
	case dueAt.Before(now):
		return color.New(color.FgRed).Sprint("●")
	case dueAt.Before(now.Add(48 * time.Hour)):
		return color.New(color.FgYellow).Sprint("●")
	default:
		return color.New(color.FgGreen).Sprint("●")
	}
}
