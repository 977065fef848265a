package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"study-planner/internal/view"
)

// App bundles what the commands need. The projector is the only way the CLI
// reads or mutates plan state.
type App struct {
	Projector *view.Projector
}

// NewRootCmd assembles the studyplanner command tree.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "studyplanner",
		Short: "Track assessments, subtasks and deadlines",
		Long: `studyplanner keeps a local plan of assessments (assignments, exams)
with their subtasks and due dates. All state lives in a single SQLite file.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(AddCmd(app))
	rootCmd.AddCommand(UpdateCmd(app))
	rootCmd.AddCommand(RemoveCmd(app))
	rootCmd.AddCommand(RemarkCmd(app))
	rootCmd.AddCommand(SubtaskCmd(app))
	rootCmd.AddCommand(ListCmd(app))
	rootCmd.AddCommand(WatchCmd(app))

	return rootCmd
}

// parseDue accepts "2006-01-02T15:04" or a bare date (midnight), both in
// local wall-clock time.
func parseDue(raw string) (time.Time, error) {
	if ts, err := time.ParseInLocation("2006-01-02T15:04", raw, time.Local); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid due date %q, expected YYYY-MM-DD[THH:MM]", raw)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
