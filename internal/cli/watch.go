package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// WatchCmd subscribes to the projector and re-renders on every emission
// until interrupted.
func WatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of the plan; re-renders on every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, cancel, err := app.Projector.Subscribe()
			if err != nil {
				return err
			}
			defer cancel()

			out := cmd.OutOrStdout()
			for {
				select {
				case views, ok := <-ch:
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "--- %s ---\n", time.Now().Format("15:04:05"))
					renderSnapshot(out, views, time.Now())
				case <-cmd.Context().Done():
					return nil
				}
			}
		},
	}
}
