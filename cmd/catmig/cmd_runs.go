package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"catmig/internal/store"
)

var runsLimit int

// runsCmd lists recorded migration runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded migration runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd, true)
		defer cancel()

		s, err := store.NewLocalStore(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(w, mutedStyle.Render("No runs recorded in "+s.Path()))
			return nil
		}

		t := newTable("when", "kind", "source", "target", "rows", "solver", "took", "status")
		for _, r := range runs {
			status := r.Status
			if r.Status == store.StatusFailed {
				status = errorStyle.Render(r.Status + ": " + r.Error)
			}
			t.Row(
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Kind,
				r.SourceSchema,
				r.TargetSchema,
				strconv.Itoa(r.Rows),
				r.Solver,
				r.Duration.String(),
				status,
			)
		}
		fmt.Fprintln(w, t.Render())
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Show at most this many runs (0 = all)")
}
