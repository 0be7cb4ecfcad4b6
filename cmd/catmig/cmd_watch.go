package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"catmig/internal/loader"
	"catmig/internal/logging"
)

// watchCmd keeps an output instance in sync with its inputs
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rerun a migration whenever its inputs change",
	Long: `Runs the migration once, then again every time the migration or the
source instance document is saved. Failures are logged and the previous
output is left in place.

Example:
  catmig watch -m paths.yaml -i graph.yaml -o paths-out.yaml`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&migrationPath, "migration", "m", "", "Migration document (required)")
	watchCmd.Flags().StringVarP(&instancePath, "instance", "i", "", "Source instance document (required)")
	watchCmd.Flags().StringVarP(&outputPath, "out", "o", "", "Output instance document (required)")
	watchCmd.MarkFlagRequired("migration")
	watchCmd.MarkFlagRequired("instance")
	watchCmd.MarkFlagRequired("out")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd, false)
	defer cancel()

	debounce := cfg.GetDebounce()
	w := cmd.ErrOrStderr()
	rerun := func(ctx context.Context) {
		res, err := migrateFiles(ctx, migrationPath, instancePath, true)
		if err != nil {
			logging.WatchWarn("migration failed: %v", err)
			fmt.Fprintln(w, errorStyle.Render(err.Error()))
			return
		}
		if err := loader.WriteInstance(outputPath, res.output); err != nil {
			logging.WatchWarn("cannot write %s: %v", outputPath, err)
			fmt.Fprintln(w, errorStyle.Render(err.Error()))
			return
		}
		logging.Watch("wrote %s to %s", res.output, outputPath)
		fmt.Fprintf(w, "wrote %s to %s\n", res.output, outputPath)
	}

	logging.Watch("debounce %v", debounce)
	fw, err := newFileWatcher([]string{migrationPath, instancePath}, debounce, rerun)
	if err != nil {
		return err
	}
	fw.Run(ctx)
	return nil
}
