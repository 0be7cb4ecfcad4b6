package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catmig/internal/instance"
	"catmig/internal/loader"
	"catmig/internal/migrate"
	"catmig/internal/store"
)

var (
	migrationPath string
	instancePath  string
	outputPath    string
	saveOutput    bool
)

// migrateCmd runs one migration
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate an instance along a migration document",
	Long: `Reads a migration and a source instance, runs the migration and writes
the target instance as YAML (to --out, or stdout).

With --save the result is also stored in the instance database and the run
is recorded against it.

Example:
  catmig migrate -m paths.yaml -i graph.yaml -o paths-out.yaml`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVarP(&migrationPath, "migration", "m", "", "Migration document (required)")
	migrateCmd.Flags().StringVarP(&instancePath, "instance", "i", "", "Source instance document (required)")
	migrateCmd.Flags().StringVarP(&outputPath, "out", "o", "", "Write the result here instead of stdout")
	migrateCmd.Flags().BoolVar(&saveOutput, "save", false, "Store the result in the instance database")
	migrateCmd.MarkFlagRequired("migration")
	migrateCmd.MarkFlagRequired("instance")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd, true)
	defer cancel()

	res, err := migrateFiles(ctx, migrationPath, instancePath, !saveOutput)
	if err != nil {
		return err
	}

	if outputPath != "" {
		if err := loader.WriteInstance(outputPath, res.output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s migration wrote %s to %s\n", res.run.Kind, res.output, outputPath)
	} else {
		data, err := loader.MarshalInstance(res.output)
		if err != nil {
			return err
		}
		cmd.OutOrStdout().Write(data)
	}

	if saveOutput {
		id, err := saveResult(ctx, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved as %s\n", id)
	}
	return nil
}

// migration is the outcome of one migrate run, kept for recording.
type migration struct {
	output *instance.Instance
	run    store.Run
}

// migrateFiles loads both documents and runs the migration. Failed runs are
// always recorded; successful ones only when record is set.
func migrateFiles(ctx context.Context, migPath, instPath string, record bool) (*migration, error) {
	m, err := loader.LoadMigration(migPath)
	if err != nil {
		return nil, err
	}
	x, err := loader.LoadInstance(instPath)
	if err != nil {
		return nil, err
	}

	res := &migration{run: store.Run{
		Kind:         m.Kind().String(),
		SourceSchema: m.Source().Name,
		TargetSchema: m.Target().Name,
		Solver:       cfg.Engine.Solver,
	}}

	start := time.Now()
	y, err := migrate.NewEngine(cfg.EngineConfig()).Migrate(ctx, x, m)
	res.run.Duration = time.Since(start)
	if err != nil {
		res.run.Status = store.StatusFailed
		res.run.Error = err.Error()
		recordRun(ctx, res.run)
		return nil, err
	}

	res.output = y
	res.run.Status = store.StatusOK
	for ob := range y.Schema().Obs {
		res.run.Rows += y.NParts(ob)
	}
	logger.Info("migration finished",
		zap.String("kind", res.run.Kind),
		zap.String("target", y.String()),
		zap.Duration("took", res.run.Duration))
	if record {
		recordRun(ctx, res.run)
	}
	return res, nil
}

// saveResult stores the output instance and records the run against it.
func saveResult(ctx context.Context, res *migration) (string, error) {
	s, err := store.NewLocalStore(cfg.Store.DatabasePath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	id, err := s.SaveInstance(ctx, res.run.TargetSchema, res.output)
	if err != nil {
		return "", err
	}
	res.run.TargetInstance = id
	if cfg.Store.RecordRuns {
		if _, err := s.RecordRun(ctx, res.run); err != nil {
			return "", err
		}
	}
	return id, nil
}

// recordRun appends a run to the log. Failures to record are logged, not
// returned.
func recordRun(ctx context.Context, r store.Run) {
	if !cfg.Store.RecordRuns {
		return
	}
	s, err := store.NewLocalStore(cfg.Store.DatabasePath)
	if err != nil {
		logger.Warn("cannot open run log", zap.Error(err))
		return
	}
	defer s.Close()
	if _, err := s.RecordRun(ctx, r); err != nil {
		logger.Warn("cannot record run", zap.Error(err))
	}
}
