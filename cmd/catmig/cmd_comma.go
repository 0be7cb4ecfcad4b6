package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"catmig/internal/comma"
	"catmig/internal/loader"
	"catmig/internal/migrate"
)

// commaCmd prints the comma categories a sigma migration glues over
var commaCmd = &cobra.Command{
	Use:   "comma",
	Short: "Print the comma categories of a sigma migration",
	Long: `For a sigma migration along F: C -> D, prints (F ↓ d) for every object d
of D in topological order: its objects (c, f: F(c) -> d) and the generators
of C connecting them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loader.LoadMigration(migrationPath)
		if err != nil {
			return err
		}
		sm, ok := m.(migrate.SigmaMigration)
		if !ok {
			return fmt.Errorf("comma categories are built for sigma migrations, %s is %s", migrationPath, m.Kind())
		}
		cd, err := comma.Build(sm.Functor)
		if err != nil {
			return err
		}
		renderComma(cmd.OutOrStdout(), cd)
		return nil
	},
}

func init() {
	commaCmd.Flags().StringVarP(&migrationPath, "migration", "m", "", "Sigma migration document (required)")
	commaCmd.MarkFlagRequired("migration")
}

func renderComma(w io.Writer, cd *comma.Diagram) {
	f := cd.Functor
	for _, d := range cd.Order {
		k := cd.Categories[d]
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("(F ↓ %s)", f.Cod.Obs[d].Name)))
		t := newTable("#", "object", "path")
		for i, o := range k.Objects {
			t.Row(fmt.Sprint(i), f.Dom.Obs[o.Source].Name, f.Cod.FormatPath(o.Path))
		}
		fmt.Fprintln(w, t.Render())
		for _, m := range k.Morphisms {
			fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %s: %d -> %d", f.Dom.Homs[m.Hom].Name, m.Src, m.Tgt)))
		}
	}
}
