package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"catmig/internal/instance"
	"catmig/internal/loader"
	"catmig/internal/store"
)

var showStored string

// showCmd renders an instance as one table per object
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Render an instance as tables",
	Long: `Prints one table per object of the instance's schema. Columns are the
row id, the outgoing morphisms and the attributes.

Example:
  catmig show -i graph.yaml
  catmig show --stored 6f1c...`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&instancePath, "instance", "i", "", "Instance document")
	showCmd.Flags().StringVar(&showStored, "stored", "", "Id of an instance in the database")
	showCmd.MarkFlagsMutuallyExclusive("instance", "stored")
	showCmd.MarkFlagsOneRequired("instance", "stored")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd, true)
	defer cancel()

	var x *instance.Instance
	if showStored != "" {
		s, err := store.NewLocalStore(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer s.Close()
		if x, _, err = s.LoadInstance(ctx, showStored); err != nil {
			return err
		}
	} else {
		var err error
		if x, err = loader.LoadInstance(instancePath); err != nil {
			return err
		}
	}
	renderInstance(cmd.OutOrStdout(), x)
	return nil
}

// renderInstance writes a titled table for every object of x.
func renderInstance(w io.Writer, x *instance.Instance) {
	s := x.Schema()
	fmt.Fprintln(w, titleStyle.Render(x.String()))
	for ob, o := range s.Obs {
		homs := s.Out(ob)
		attrs := s.AttrsOf(ob)

		headers := []string{o.Name}
		for _, h := range homs {
			headers = append(headers, s.Homs[h].Name)
		}
		for _, a := range attrs {
			headers = append(headers, s.Attrs[a].Name)
		}

		t := newTable(headers...)
		for row := 0; row < x.NParts(ob); row++ {
			cells := []string{strconv.Itoa(row)}
			for _, h := range homs {
				cells = append(cells, strconv.Itoa(x.Subpart(h, row)))
			}
			for _, a := range attrs {
				cells = append(cells, formatValue(x.AttrValue(a, row)))
			}
			t.Row(cells...)
		}
		fmt.Fprintln(w)
		if x.NParts(ob) == 0 {
			fmt.Fprintln(w, mutedStyle.Render(o.Name+": no rows"))
			continue
		}
		fmt.Fprintln(w, t.Render())
	}
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
