package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/sgat/backend/cpu"
	"github.com/born-ml/sgat/internal/serialization"
	"github.com/born-ml/sgat/sparse"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the sparse tensors stored in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			sp := sparse.New(cpu.NewWithConfig(cfg.ParallelSettings()), sparse.WithLogger(slog.Default()))
			f, err := serialization.LoadFile(args[0], sp)
			if err != nil {
				return err
			}
			renderInspectTable(cmd.OutOrStdout(), f)
			return nil
		},
	}
}

func renderInspectTable(w io.Writer, f *serialization.File) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NAME", "SHAPE", "DTYPE", "NNZ", "DENSITY"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, name := range f.Names() {
		x := f.Tensors[name]
		density := "-"
		n := 1.0
		for _, d := range x.Shape() {
			n *= float64(d)
		}
		if n > 0 {
			density = fmt.Sprintf("%.2f%%", 100*float64(x.NNZ())/n)
		}
		table.Append([]string{name, fmt.Sprint(x.Shape()), x.DType().String(), fmt.Sprint(x.NNZ()), density})
	}
	table.Render()

	if len(f.Metadata) == 0 {
		return
	}
	keys := make([]string, 0, len(f.Metadata))
	for k := range f.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	_, _ = fmt.Fprintln(w)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s: %s\n", k, f.Metadata[k])
	}
}
