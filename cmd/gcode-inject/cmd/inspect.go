package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Summarize moves, layers, segments and warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			s := doc.Summary()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "lines\t%d\n", s.Lines)
			fmt.Fprintf(w, "moves\t%d (%d depositing, %d travel)\n", s.Moves, s.Depositing, s.Travel)
			fmt.Fprintf(w, "layers\t%d\n", s.Layers)
			fmt.Fprintf(w, "segments\t%d\n", s.Segments)
			fmt.Fprintf(w, "path length\t%.3f mm\n", s.PathLength)
			if s.Depositing > 0 {
				fmt.Fprintf(w, "bounds\tX %.3f..%.3f  Y %.3f..%.3f  Z %.3f..%.3f\n",
					s.Bounds.Min.X, s.Bounds.Max.X, s.Bounds.Min.Y, s.Bounds.Max.Y, s.Bounds.Min.Z, s.Bounds.Max.Z)
			}
			if s.Layers > 1 {
				fmt.Fprintf(w, "layer spacing\t%.4f mm (stddev %.4f)\n", s.SpacingMean, s.SpacingStdev)
			}
			fmt.Fprintf(w, "warnings\t%d\n", s.Warnings)
			for _, sys := range s.Systems {
				fmt.Fprintf(w, "system %s\t%d depositing, %d travel, layers %s\n",
					sys.Name, sys.Depositing, sys.Travel, joinInts(sys.Layers))
			}
			return w.Flush()
		},
	}
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func newLayersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "layers FILE",
		Short: "List layer boundaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LAYER\tLINE\tHEIGHT")
			for _, l := range doc.Layers.Layers() {
				height := "-"
				if l.HasHeight {
					height = fmt.Sprintf("%.3f", l.Height)
				}
				fmt.Fprintf(w, "%d\t%d\t%s\n", l.Number, l.Line+1, height)
			}
			return w.Flush()
		},
	}
}

func newSegmentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "segments FILE",
		Short: "List continuous deposition paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SEGMENT\tLAYER\tLINES\tPOINTS\tLENGTH")
			for i, s := range doc.Segments {
				fmt.Fprintf(w, "%d\t%d\t%d-%d\t%d\t%.3f\n", i+1, s.Layer, s.StartLine+1, s.EndLine+1, len(s.Points), s.Length())
			}
			return w.Flush()
		},
	}
}
