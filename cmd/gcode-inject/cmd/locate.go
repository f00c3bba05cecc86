package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"gcode-inject/pkg/document"
	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/inject"
	"gcode-inject/pkg/tool"
)

// placement holds the flags that choose an insertion point.
type placement struct {
	height float64
	layer  int
	point  string
	target bool
	end    bool
}

func (p *placement) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&p.height, "height", 0, "layer nearest this height")
	f.IntVar(&p.layer, "layer", 0, "layer number, from 1")
	f.StringVar(&p.point, "point", "", "move nearest X,Y,Z within the height tolerance")
	f.BoolVar(&p.target, "target", false, "move nearest the tool's own start position")
	f.BoolVar(&p.end, "end", false, "before the end-of-program marker")
	cmd.MarkFlagsMutuallyExclusive("height", "layer", "point", "target", "end")
	cmd.MarkFlagsOneRequired("height", "layer", "point", "target", "end")
}

// request turns the flags into an injection request. profile may be nil
// when no tool was selected.
func (p *placement) request(cmd *cobra.Command, profile *tool.Profile) (inject.Request, error) {
	f := cmd.Flags()
	switch {
	case f.Changed("height"):
		return inject.Request{Mode: inject.ModeHeight, Height: p.height}, nil
	case f.Changed("layer"):
		return inject.Request{Mode: inject.ModeLayer, Layer: p.layer}, nil
	case f.Changed("point"):
		v, err := parsePoint(p.point)
		if err != nil {
			return inject.Request{}, err
		}
		return inject.Request{Mode: inject.ModePoint, Point: v}, nil
	case p.target:
		if profile == nil {
			return inject.Request{}, errors.InvalidArgumentError("--target needs --tool")
		}
		v, ok := profile.Target()
		if !ok {
			return inject.Request{}, errors.InvalidArgumentError("tool " + profile.Name + " has no start position")
		}
		return inject.Request{Mode: inject.ModePoint, Point: v}, nil
	default:
		return inject.Request{Mode: inject.ModeEnd}, nil
	}
}

// parsePoint parses "X,Y,Z".
func parsePoint(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, errors.InvalidArgumentError(fmt.Sprintf("point %q must be X,Y,Z", s))
	}
	var c [3]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return r3.Vec{}, errors.InvalidArgumentError(fmt.Sprintf("point %q: %v", s, err))
		}
		c[i] = v
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

func newLocateCmd(a *app) *cobra.Command {
	var (
		pl       placement
		toolName string
	)
	cmd := &cobra.Command{
		Use:   "locate FILE",
		Short: "Print the line an injection would follow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var profile *tool.Profile
			if toolName != "" {
				p, err := a.settings.Tools.Get(toolName)
				if err != nil {
					return err
				}
				profile = p
			}
			req, err := pl.request(cmd, profile)
			if err != nil {
				return err
			}
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			line, detail, err := a.locate(doc, req)
			if err != nil {
				return err
			}
			if line < 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "top of file")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "after line %d: %s\n", line+1, doc.Lines[line])
			}
			if detail != "" {
				fmt.Fprintln(cmd.OutOrStdout(), detail)
			}
			return nil
		},
	}
	pl.register(cmd)
	cmd.Flags().StringVarP(&toolName, "tool", "t", "", "tool whose start position --target uses")
	return cmd
}

// locate resolves req the way inject would place a block, and describes
// how the point was found.
func (a *app) locate(doc *document.Document, req inject.Request) (int, string, error) {
	pl, err := a.injector(a.settings.Inject.OnExisting).Locate(doc, req)
	if err != nil {
		return 0, "", err
	}
	switch {
	case pl.Layer != nil:
		return pl.At, fmt.Sprintf("layer %d at height %.3f", pl.Layer.Number, pl.Layer.Height), nil
	case pl.Match != nil:
		return pl.At, fmt.Sprintf("%s, distance %.3f", pl.Match.Move, pl.Match.Distance), nil
	default:
		return pl.At, "before end marker " + a.settings.Inject.EndMarker, nil
	}
}
