package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/inject"
	"gcode-inject/pkg/locate"
	"gcode-inject/pkg/splice"
	"gcode-inject/pkg/tool"
)

func newInjectCmd(a *app) *cobra.Command {
	var (
		pl          placement
		toolName    string
		output      string
		onExisting  string
		fallbackEnd bool
		backup      bool
		dryRun      bool
		params      map[string]string
	)
	cmd := &cobra.Command{
		Use:   "inject FILE",
		Short: "Splice a tool block into a toolpath",
		Example: `  gcode-inject inject part.gcode --tool vacuum_pnp --height 0.6
  gcode-inject inject part.gcode --tool screwdriver --target --fallback-end -o out.gcode
  gcode-inject inject part.gcode --tool vacuum_pnp --layer 12 --set startX=42.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.settings.Tools.Get(toolName)
			if err != nil {
				return err
			}
			if len(params) > 0 {
				values, err := parseParams(params)
				if err != nil {
					return err
				}
				if profile, err = profile.WithParams(values); err != nil {
					return err
				}
			}
			block, err := profile.Render()
			if err != nil {
				return err
			}
			req, err := pl.request(cmd, profile)
			if err != nil {
				return err
			}

			policy := a.settings.Inject.OnExisting
			if cmd.Flags().Changed("on-existing") {
				if policy, err = inject.ParsePolicy(onExisting); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("backup") {
				a.settings.Inject.Backup = backup
			}

			doc, err := a.load(args[0])
			if err != nil {
				return err
			}

			in := a.injector(policy)
			res, err := in.Inject(doc, block, req)
			if err != nil && fallbackEnd && req.Mode != inject.ModeEnd && canFallBack(err) {
				a.logger.WithError(err).WithField("tool", block.Tool).
					Warnf("no insertion point by %s, falling back to end marker", req.Mode)
				res, err = in.Inject(doc, block, inject.Request{Mode: inject.ModeEnd})
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintf(out, "%s: block already present at lines %d-%d, unchanged\n", block.Tool, res.Span.Start+1, res.Span.End+1)
				return nil
			}
			fmt.Fprintf(out, "%s: injected at lines %d-%d%s\n", block.Tool, res.Span.Start+1, res.Span.End+1, describe(res))
			if dryRun {
				return nil
			}
			return a.write(args[0], output, res.Lines)
		},
	}
	pl.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&toolName, "tool", "t", "", "tool profile to inject")
	f.StringVarP(&output, "output", "o", "", "write here instead of rewriting FILE")
	f.StringVar(&onExisting, "on-existing", "", "when a block is present: skip, replace, fail (default from settings)")
	f.BoolVar(&fallbackEnd, "fallback-end", false, "inject before the end marker when no insertion point is found")
	f.BoolVar(&backup, "backup", false, "keep a timestamped copy when rewriting FILE in place")
	f.BoolVar(&dryRun, "dry-run", false, "report the placement without writing")
	f.StringToStringVar(&params, "set", nil, "override template parameters, name=value")
	_ = cmd.MarkFlagRequired("tool")
	return cmd
}

func (a *app) injector(policy inject.Policy) *inject.Injector {
	in := inject.New(locate.New(a.settings.Locator), policy)
	in.EndMarker = a.settings.Inject.EndMarker
	in.Logger = a.logger.WithPrefix("inject")
	in.Metrics = a.metrics
	in.Guards = a.settings.Tools.Sentinels()
	return in
}

// canFallBack reports locate failures the end marker can stand in for.
func canFallBack(err error) bool {
	switch errors.CodeOf(err) {
	case errors.ErrNoMatchFound, errors.ErrNoLayersFound, errors.ErrLayerNotFound:
		return true
	}
	return false
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make(map[string]float64, len(raw))
	for _, k := range names {
		v, err := strconv.ParseFloat(raw[k], 64)
		if err != nil {
			return nil, errors.InvalidArgumentError(fmt.Sprintf("parameter %s: %q is not a number", k, raw[k]))
		}
		out[k] = v
	}
	return out, nil
}

func describe(res *inject.Result) string {
	s := ""
	switch {
	case res.Layer != nil:
		s = fmt.Sprintf(", layer %d", res.Layer.Number)
	case res.Match != nil:
		s = fmt.Sprintf(", after line %d (distance %.3f)", res.Match.Move.Line+1, res.Match.Distance)
	}
	if res.Replaced > 0 {
		s += fmt.Sprintf(", replaced %d", res.Replaced)
	}
	return s
}

func newBlocksCmd(a *app) *cobra.Command {
	var toolName string
	cmd := &cobra.Command{
		Use:   "blocks FILE",
		Short: "List injected tool blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := a.settings.Tools.Names()
			if toolName != "" {
				names = []string{toolName}
			}
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				block, err := renderTool(a, name)
				if err != nil {
					return err
				}
				spans, err := splice.DetectBlocks(doc.Lines, block.Start, block.End)
				for _, s := range spans {
					fmt.Fprintf(out, "%s\t%d-%d\n", block.Tool, s.Start+1, s.End+1)
				}
				if err != nil {
					a.logger.WithError(err).WithField("tool", block.Tool).Warn("unterminated block")
					fmt.Fprintf(out, "%s\tunterminated at line %d\n", block.Tool, errors.LineOf(err)+1)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&toolName, "tool", "t", "", "only this tool")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var (
		toolName string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "remove FILE",
		Short: "Remove every block of a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := renderTool(a, toolName)
			if err != nil {
				return err
			}
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			lines, n, err := a.injector(a.settings.Inject.OnExisting).Remove(doc, block)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d block(s)\n", block.Tool, n)
			return a.write(args[0], output, lines)
		},
	}
	cmd.Flags().StringVarP(&toolName, "tool", "t", "", "tool whose blocks to remove")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write here instead of rewriting FILE")
	_ = cmd.MarkFlagRequired("tool")
	return cmd
}

func renderTool(a *app, name string) (tool.Block, error) {
	p, err := a.settings.Tools.Get(name)
	if err != nil {
		return tool.Block{}, err
	}
	return p.Render()
}
