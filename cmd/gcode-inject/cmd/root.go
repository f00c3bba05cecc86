// Package cmd implements the gcode-inject command tree.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gcode-inject/pkg/config"
	"gcode-inject/pkg/document"
	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/log"
	"gcode-inject/pkg/metrics"
	"gcode-inject/pkg/storage"
)

// app carries the state shared by every command of one invocation.
type app struct {
	configPaths []string
	logLevel    string
	logFormat   string
	metricsOut  string

	settings *config.Settings
	logger   *log.Logger
	metrics  *metrics.PipelineMetrics
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "gcode-inject",
		Short: "Splice auxiliary tool blocks into slicer toolpaths",
		Long: `gcode-inject reconstructs the coordinate trace of a G-code toolpath,
resolves an insertion point and splices in a sentinel-delimited block for an
auxiliary tool head. Injections are idempotent and files are rewritten
atomically.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metricsOut == "" {
				return nil
			}
			return a.metrics.WriteTextfile(a.metricsOut)
		},
	}

	pf := root.PersistentFlags()
	pf.StringArrayVarP(&a.configPaths, "config", "c", nil, "INI or YAML settings file; repeat to layer files")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text, json")
	pf.StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile")

	root.AddCommand(
		newInspectCmd(a),
		newLayersCmd(a),
		newSegmentsCmd(a),
		newLocateCmd(a),
		newInjectCmd(a),
		newBlocksCmd(a),
		newRemoveCmd(a),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "error: %v\n", err)
		return 1
	}
	return 0
}

// setup configures logging, settings and metrics before any command runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.logger = log.New("gcode-inject")
	a.logger.SetWriter(cmd.ErrOrStderr())
	log.ConfigureFromEnv(a.logger)
	if a.logLevel != "" {
		a.logger.SetLevel(log.ParseLevel(a.logLevel))
	}
	if a.logFormat != "" {
		a.logger.SetFormat(log.ParseFormat(a.logFormat))
	}
	if f, ok := cmd.ErrOrStderr().(*os.File); !ok || f != os.Stderr {
		a.logger.SetColorize(false)
	}
	log.SetDefaultLogger(a.logger)

	a.metrics = metrics.NewPipelineMetrics()

	// Top-level scalars of a YAML profile belong to the selected tool.
	defaultSection := ""
	if f := cmd.Flags().Lookup("tool"); f != nil && f.Value.String() != "" {
		defaultSection = config.ToolPrefix + strings.ToLower(f.Value.String())
	}

	cfg := config.New()
	for _, path := range a.configPaths {
		c, err := config.Load(path, defaultSection)
		if err != nil {
			return err
		}
		cfg.Merge(c)
	}
	settings, err := config.LoadSettings(cfg)
	if err != nil {
		return err
	}
	if err := cfg.CheckUnusedOptions(); err != nil {
		a.logger.WithError(err).Warn("ignored configuration options")
	}
	a.settings = settings
	return nil
}

// load reads and parses a toolpath file.
func (a *app) load(path string) (*document.Document, error) {
	done := a.metrics.StartStage("read")
	lines, err := storage.LoadLines(path)
	done()
	if err != nil {
		return nil, err
	}

	done = a.metrics.StartStage("parse")
	doc := document.New(lines, a.settings.Parser)
	done()

	depositing := 0
	for _, m := range doc.Moves {
		if m.Deposits {
			depositing++
		}
	}
	a.metrics.RecordDocument(len(doc.Moves), depositing, len(doc.Warnings), doc.Layers.Len())

	logger := a.logger.WithPrefix("parse")
	for _, w := range doc.Warnings {
		logger.WithError(w).Debug("token skipped")
	}
	if len(doc.Warnings) > 0 {
		logger.WithFields(log.Fields{"file": path, "warnings": len(doc.Warnings)}).Warn("malformed coordinate tokens skipped")
	}
	if len(doc.Moves) == 0 {
		logger.WithError(errors.EmptyInputError()).WithField("file", path).Warn("nothing to locate against")
	}
	return doc, nil
}

// write persists lines to out, or back to in when out is empty.
func (a *app) write(in, out string, lines []string) error {
	target := out
	if target == "" {
		target = in
	}
	done := a.metrics.StartStage("write")
	res, err := storage.WriteAtomic(target, lines, storage.WriteOptions{Backup: a.settings.Inject.Backup && target == in})
	done()
	if err != nil {
		return err
	}
	entry := a.logger.WithFields(log.Fields{"file": res.Path, "bytes": res.Bytes})
	if res.BackupPath != "" {
		entry = entry.WithField("backup", res.BackupPath)
	}
	entry.Infof("wrote %d lines", len(lines))
	return nil
}
