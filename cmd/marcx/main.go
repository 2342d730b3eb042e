package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/marcx/pkg/batch"
	"github.com/coolbeans/marcx/pkg/classify"
	"github.com/coolbeans/marcx/pkg/config"
	"github.com/coolbeans/marcx/pkg/export"
	"github.com/coolbeans/marcx/pkg/extract"
	"github.com/coolbeans/marcx/pkg/marc"
	"github.com/coolbeans/marcx/pkg/preset"
)

var version = "0.1.0"

// app carries state shared by every command once the root pre-run is done.
type app struct {
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "marcx",
		Short: "Bibliographic record field extractor",
		Long: `marcx rebuilds MARC records pasted from a library catalogue screen
and extracts eleven fixed fields from them: ISBN, authors, titles,
original titles, call number, special location code and DDC number.

Local rules can be layered on top of the built-in extractors with
declarative YAML presets.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default ./marcx.yaml or $HOME/.marcx/marcx.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(extractCmd(a))
	rootCmd.AddCommand(fieldsCmd(a))
	rootCmd.AddCommand(classifyCmd(a))
	rootCmd.AddCommand(batchCmd(a))
	rootCmd.AddCommand(presetsCmd(a))
	rootCmd.AddCommand(watchCmd(a))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) classifier() (*classify.Classifier, error) {
	if a.cfg.ClassifierTable == "" {
		return classify.Default(), nil
	}
	return classify.LoadFile(a.cfg.ClassifierTable)
}

func (a *app) registry() (*preset.DefaultRegistry, error) {
	registry, err := preset.NewRegistryWithDirectory(a.cfg.PresetDir, a.logger)
	if err != nil {
		return nil, fmt.Errorf("loading presets from %s: %w", a.cfg.PresetDir, err)
	}
	return registry, nil
}

// pipeline builds the extraction pipeline, applying presetName or the
// configured preset when either is set.
func (a *app) pipeline(presetName string) (*extract.Pipeline, error) {
	c, err := a.classifier()
	if err != nil {
		return nil, err
	}
	opts := []extract.Option{
		extract.WithLogger(a.logger),
		extract.WithClassifier(c),
	}

	if presetName == "" {
		presetName = a.cfg.Preset
	}
	if presetName != "" {
		registry, err := a.registry()
		if err != nil {
			return nil, err
		}
		p, ok := registry.Get(presetName)
		if !ok {
			return nil, fmt.Errorf("preset %q not found in %s", presetName, a.cfg.PresetDir)
		}
		opts = append(opts, extract.WithOverrides(p.Override()))
	}

	return extract.NewPipeline(opts...), nil
}

// readInput reads the named file, or stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading record: %w", err)
	}
	return string(data), nil
}

func extractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract the eleven fields from one pasted record",
		Long: `Reconstruct a pasted catalogue record and extract its fields.

Without a file argument the record is read from stdin.

Example:
  marcx extract record.txt
  marcx extract record.txt --preset kolis-local -o table
  pbpaste | marcx extract --display`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			display, _ := cmd.Flags().GetBool("display")
			presetName, _ := cmd.Flags().GetString("preset")
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = a.cfg.Output
			}

			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			p, err := a.pipeline(presetName)
			if err != nil {
				return err
			}

			rec, err := p.Reconstruct(raw)
			if err != nil {
				return fmt.Errorf("extracting record: %w", err)
			}
			result := p.Extract(rec.Fields)

			out := cmd.OutOrStdout()
			if display {
				fmt.Fprintln(out, marc.Format(rec))
				fmt.Fprintln(out, strings.Repeat("─", 60))
			}
			return writeRecord(out, result, output)
		},
	}

	cmd.Flags().Bool("display", false, "Print the reconstructed record before the fields")
	cmd.Flags().String("preset", "", "Preset to apply (default from config)")
	cmd.Flags().StringP("output", "o", "", "Output format (json, yaml, table)")

	return cmd
}

func writeRecord(w io.Writer, rec extract.Record, output string) error {
	switch output {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(rec)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(rec); err != nil {
			return err
		}
		return encoder.Close()
	case "table":
		fmt.Fprintf(w, "%-32s %-12s %s\n", "FIELD", "STATUS", "VALUE")
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for _, f := range extract.AllFields() {
			slot := rec.Get(f)
			fmt.Fprintf(w, "%-32s %-12s %s\n", f.Key(), slot.Status, slot.Value)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want json, yaml or table)", output)
	}
}

func fieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields [file|-]",
		Short: "Print the reconstructed record in MARC mnemonic form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			rec, err := marc.NewReconstructor(a.logger).Reconstruct(raw)
			if err != nil {
				return fmt.Errorf("reconstructing record: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), marc.Format(rec))
			return nil
		},
	}
}

func classifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify VALUE...",
		Short: "Map call numbers to special location labels",
		Long: `Classify call numbers against the range table.

Example:
  marcx classify 823.92 174.3 K823`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.classifier()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %-12s %s\n", "INPUT", "OUTCOME", "LABEL")
			fmt.Fprintln(out, strings.Repeat("-", 60))
			for _, value := range args {
				res := c.Classify(value)
				fmt.Fprintf(out, "%-20s %-12s %s\n", value, res.Outcome, res.Label)
			}
			return nil
		},
	}
}

func batchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Extract every record file in a directory",
		Long: `Extract all .txt and .marc record files in a directory concurrently.

Rows are written in the chosen format; a summary report follows. A record
that cannot be reconstructed is reported as failed without stopping the
batch.

Example:
  marcx batch --dir records --out records.xlsx
  marcx batch --dir records --format jsonl --workers 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			out, _ := cmd.Flags().GetString("out")
			format, _ := cmd.Flags().GetString("format")
			workers, _ := cmd.Flags().GetInt("workers")
			presetName, _ := cmd.Flags().GetString("preset")
			reportFormat, _ := cmd.Flags().GetString("report")

			if dir == "" {
				return fmt.Errorf("--dir flag is required")
			}
			if workers == 0 {
				workers = a.cfg.Workers
			}
			if format == "" {
				format = formatFromPath(out)
			}
			write, err := export.Lookup(format)
			if err != nil {
				return err
			}
			if out == "" && format == "xlsx" {
				return fmt.Errorf("xlsx output requires --out")
			}

			jobs, err := batch.LoadDirectory(dir)
			if err != nil {
				return err
			}
			p, err := a.pipeline(presetName)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
			defer stop()

			runner := batch.NewRunner(p, batch.Config{Workers: workers}, a.logger)
			results, runErr := runner.Run(ctx, jobs)

			rows := make([]export.Row, 0, len(results))
			for _, res := range results {
				rows = append(rows, export.Row{ID: res.ID, Source: res.Source, Record: res.Record})
			}

			reportOut := cmd.OutOrStdout()
			if out == "" {
				if err := write(cmd.OutOrStdout(), rows); err != nil {
					return err
				}
				reportOut = cmd.ErrOrStderr()
			} else if err := writeFile(out, rows, write); err != nil {
				return err
			}

			if reportFormat == "json" {
				fmt.Fprintln(reportOut, batch.FormatReportJSON(results))
			} else {
				fmt.Fprint(reportOut, batch.FormatReport(results))
			}
			if out != "" {
				fmt.Fprintf(reportOut, "\nWrote %d row(s) to %s\n", len(rows), out)
			}
			return runErr
		},
	}

	cmd.Flags().String("dir", "", "Directory of record files (required)")
	cmd.Flags().String("out", "", "Output file (default stdout)")
	cmd.Flags().String("format", "", "Row format: xlsx, csv, jsonl (default from --out extension, else jsonl)")
	cmd.Flags().Int("workers", 0, "Concurrent extractions (default from config)")
	cmd.Flags().String("preset", "", "Preset to apply (default from config)")
	cmd.Flags().String("report", "text", "Report format (text, json)")

	return cmd
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return "xlsx"
	case ".csv":
		return "csv"
	default:
		return "jsonl"
	}
}

func writeFile(path string, rows []export.Row, write export.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func presetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Inspect extraction presets",
		Long: `List the presets in the configured preset directory or validate
preset files before installing them.

Examples:
  marcx presets list
  marcx presets validate presets/*.yaml`,
	}

	cmd.AddCommand(presetsListCmd(a))
	cmd.AddCommand(presetsValidateCmd())

	return cmd
}

func presetsListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")

			registry, err := a.registry()
			if err != nil {
				return err
			}
			presets := registry.List()
			out := cmd.OutOrStdout()

			if formatStr == "json" {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(presets)
			}

			if len(presets) == 0 {
				fmt.Fprintf(out, "No presets found in %s\n", a.cfg.PresetDir)
				return nil
			}

			fmt.Fprintf(out, "%-22s %-10s %6s  %s\n", "NAME", "VERSION", "RULES", "DESCRIPTION")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, p := range presets {
				fmt.Fprintf(out, "%-22s %-10s %6d  %s\n", p.Name, p.Version, len(p.Rules), p.Description)
			}
			fmt.Fprintf(out, "\n%d preset(s)\n", len(presets))
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "table", "Output format (table, json)")

	return cmd
}

func presetsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate preset files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err == nil {
					var p *preset.Preset
					if p, err = preset.Parse(data); err == nil {
						fmt.Fprintf(out, "  [OK]   %s (%s@%s, %d rules)\n", path, p.Name, p.Version, len(p.Rules))
						continue
					}
				}
				failed++
				fmt.Fprintf(out, "  [FAIL] %s\n", path)
				for _, line := range strings.Split(err.Error(), "\n") {
					fmt.Fprintf(out, "         %s\n", line)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d preset file(s) invalid", failed, len(args))
			}
			return nil
		},
	}
}

func watchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Extract record files as they appear in a directory",
		Long: `Watch a directory and print one JSON line per record file that is
created or rewritten. Stop with Ctrl-C.

Example:
  marcx watch --dir inbox`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			presetName, _ := cmd.Flags().GetString("preset")
			if dir == "" {
				return fmt.Errorf("--dir flag is required")
			}

			p, err := a.pipeline(presetName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			runner := batch.NewRunner(p, batch.Config{Workers: 1}, a.logger)
			watcher := batch.NewWatcher(dir, runner, a.logger, func(res batch.Result) {
				if res.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "[FAIL] %s: %v\n", res.Source, res.Err)
					return
				}
				row := export.Row{ID: res.ID, Source: res.Source, Record: res.Record}
				if err := export.WriteJSONLines(out, []export.Row{row}); err != nil {
					a.logger.Warn("result not written", zap.String("source", res.Source), zap.Error(err))
				}
			})

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
			defer stop()
			return watcher.Run(ctx)
		},
	}

	cmd.Flags().String("dir", "", "Directory to watch (required)")
	cmd.Flags().String("preset", "", "Preset to apply (default from config)")

	return cmd
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the marcx version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "marcx version %s\n", version)
		},
	}
}
