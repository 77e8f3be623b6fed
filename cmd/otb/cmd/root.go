package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceBOM/internal/config"
	"github.com/OpenTraceLab/OpenTraceBOM/internal/logging"
	"github.com/OpenTraceLab/OpenTraceBOM/internal/metrics"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/bom"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/netlist"
)

var (
	// Global flags
	verbose           bool
	configFile        string
	groupBy           string
	headerMode        string
	normalize         string
	excludeRefs       []string
	excludeValues     []string
	excludeFootprints []string
	excludeDNP        bool
	metricsFile       string
	logLevel          string
	logFormat         string
)

var rootCmd = &cobra.Command{
	Use:   "otb <netlist> <output.csv>",
	Short: "OpenTraceBOM - KiCad netlist to JLCPCB BOM converter",
	Long: `OpenTraceBOM (otb) reads a KiCad design export and writes a grouped
bill of materials as CSV, ready for the JLCPCB assembly service.

Accepted inputs are the generic XML netlist, the s-expression netlist and
.kicad_sch schematics (sub-sheets are followed). Parts are grouped by value,
footprint, DNP state, library part and user fields unless --group-by says
otherwise; add refprefix to also split by designator class. If the output
file cannot be opened the BOM is written to stdout.

Examples:
  otb board.xml board-bom.csv                   # Grouped JLCPCB BOM
  otb board.kicad_sch bom.csv --exclude-dnp     # Leave DNP parts out
  otb board.net bom.csv --group-by ref          # One row per component
  otb board.xml bom.csv --header columns        # Name every column
  otb info board.xml                            # Show what would be written`,
	Version: "0.1.0",
	Args:    cobra.ExactArgs(2),
	RunE:    runBOM,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVarP(&configFile, "config", "c", "", "JSON configuration file")
	flags.StringVarP(&groupBy, "group-by", "g", bom.DefaultKeyPolicy,
		`grouping key terms: value, footprint, dnp, ref, refprefix, lib, part,
libpart, datasheet, description, fields, field(NAME)`)
	flags.StringVar(&headerMode, "header", string(bom.HeaderJLCPCB), "header row: jlcpcb or columns")
	flags.StringVar(&normalize, "normalize", "none", "cell text normalization: none, nfc, nfkc or ascii")
	flags.StringSliceVar(&excludeRefs, "exclude-ref", []string{"^#"}, "regex of references to leave out")
	flags.StringSliceVar(&excludeValues, "exclude-value", nil, "regex of values to leave out")
	flags.StringSliceVar(&excludeFootprints, "exclude-footprint", nil, "regex of footprints to leave out")
	flags.BoolVar(&excludeDNP, "exclude-dnp", false, "leave do-not-populate parts out")
	flags.StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default warn)")
	flags.StringVar(&logFormat, "log-format", "", "log format: console or json (default console)")
}

// loadConfig layers defaults, the config file, the environment and the
// flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if configFile != "" {
		if err := config.LoadFile(configFile, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(config.LoadEnv())

	flags := cmd.Flags()
	if flags.Changed("group-by") {
		cfg.GroupBy = groupBy
	}
	if flags.Changed("header") {
		cfg.Header = headerMode
	}
	if flags.Changed("normalize") {
		cfg.Normalize = normalize
	}
	if flags.Changed("exclude-ref") {
		cfg.ExcludeRefs = excludeRefs
	}
	if flags.Changed("exclude-value") {
		cfg.ExcludeValues = excludeValues
	}
	if flags.Changed("exclude-footprint") {
		cfg.ExcludeFootprints = excludeFootprints
	}
	if flags.Changed("exclude-dnp") {
		cfg.ExcludeDNP = excludeDNP
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	return cfg, nil
}

// setup resolves the configuration and builds the run logger
func setup(cmd *cobra.Command) (config.Config, *config.Resolved, *zap.Logger, error) {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, nil, err
	}

	resolved, err := cfg.Validate()
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return cfg, nil, nil, err
	}

	return cfg, resolved, logger, nil
}

func runBOM(cmd *cobra.Command, args []string) (err error) {
	cfg, resolved, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	start := time.Now()
	input, output := args[0], args[1]

	nl, err := netlist.LoadFile(input)
	if err != nil {
		return err
	}
	logger.Debug("Loaded design",
		zap.String("file", input),
		zap.String("format", string(nl.Format)),
		zap.Int("components", len(nl.Components)),
		zap.Int("lib_parts", len(nl.LibParts)))

	out, closeOut := openOutput(output, logger)
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", output, cerr)
		}
	}()

	opts := resolved.Options()
	opts.Logger = logger

	w := bom.NewCSVWriter(out)
	stats, err := bom.Generate(nl, w, opts)
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	elapsed := time.Since(start)
	logger.Info("BOM written",
		zap.String("output", output),
		zap.Int("groups", stats.Groups),
		zap.Int("rows", stats.Rows),
		zap.Duration("elapsed", elapsed))

	if cfg.MetricsFile != "" {
		m := metrics.New()
		m.Record(stats, elapsed)
		if err := m.WriteFile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	return nil
}

// openOutput creates the output file, falling back to stdout when it
// cannot be opened.
func openOutput(path string, logger *zap.Logger) (io.Writer, func() error) {
	f, err := os.Create(path)
	if err != nil {
		logger.Warn("Can't open output file for writing, using stdout",
			zap.String("path", path), zap.Error(err))
		return os.Stdout, func() error { return nil }
	}
	return f, f.Close
}
