package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"ndarith/pkg/arithmetic"
	"ndarith/pkg/collapse"
	"ndarith/pkg/config"
	"ndarith/pkg/dataio"
	"ndarith/pkg/dataset"
)

type rootFlags struct {
	configPath string
	threads    int
	quiet      bool
	verbose    bool
	output     string
	metadata   bool
	writeAll   bool
}

func newRootCommand() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:   "ndarith [flags] TOKEN...",
		Short: "Reverse Polish arithmetic on N-dimensional datasets",
		Long: `ndarith evaluates a reverse Polish expression whose operands are numbers
and data files (.txt, .dat, .csv, .png, .jpg, or a directory of images).
Put "--" before an expression that starts with a negative number.

  ndarith a.txt b.txt + 2 /
  ndarith -o clean.txt cube.txt 3 0.2 3 collapse-sigclip-mean
  ndarith -o smooth.png 5 5 img.png filter-median
  ndarith -- -3 abs`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg))
			return run(cmd.OutOrStdout(), cfg, args)
		},
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&f.configPath, "config", "c", "ndarith.yaml", "configuration file")
	flags.IntVarP(&f.threads, "threads", "N", 0, "workers per operator (0 uses every CPU)")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "only report errors")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "log every operator")
	flags.StringVarP(&f.output, "output", "o", "", "output file (default from configuration)")
	flags.BoolVar(&f.metadata, "metadata", false, "write name, unit and comment to the output")
	flags.BoolVar(&f.writeAll, "write-all", false, "allow several datasets to remain and write them all")

	cmd.AddCommand(newOperatorsCommand(), newConfigCommand())
	return cmd
}

// loadConfig reads the configuration file and applies the flags the user
// set explicitly on top of it.
func loadConfig(cmd *cobra.Command, f *rootFlags) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("threads") {
		cfg.Processing.NumThreads = f.threads
	}
	if flags.Changed("quiet") {
		cfg.Output.Quiet = f.quiet
	}
	if flags.Changed("verbose") {
		cfg.Output.Verbose = f.verbose
	}
	if flags.Changed("output") {
		cfg.Output.File = f.output
	}
	if flags.Changed("metadata") {
		cfg.Output.Metadata = f.metadata
	}
	if flags.Changed("write-all") {
		cfg.Output.MultipleOutputs = f.writeAll
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case cfg.Output.Quiet:
		level = slog.LevelError
	case cfg.Output.Verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// run evaluates the expression. A single one-element result is printed,
// anything else is written to the output file.
func run(stdout io.Writer, cfg *config.Config, tokens []string) error {
	start := time.Now()
	logger := slog.Default()

	results, err := arithmetic.Evaluate(tokens,
		arithmetic.WithLoader(arithmetic.LoaderFunc(dataio.Load)),
		arithmetic.WithThreads(cfg.Processing.NumThreads),
		arithmetic.WithQuiet(cfg.Output.Quiet),
		arithmetic.WithMultipleOutputs(cfg.Output.MultipleOutputs),
		arithmetic.WithLogger(logger),
		arithmetic.WithFillParams(collapse.FillParams{
			ErodeMargin:  cfg.Collapse.FillErodeMargin,
			DilateMargin: cfg.Collapse.FillDilateMargin,
			MaxFraction:  cfg.Collapse.FillMaxFraction,
		}),
	)
	if err != nil {
		var internal *arithmetic.InternalError
		if errors.As(err, &internal) {
			logger.Error("internal error", slog.String("operator", internal.Op))
		}
		return err
	}

	if len(results) == 1 && results[0].NDim() == 1 && results[0].IsScalar() {
		_, err := fmt.Fprintln(stdout, formatScalar(results[0]))
		return err
	}
	for i, d := range results {
		path := dataio.NumberedPath(cfg.Output.File, i)
		if err := dataio.Save(d, path, cfg.Output.Metadata); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		logger.Info("output written", slog.String("file", path), slog.String("dataset", d.String()))
	}
	logger.Debug("finished", slog.Duration("elapsed", time.Since(start)))
	return nil
}

func formatScalar(d *dataset.Dataset) string {
	v := d.Float64(0)
	switch {
	case math.IsNaN(v):
		return "nan"
	case d.Type.IsInteger():
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func newOperatorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "operators",
		Short: "List every operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(arithmetic.Operators(), "\n"))
			return err
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [FILE]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "ndarith.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return errors.Errorf("%s already exists", path)
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
}
