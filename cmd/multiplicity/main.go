// Command multiplicity extracts and cleans the expected planet multiplicity
// of simulated planetary systems, and draws the diagnostics.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"

	"github.com/spf13/cobra"

	"github.com/banshee-data/multiplicity/internal/config"
	"github.com/banshee-data/multiplicity/internal/fsutil"
	"github.com/banshee-data/multiplicity/internal/monitoring"
	"github.com/banshee-data/multiplicity/internal/signal"
	"github.com/banshee-data/multiplicity/internal/spikes"
)

func main() {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{fs: fsutil.OSFileSystem{}}
	err := newRootCmd(a).ExecuteContext(ctx)
	if a.syncLog != nil {
		_ = a.syncLog()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries state shared by subcommands once the root pre-run has
// loaded configuration.
type app struct {
	fs      fsutil.FileSystem
	cfg     *config.Config
	syncLog func() error

	configPath string
	logLevel   string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "multiplicity",
		Short: "Planet multiplicity post-processing",
		Long: `multiplicity reads simulation output tables, computes the expected number
of planets over time, removes outlier spikes and renders the results.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			sync, err := monitoring.Configure(a.logLevel)
			if err != nil {
				return err
			}
			a.syncLog = sync
			cfg, err := loadConfig(a.configPath)
			if err != nil {
				return err
			}
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a JSON or YAML config file (default "+config.DefaultConfigPath+" if present)")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("data-dir", "", "Directory holding sysSim_*.csv files")
	pf.String("output-dir", "", "Directory for plots and reports")
	pf.String("db", "", "SQLite database for batch results")
	pf.Float64("multiplier", spikes.DefaultMultiplier, "Outlier threshold multiplier")
	pf.Int("max-passes", 0, "Cleaning pass limit (0 bounds by series length)")
	pf.Bool("skip-failed", false, "Skip runs that ended before min end time")
	pf.Bool("trace", false, "Print cleaning diagnostics for every pass")
	pf.Int("workers", 0, "Concurrent files in batch mode (0 uses the number of CPUs)")

	root.AddCommand(
		newListCmd(a),
		newExtractCmd(a),
		newCleanCmd(a),
		newBatchCmd(a),
		newSpectraCmd(a),
		newPairsCmd(),
		newRunsCmd(a),
		newMigrateCmd(a),
		newVersionCmd(),
	)
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.Load(config.DefaultConfigPath)
	}
	return config.EmptyConfig(), nil
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	str := func(name string, dst **string) {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*dst = &v
		}
	}
	str("data-dir", &cfg.DataDir)
	str("output-dir", &cfg.OutputDir)
	str("db", &cfg.Database)

	if flags.Changed("multiplier") {
		v, _ := flags.GetFloat64("multiplier")
		cfg.Multiplier = &v
	}
	if flags.Changed("max-passes") {
		v, _ := flags.GetInt("max-passes")
		cfg.MaxPasses = &v
	}
	if flags.Changed("workers") {
		// 0 restores the CPU-count default.
		if v, _ := flags.GetInt("workers"); v == 0 {
			cfg.Workers = nil
		} else {
			cfg.Workers = &v
		}
	}
	if flags.Changed("skip-failed") {
		v, _ := flags.GetBool("skip-failed")
		cfg.SkipFailed = &v
	}
	if flags.Changed("trace") {
		v, _ := flags.GetBool("trace")
		cfg.Trace = &v
	}
	return cfg.Validate()
}

// signalOptions builds extraction options from cfg. loose selects the
// loose multiplier. Trace output goes to traceOut when tracing is enabled.
func signalOptions(cfg *config.Config, loose bool, traceOut io.Writer) signal.Options {
	m := cfg.GetMultiplier()
	if loose {
		m = cfg.GetLooseMultiplier()
	}
	opts := signal.Options{
		SkipFailed: cfg.GetSkipFailed(),
		MinEndTime: cfg.GetMinEndTime(),
		Cleaning: spikes.Options{
			Multiplier: m,
			MaxPasses:  cfg.GetMaxPasses(),
		},
	}
	if cfg.GetTrace() {
		opts.Cleaning.Trace = traceOut
	}
	return opts
}
