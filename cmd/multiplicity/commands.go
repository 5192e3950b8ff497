package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/multiplicity/internal/batch"
	"github.com/banshee-data/multiplicity/internal/catalog"
	"github.com/banshee-data/multiplicity/internal/db"
	"github.com/banshee-data/multiplicity/internal/fsutil"
	"github.com/banshee-data/multiplicity/internal/monitoring"
	"github.com/banshee-data/multiplicity/internal/pairs"
	"github.com/banshee-data/multiplicity/internal/render"
	"github.com/banshee-data/multiplicity/internal/report"
	"github.com/banshee-data/multiplicity/internal/signal"
	"github.com/banshee-data/multiplicity/internal/spectra"
	"github.com/banshee-data/multiplicity/internal/spikes"
	"github.com/banshee-data/multiplicity/internal/table"
	"github.com/banshee-data/multiplicity/internal/version"
)

func newListCmd(a *app) *cobra.Command {
	var stable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List simulation files in the data directory in system order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := catalog.List(a.fs, a.cfg.GetDataDir())
			if err != nil {
				return err
			}
			if stable {
				entries = catalog.Stable(entries, a.cfg.GetUnstableSystems())
			}
			for _, name := range catalog.Names(entries) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stable, "stable", false, "Leave out the configured unstable systems")
	return cmd
}

func newExtractCmd(a *app) *cobra.Command {
	var loose bool
	var plotPath string
	cmd := &cobra.Command{
		Use:   "extract <file.csv>",
		Short: "Print the cleaned expected multiplicity of one simulation as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex := signal.NewExtractor(a.fs, signalOptions(a.cfg, loose, cmd.ErrOrStderr()))
			ex.Tolerant = false

			res, err := ex.ExtractFile(args[0])
			if err != nil {
				return err
			}
			if res.Empty() {
				monitoring.Logf("%s: run ended before min end time, skipped", args[0])
				return nil
			}
			if plotPath != "" {
				title := filepath.Base(args[0])
				if err := render.SaveExpectation(a.fs, res, title, plotPath); err != nil {
					return err
				}
			}
			return table.Write(cmd.OutOrStdout(), []string{signal.TimeColumn, "Expectation"}, [][]float64{res.Time, res.Expectation})
		},
	}
	cmd.Flags().BoolVar(&loose, "loose", false, "Use the loose multiplier")
	cmd.Flags().StringVar(&plotPath, "plot", "", "Also save a plot to this path (.pdf, .png or .svg)")
	return cmd
}

func newCleanCmd(a *app) *cobra.Command {
	var column string
	var loose bool
	cmd := &cobra.Command{
		Use:   "clean <file.csv>",
		Short: "Remove outlier spikes from one column and print the table as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := table.Load(a.fs, args[0])
			if err != nil {
				return err
			}
			i, ok := t.Index(column)
			if !ok {
				return fmt.Errorf("%w %q", table.ErrMissingColumn, column)
			}

			opts := signalOptions(a.cfg, loose, cmd.ErrOrStderr()).Cleaning
			cleaned, passes, err := spikes.Clean(t.Columns[i], opts)
			if err != nil {
				return fmt.Errorf("clean %s: %w", column, err)
			}
			monitoring.Logf("%s: removed %d spikes from %q in %d passes", args[0], spikes.Removed(passes), column, len(passes))

			cols := append([][]float64(nil), t.Columns...)
			cols[i] = cleaned
			return table.Write(cmd.OutOrStdout(), t.Header, cols)
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "Column to clean")
	cmd.Flags().BoolVar(&loose, "loose", false, "Use the loose multiplier")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var includeUnstable, failFast, noPlots bool
	var dashboard, metricsFile, xlsxPath string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Extract, clean and plot every simulation in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			entries, err := catalog.List(a.fs, cfg.GetDataDir())
			if err != nil {
				return err
			}
			if !includeUnstable {
				entries = catalog.Stable(entries, cfg.GetUnstableSystems())
			}

			r := &batch.Runner{
				Extractor: signal.NewExtractor(a.fs, signalOptions(cfg, false, cmd.ErrOrStderr())),
				Dir:       cfg.GetDataDir(),
				Workers:   cfg.GetWorkers(),
				FailFast:  failFast,
			}
			if metricsFile != "" {
				r.Metrics = batch.NewMetrics()
			}

			if path := cfg.GetDatabase(); path != "" {
				store, err := db.Open(path)
				if err != nil {
					return err
				}
				defer store.Close()
				cfgJSON, err := json.Marshal(cfg)
				if err != nil {
					return err
				}
				if r.RunID, err = store.StartRun(string(cfgJSON)); err != nil {
					return err
				}
				r.Recorder = store
			}

			if !noPlots {
				outDir, format := cfg.GetOutputDir(), cfg.GetPlotFormat()
				r.Renderer = batch.RendererFunc(func(fr batch.FileResult) error {
					stem := fr.Entry.Stem()
					return render.SaveExpectation(a.fs, fr.Result, stem, filepath.Join(outDir, stem+"."+format))
				})
			}

			sum, runErr := r.Run(cmd.Context(), entries)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d files: %d ok, %d missing, %d skipped, %d failed\n", len(sum.Files),
				sum.Count(batch.StatusOK), sum.Count(batch.StatusMissing), sum.Count(batch.StatusSkipped), sum.Count(batch.StatusFailed))
			if r.RunID != "" {
				fmt.Fprintf(out, "run %s\n", r.RunID)
			}
			for _, f := range sum.HighVariation(cfg.GetHighVariationFraction()) {
				fmt.Fprintf(out, "high variation: %s (%.2f%% removed)\n", f.Entry.Name, 100*f.RemovedFraction())
			}

			if dashboard != "" {
				if err := writeDashboard(a.fs, dashboard, sum); err != nil {
					return err
				}
			}
			if xlsxPath != "" {
				if err := writeWorkbook(a.fs, xlsxPath, sum, cfg.GetHighVariationFraction()); err != nil {
					return err
				}
			}
			if r.Metrics != nil {
				if err := r.Metrics.WriteTextfile(metricsFile); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&includeUnstable, "include-unstable", false, "Process the configured unstable systems too")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failed file")
	cmd.Flags().BoolVar(&noPlots, "no-plots", false, "Do not write per-system plots")
	cmd.Flags().StringVar(&dashboard, "dashboard", "", "Write an HTML dashboard of the extracted systems to this path")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus text-format run metrics to this path")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write a spreadsheet summary of the run to this path")
	return cmd
}

func writeDashboard(fsys fsutil.FileSystem, path string, sum batch.Summary) error {
	var items []render.DashboardItem
	for _, f := range sum.Files {
		if f.Status == batch.StatusOK {
			items = append(items, render.DashboardItem{Name: f.Entry.Stem(), Result: f.Result})
		}
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if err := render.WriteDashboard(f, "Planet multiplicity", items); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeWorkbook(fsys fsutil.FileSystem, path string, sum batch.Summary, highVariation float64) error {
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteXLSX(f, sum, highVariation); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newSpectraCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "spectra <file.csv>",
		Short: "Write the equinoctial element spectra of one simulation as a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := table.Load(a.fs, args[0])
			if err != nil {
				return err
			}
			rep, err := spectra.Analyze(t, signal.TimeColumn, spectra.Options{})
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			for _, p := range rep.Planets {
				fmt.Fprintf(out, "planet %d: period %.4g days\n", p.Planet, p.PeriodDays)
				for _, s := range p.Spectra {
					fmt.Fprintf(out, "  %s peak periods: %v\n", s.Name, s.PeakPeriods())
				}
			}

			if outPath == "" {
				e := filepath.Base(args[0])
				outPath = filepath.Join(a.cfg.GetOutputDir(), e[:len(e)-len(filepath.Ext(e))]+"_spectra.pdf")
			}
			if err := a.fs.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
				return err
			}
			w, err := a.fs.Create(outPath)
			if err != nil {
				return err
			}
			if err := render.WriteSpectraPDF(w, rep); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "PDF output path (default <output-dir>/<name>_spectra.pdf)")
	return cmd
}

func newPairsCmd() *cobra.Command {
	var adjacent bool
	cmd := &cobra.Command{
		Use:   "pairs <planets>",
		Short: "List the planet index pairs and their column names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("planets must be an integer: %w", err)
			}
			ps := pairs.Combinations(m)
			if adjacent {
				ps = pairs.Adjacent(m)
			}
			for _, p := range ps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Label(), p.Column())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&adjacent, "adjacent", false, "Only neighbouring planets")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List batch runs stored in the result database, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.GetDatabase()
			if path == "" {
				return fmt.Errorf("no database configured, use --db")
			}
			store, err := db.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				rows, err := store.Extractions(r.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\t%d files\n", r.ID, r.StartedAt, len(rows))
			}
			return nil
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the result database schema",
	}

	connect := func() (*db.DB, error) {
		path := a.cfg.GetDatabase()
		if path == "" {
			return nil, fmt.Errorf("no database configured, use --db")
		}
		return db.Connect(path)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := connect()
				if err != nil {
					return err
				}
				defer store.Close()
				return store.MigrateUp()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := connect()
				if err != nil {
					return err
				}
				defer store.Close()
				return store.MigrateDown()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := connect()
				if err != nil {
					return err
				}
				defer store.Close()
				v, dirty, err := store.MigrateVersion()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
				return nil
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return err
				}
				store, err := connect()
				if err != nil {
					return err
				}
				defer store.Close()
				return store.MigrateForce(v)
			},
		},
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
