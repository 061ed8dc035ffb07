package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/rlugojr/example-models/drawstore"
	"github.com/rlugojr/example-models/encounter"
	"github.com/rlugojr/example-models/jollyseber"
	"github.com/rlugojr/example-models/posterior"
)

// app carries the state shared by the sub-commands.
type app struct {
	cfg        *Config
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {

	a := &app{}

	root := &cobra.Command{
		Use:           "jsfit",
		Short:         "Fit Jolly-Seber models to capture-recapture data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if cmd.Flags().Changed("seed") {
				a.cfg.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().Uint64("seed", 1, "seed of the random source")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log fitting progress to stderr")

	root.AddCommand(a.simulateCmd(), a.fitCmd(), a.summaryCmd())

	return root
}

func (a *app) logger(cmd *cobra.Command) *log.Logger {
	if !a.verbose {
		return nil
	}
	return log.New(cmd.ErrOrStderr(), "jsfit: ", log.LstdFlags)
}

func (a *app) simulateCmd() *cobra.Command {

	var out string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate encounter histories from the configured population",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {

			hist, truth, err := jollyseber.SimulateHistories(a.cfg.Simulate.simConfig(), rand.NewSource(a.cfg.Seed))
			if err != nil {
				return fmt.Errorf("simulate: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if err := hist.WriteCSV(w); err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Detected %d of Nsuper=%d\nN=%v\nB=%v\n",
				hist.NumInd(), truth.NSuper, truth.N, truth.B)

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV file, stdout if empty")

	return cmd
}

func (a *app) fitCmd() *cobra.Command {

	var header bool

	cmd := &cobra.Command{
		Use:   "fit <histories.csv>",
		Short: "Fit the model and summarize the derived population quantities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {

			flags := cmd.Flags()
			if flags.Changed("augment") {
				a.cfg.Augment, _ = flags.GetInt("augment")
			}
			if flags.Changed("draws") {
				a.cfg.Draws, _ = flags.GetInt("draws")
			}
			if flags.Changed("sigma") {
				a.cfg.Sigma, _ = flags.GetFloat64("sigma")
			}
			if flags.Changed("workers") {
				a.cfg.Workers, _ = flags.GetInt("workers")
			}
			for _, s := range []struct {
				name string
				dst  *string
			}{{"db", &a.cfg.DB}, {"run", &a.cfg.Run}, {"metrics", &a.cfg.Metrics}} {
				if flags.Changed(s.name) {
					*s.dst, _ = flags.GetString(s.name)
				}
			}
			if err := a.cfg.validate(); err != nil {
				return err
			}

			return a.fit(cmd, args[0], header)
		},
	}

	cmd.Flags().BoolVar(&header, "header", true, "the CSV file has a header row")
	cmd.Flags().Int("augment", 0, "number of pseudo-individuals appended to the data")
	cmd.Flags().Int("draws", 0, "number of posterior draws")
	cmd.Flags().Float64("sigma", 0, "occasion effect standard deviation held fixed when fitting")
	cmd.Flags().Int("workers", 0, "number of goroutines")
	cmd.Flags().String("db", "", "SQLite database for storing the draws")
	cmd.Flags().String("run", "", "name of the stored run")
	cmd.Flags().String("metrics", "", "Prometheus textfile for fit metrics")

	return cmd
}

func (a *app) fit(cmd *cobra.Command, path string, header bool) error {

	cfg := a.cfg
	out := cmd.OutOrStdout()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	hist, err := encounter.ReadCSV(f, header)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ndet := hist.NumDetected()
	hist = hist.Augment(cfg.Augment)

	mc := jollyseber.DefaultModelConfig()
	mc.Log = a.logger(cmd)
	mc.SigmaFixed = cfg.Sigma
	mc.Workers = cfg.Workers

	model, err := jollyseber.NewModel(hist, mc)
	if err != nil {
		return err
	}

	fm := newFitMetrics()
	fm.rows.WithLabelValues("detected").Set(float64(ndet))
	fm.rows.WithLabelValues("augmented").Set(float64(hist.NumAugmented()))
	fm.occasions.Set(float64(hist.NumOccasions()))

	start := time.Now()
	rslt, err := model.Fit()
	if err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	fm.fitSeconds.Set(time.Since(start).Seconds())
	fm.logPosterior.Set(rslt.LogLike())

	fmt.Fprintln(out, rslt.Summary().String())

	draws, err := rslt.LaplaceDraws(cfg.Draws, rand.NewSource(cfg.Seed))
	if err != nil {
		return err
	}
	derived := model.ProcessDraws(draws, rand.NewSource(cfg.Seed+1))
	fm.draws.Add(float64(len(derived)))

	names := jollyseber.DerivedNames(hist.NumOccasions())
	cols := jollyseber.DerivedColumns(derived)
	rows := posterior.SummarizeColumns(names, cols)
	fmt.Fprintln(out, posterior.Table(rows, "Derived quantities, Laplace approximation").String())

	for j, na := range names {
		if na == "Nsuper" {
			fm.nsuperMean.Set(stat.Mean(cols[j], nil))
		}
	}

	if cfg.DB != "" {
		run := cfg.Run
		if run == "" {
			run = uuid.NewString()
		}

		vals := make([][]float64, len(derived))
		for k, d := range derived {
			vals[k] = d.Values()
		}

		if err := a.store(cmd.Context(), run, names, vals); err != nil {
			return err
		}
		fmt.Fprintf(out, "Stored %d draws as run %s in %s\n", len(vals), run, cfg.DB)
	}

	if cfg.Metrics != "" {
		if err := fm.write(cfg.Metrics); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return nil
}

func (a *app) store(ctx context.Context, run string, names []string, vals [][]float64) error {

	if ctx == nil {
		ctx = context.Background()
	}

	st, err := drawstore.Open(ctx, a.cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.Write(ctx, run, names, vals)
}

func (a *app) summaryCmd() *cobra.Command {

	var db, run string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize a stored run, or list the stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {

			if db == "" {
				db = a.cfg.DB
			}
			if db == "" {
				return fmt.Errorf("summary: no database given")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			st, err := drawstore.Open(ctx, db)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()

			if run == "" {
				runs, err := st.Runs(ctx)
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Fprintln(out, r)
				}
				return nil
			}

			names, draws, err := st.Read(ctx, run)
			if err != nil {
				return err
			}

			rows := posterior.SummarizeColumns(names, drawstore.Columns(draws))
			fmt.Fprintln(out, posterior.Table(rows, fmt.Sprintf("Run %s", run)).String())

			return nil
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "SQLite database holding the draws")
	cmd.Flags().StringVar(&run, "run", "", "run to summarize, list the runs if empty")

	return cmd
}
