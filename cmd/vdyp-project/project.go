package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vdypcore/internal/blob"
	"vdypcore/internal/config"
	"vdypcore/internal/growth"
	"vdypcore/internal/logging"
	"vdypcore/internal/observability"
	"vdypcore/internal/projection"
	"vdypcore/internal/runstore"
	"vdypcore/pkg/domain"
)

type projectOptions struct {
	start       int
	end         int
	forward     bool
	back        bool
	override    string
	parallel    int
	cleanup     string
	metricsFile string
	traceFile   string
}

func projectCmd(configPath *string) *cobra.Command {
	opts := projectOptions{forward: true}
	cmd := &cobra.Command{
		Use:   "project <polygons.yaml>",
		Short: "Project the polygons of a description file",
		Long: `Project every polygon of a YAML description file over a year range.

Each polygon runs in its own execution folder under work_root. The yield of
every layer is printed year by year, followed by the messages of the run.

Examples:
  # Forward only
  vdyp-project project polygons.yaml --start 2000 --end 2050

  # Forward and Back, four polygons at a time
  vdyp-project project polygons.yaml --start 1990 --end 2050 --back --parallel 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			polygons, err := loadPolygons(args[0])
			if err != nil {
				return err
			}
			return runProjection(cmd.Context(), cfg, opts, polygons, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.start, "start", 0, "first year of the yield table")
	f.IntVar(&opts.end, "end", 0, "last year of the yield table")
	f.BoolVar(&opts.forward, "forward", true, "run the Forward stage")
	f.BoolVar(&opts.back, "back", false, "run the Back stage")
	f.StringVar(&opts.override, "override", "", "legacy compatibility variable file used instead of computed variables")
	f.IntVar(&opts.parallel, "parallel", 0, "polygons projected at once (default from config)")
	f.StringVar(&opts.cleanup, "cleanup", "", "execution folder cleanup: immediate, delayed or none (default from config)")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write stage metrics to this file after the run")
	f.StringVar(&opts.traceFile, "trace-file", "", "write JSON trace spans to this file")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func runProjection(ctx context.Context, cfg config.Config, opts projectOptions, polygons []*domain.Polygon, stdout, stderr io.Writer) (err error) {
	if opts.parallel > 0 {
		cfg.Parallel = opts.parallel
	}
	if opts.cleanup != "" {
		if cfg.Cleanup.Strategy, err = projection.ParseCleanupStrategy(opts.cleanup); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	metrics, flush, err := newMetrics(cfg.Metrics, opts.metricsFile)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := flush(); ferr != nil {
			err = errors.Join(err, ferr)
		}
	}()

	var tracer observability.Tracer = observability.NoopTracer{}
	if opts.traceFile != "" {
		// #nosec G304 -- trace destination is named by the operator
		tf, err := os.Create(opts.traceFile)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer func() { _ = tf.Close() }()
		tracer = observability.NewJSONTracer(tf)
	}

	archive, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	runs, err := runstore.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if runs != nil {
		defer func() {
			if cerr := runs.Close(); cerr != nil {
				logger.Warn("close run store", "error", cerr)
			}
		}()
	}

	var cleaner *projection.Cleaner
	if cfg.Cleanup.Strategy == projection.CleanupDelayed {
		cleaner = projection.NewCleaner(projection.WithCleanerLogger(logger))
		cleaner.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = cleaner.Stop(stopCtx)
		}()
	}

	params := projection.Params{
		StartYear:             opts.start,
		EndYear:               opts.end,
		Forward:               opts.forward,
		Back:                  opts.back,
		WorkRoot:              cfg.WorkRoot,
		Cleanup:               cfg.Cleanup.Strategy,
		RetentionDelay:        cfg.Cleanup.Delay,
		CompatibilityOverride: opts.override,
	}
	options := []projection.Option{
		projection.WithLogger(logger),
		projection.WithMetricsRecorder(metrics),
		projection.WithTracer(tracer),
	}
	if archive != nil {
		options = append(options, projection.WithArchive(archive))
	}
	if runs != nil {
		options = append(options, projection.WithRunStore(runs))
	}
	if cleaner != nil {
		options = append(options, projection.WithCleaner(cleaner))
	}

	runner := projection.NewExecRunner(growth.NewEngine())
	results := make([]*projection.Result, len(polygons))
	errs := make([]error, len(polygons))
	// one failing polygon must not cancel the others
	var g errgroup.Group
	g.SetLimit(cfg.Parallel)
	for i, p := range polygons {
		g.Go(func() error {
			res, err := projectPolygon(ctx, p, params, runner, options, logger)
			if err != nil {
				errs[i] = fmt.Errorf("polygon %s: %w", p.ID, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	for _, res := range results {
		if res != nil {
			printResult(stdout, res)
		}
	}
	return errors.Join(errs...)
}

func projectPolygon(ctx context.Context, p *domain.Polygon, params projection.Params, runner projection.ComponentRunner, options []projection.Option, logger *slog.Logger) (*projection.Result, error) {
	pc, err := projection.NewContext(p, params, runner, options...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := pc.Close(); cerr != nil {
			logger.Warn("close projection", "polygon", p.ID, "error", cerr)
		}
	}()
	res, err := pc.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// newMetrics returns the recorder for backend and a flush that writes its
// state to file when one is named.
func newMetrics(backend, file string) (observability.MetricsRecorder, func() error, error) {
	switch backend {
	case config.MetricsExpvar:
		rec := observability.NewExpvarMetricsRecorder("")
		return rec, func() error {
			if file == "" {
				return nil
			}
			data, err := json.MarshalIndent(rec.Snapshot(), "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(file, append(data, '\n'), 0o600)
		}, nil
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		rec, err := observability.NewPrometheusRecorder(reg)
		if err != nil {
			return nil, nil, err
		}
		return rec, func() error {
			if file == "" {
				return nil
			}
			return prometheus.WriteToTextfile(file, reg)
		}, nil
	default:
		return observability.NoopMetrics{}, func() error { return nil }, nil
	}
}

func printResult(w io.Writer, res *projection.Result) {
	rec := res.Record
	status := "projected"
	if !rec.Projected {
		status = "not projected"
	}
	fmt.Fprintf(w, "polygon %s (feature %d) run %s: %s\n", rec.PolygonID, rec.FeatureID, res.RunID, status)
	for _, table := range res.Tables {
		fmt.Fprintf(w, "  %s\n", table.Type)
		if len(table.Rows) > 0 {
			fmt.Fprintf(w, "    %4s  %-8s %6s %7s %8s %9s %8s\n", "year", "stage", "age", "height", "ba", "tph", "volume")
		}
		for _, row := range table.Rows {
			fmt.Fprintf(w, "    %4d  %-8s %6.1f %7.2f %8.3f %9.1f %8.2f\n",
				row.Year, row.Stage, row.Age, row.DominantHeight, row.BasalArea, row.TreesPerHectare, row.Volumes.WholeStem)
		}
		for _, msg := range table.Messages {
			fmt.Fprintf(w, "    message: %s\n", msg)
		}
	}
}
