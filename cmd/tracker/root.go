package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"crudetrack/internal/config"
	"crudetrack/internal/dataprocessing"
	apperrors "crudetrack/internal/errors"
	"crudetrack/internal/infrastructure"
	"crudetrack/internal/operations"
	"crudetrack/internal/store"
	"crudetrack/internal/store/sqlite"
	"crudetrack/internal/vortexa"
)

// options holds the command line flags
type options struct {
	configFile  string
	envFile     string
	keyFile     string
	output      string
	from        string
	to          string
	database    string
	replay      string
	csv         string
	summary     string
	metricsFile string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Write the crude grade tracking workbook from Vortexa cargo movements",
		Long: `tracker fetches cargo movements for the configured window, keeps crude
movements of the tracked grades, and writes one sheet per grade to an xlsx
workbook. With --replay it rebuilds the workbook from a stored snapshot
instead of querying the API.`,
		Version:       config.AppVersion,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTracker(cmd.Context(), cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file (default tracker.yaml or configs/tracker.yaml)")
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file loaded before reading TRACKER_* variables (default .env)")
	flags.StringVar(&opts.keyFile, "key-file", "", "file holding the Vortexa API key")
	flags.StringVar(&opts.output, "out", "", "output workbook path")
	flags.StringVar(&opts.from, "from", "", "window start, YYYY-MM-DD (inclusive)")
	flags.StringVar(&opts.to, "to", "", "window end, YYYY-MM-DD (exclusive)")
	flags.StringVar(&opts.database, "db", "", "sqlite snapshot database; empty disables snapshots")
	flags.StringVar(&opts.replay, "replay", "", `render from a stored snapshot: "latest" or a snapshot ID`)
	flags.Lookup("replay").NoOptDefVal = operations.LatestSnapshot
	flags.StringVar(&opts.csv, "csv", "", "also export the report movements to this CSV file")
	flags.StringVar(&opts.summary, "summary", "", "also write per-grade totals to this JSON file")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write run metrics to this Prometheus textfile")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

// loadConfig loads the configuration and applies the flags the user set
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: opts.configFile, EnvFile: opts.envFile})
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag   string
		target *string
		value  string
	}{
		{"key-file", &cfg.Vortexa.KeyFile, opts.keyFile},
		{"out", &cfg.Report.OutputPath, opts.output},
		{"from", &cfg.Vortexa.From, opts.from},
		{"to", &cfg.Vortexa.To, opts.to},
		{"db", &cfg.Store.Path, opts.database},
		{"csv", &cfg.Report.CSVPath, opts.csv},
		{"summary", &cfg.Report.SummaryPath, opts.summary},
		{"metrics-file", &cfg.Telemetry.MetricsTextfile, opts.metricsFile},
		{"log-level", &cfg.Logging.Level, opts.logLevel},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.target = o.value
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func runTracker(ctx context.Context, cmd *cobra.Command, opts *options) error {
	started := time.Now()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load configuration", slog.String("error", err.Error()))
		return err
	}

	logger, closeLog, err := infrastructure.NewLogger(cfg.Logging, cmd.OutOrStdout())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to initialize logger", slog.String("error", err.Error()))
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)

	if err := run(ctx, cfg, opts.replay, cmd.ErrOrStderr(), logger, started); err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Tracker run failed",
			slog.String("run_id", runID),
			slog.String("error_type", string(apperrors.GetErrorType(err))))
		return err
	}
	return nil
}

// run wires the pipeline from cfg and executes it
func run(ctx context.Context, cfg *config.Config, replay string, traceOut io.Writer, logger *slog.Logger, started time.Time) error {
	paths, err := cfg.ResolvePaths("")
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	otelCfg := infrastructure.NewOTelConfig(cfg.Telemetry)
	otelCfg.TraceWriter = traceOut
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.WarnContext(ctx, "Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		return err
	}

	snapshots, err := openStore(paths.Database)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	from, to, err := cfg.Window()
	if err != nil {
		return apperrors.NewValidationError("config", err.Error())
	}

	first, err := sourceStep(cfg, paths, replay, snapshots, from, to, logger)
	if err != nil {
		return err
	}

	var snapshotStore store.Store
	if paths.Database != "" {
		snapshotStore = snapshots
	}

	metrics := tracer.Metrics()
	pipeline := operations.NewPipeline(tracer, logger,
		first,
		operations.NewSnapshotStage(snapshotStore, from, to, logger),
		operations.NewTransformStage(dataprocessing.NewTransformer(cfg.Report.Category, cfg.Report.Grades, logger), metrics),
		operations.NewReportStage(paths.Output, operations.ExcelWriterFactory, metrics, logger),
		operations.NewExportCSVStage(paths.CSV, logger),
		operations.NewSummaryStage(paths.Summary, logger),
	)

	state := operations.NewOperationState(infrastructure.GetTraceID(ctx))
	runErr := pipeline.Run(ctx, state)

	if paths.MetricsFile != "" {
		if system, err := infrastructure.NewSystemMetrics(providers.Meter); err == nil {
			system.Collect(ctx, started)
		}
		if err := providers.WriteMetricsTextfile(paths.MetricsFile); err != nil {
			logger.WarnContext(ctx, "Failed to write metrics textfile", slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		return runErr
	}

	result, _ := state.Result()
	logger.InfoContext(ctx, "Tracking report written",
		slog.String("path", paths.Output),
		slog.Int("movements", len(result.Movements)),
		slog.String("snapshot_id", state.SnapshotID()),
		slog.Duration("duration", state.Duration()))
	return nil
}

// sourceStep returns the replay step when replaying and the API fetch step
// otherwise. Only the fetch step needs the API key.
func sourceStep(cfg *config.Config, paths *config.Paths, replay string, snapshots store.Store, from, to time.Time, logger *slog.Logger) (operations.Step, error) {
	if replay != "" {
		if paths.Database == "" {
			return nil, apperrors.NewValidationError(operations.StageIDReplay, "--replay needs a snapshot database (--db)")
		}
		return operations.NewReplayStage(snapshots, replay, logger), nil
	}

	apiKey, err := config.LoadAPIKey(paths.KeyFile)
	if err != nil {
		return nil, err
	}

	client, err := vortexa.NewClient(vortexa.Config{
		BaseURL:         cfg.Vortexa.BaseURL,
		APIKey:          apiKey,
		PageSize:        cfg.Vortexa.PageSize,
		Timeout:         cfg.Vortexa.Timeout,
		RateLimitPerSec: cfg.Vortexa.RateLimitPerSec,
		RateLimitBurst:  cfg.Vortexa.RateLimitBurst,
		MaxRetries:      cfg.Vortexa.MaxRetries,
		RetryBackoff:    cfg.Vortexa.RetryBackoff,
		UserAgent:       config.AppName + "/" + config.AppVersion,
	}, logger)
	if err != nil {
		return nil, err
	}

	query := vortexa.Query{
		TimeMin:  from,
		TimeMax:  to,
		Activity: cfg.Vortexa.Activity,
		Unit:     cfg.Vortexa.Unit,
		Columns:  vortexa.DefaultColumns,
	}
	return operations.NewFetchStage(client, query, logger), nil
}

// openStore opens the sqlite snapshot database, or a NopStore when no path
// is configured
func openStore(path string) (store.Store, error) {
	if path == "" {
		return &store.NopStore{}, nil
	}
	s, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database %s: %w", path, err)
	}
	return s, nil
}
