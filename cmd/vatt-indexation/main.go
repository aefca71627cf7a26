package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/vatt-indexation/internal/config"
	"github.com/iwvelando/vatt-indexation/internal/fetch"
	"github.com/iwvelando/vatt-indexation/internal/metrics"
	"github.com/iwvelando/vatt-indexation/internal/source"
	"github.com/iwvelando/vatt-indexation/internal/source/bls"
	"github.com/iwvelando/vatt-indexation/internal/source/sii"
	"github.com/iwvelando/vatt-indexation/internal/store"
	"github.com/iwvelando/vatt-indexation/internal/store/sqlite"
	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"github.com/iwvelando/vatt-indexation/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagConfig       string
	flagLogLevel     string
	flagOutputFormat string
	flagNoCache      bool
)

// app is the state shared by every command once the configuration is loaded.
type app struct {
	conf         *config.Configuration
	logger       *zap.Logger
	outputFormat string
	runID        string
	metrics      *metrics.Recorder
}

var current app

var rootCmd = &cobra.Command{
	Use:   "vatt-indexation",
	Short: "Macroeconomic series and VATT indexation",
	Long: "Fetch the IPC, observed dollar and CPI monthly series, and index the " +
		"VATT of transmission line items for a settlement month.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		current.writeMetrics()
		if current.logger != nil {
			_ = current.logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", constants.DefaultConfigFile, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&flagOutputFormat, "output-format", "o", "", "type of output override: pretty, csv")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "skip the sqlite fetch cache")

	rootCmd.AddCommand(seriesCmd, computeCmd, configCmd)
}

// loadConfiguration reads the configuration file. A missing file is only an
// error when its path was given explicitly.
func loadConfiguration(path string, explicit bool) (*config.Configuration, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.LoadDefaults()
		}
	}
	return config.LoadConfiguration(path)
}

// resolveOutputFormat applies the CLI override over the configured format.
func resolveOutputFormat(configured, override string) (string, error) {
	outputFormat := configured
	if override != "" {
		outputFormat = override
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return "", err
	}
	return outputFormat, nil
}

func setup(cmd *cobra.Command, args []string) error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	conf, err := loadConfiguration(flagConfig, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", flagConfig, err)
	}

	logger, err := initializeLogger(conf.Logging, flagLogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := conf.Validate(); err != nil {
		logger.Error("invalid configuration",
			zap.String("op", "main.setup"),
			zap.Error(err),
		)
		return err
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.setup"),
		)
	}

	outputFormat, err := resolveOutputFormat(conf.Output.Format, flagOutputFormat)
	if err != nil {
		logger.Error(err.Error(),
			zap.String("op", "main.setup"),
		)
		return err
	}

	runID := uuid.NewString()
	current = app{
		conf:         conf,
		logger:       logger.With(zap.String("run_id", runID)),
		outputFormat: outputFormat,
		runID:        runID,
		metrics:      metrics.New(),
	}
	return nil
}

// openStore returns the sqlite fetch cache when it is enabled, falling back
// to no cache when it cannot be opened.
func (a app) openStore() store.Store {
	if !a.conf.Cache.Enabled || flagNoCache {
		return &store.NopStore{}
	}
	st, err := sqlite.Open(a.conf.Cache.Path)
	if err != nil {
		a.logger.Warn("fetch cache unavailable, fetching every task",
			zap.String("op", "main.openStore"),
			zap.String("path", a.conf.Cache.Path),
			zap.Error(err),
		)
		return &store.NopStore{}
	}
	return st
}

// newRunner wires the three indicator sources behind one rate-limited client.
func (a app) newRunner(st store.Store) *fetch.Runner {
	client := source.NewClient(a.conf.Sources.ToClientConfig())
	opts := a.conf.Fetch.ToFetchOptions(a.runID)
	opts.Metrics = a.metrics
	return fetch.NewRunner(a.logger, st, opts,
		sii.NewIPCSource(client, a.conf.Sources.SIIBaseURL),
		sii.NewDollarSource(client, a.conf.Sources.SIIBaseURL),
		bls.NewCPISource(client, a.conf.Sources.ToBLSConfig()),
	)
}

// taskLog reads back the run's fetch task log from the store and logs a
// summary of it. The nop store keeps no log.
func (a app) taskLog(ctx context.Context, st store.Store) []store.TaskRecord {
	records, err := st.ListTasks(ctx, a.runID)
	if err != nil {
		a.logger.Warn("failed to read fetch task log",
			zap.String("op", "main.taskLog"),
			zap.Error(err),
		)
		return nil
	}
	if len(records) == 0 {
		return nil
	}
	counts := store.CountByStatus(records)
	a.logger.Info("fetch task log",
		zap.String("op", "main.taskLog"),
		zap.Int("fetched", counts[store.StatusFetched]),
		zap.Int("cached", counts[store.StatusCached]),
		zap.Int("failed", counts[store.StatusFailed]),
	)
	return records
}

// writeMetrics writes the run's metrics when a textfile is configured. A
// failed write only warns; the run's outputs are already saved.
func (a app) writeMetrics() {
	if a.conf == nil || a.conf.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.conf.Metrics.Textfile, time.Now()); err != nil {
		a.logger.Warn("failed to write metrics",
			zap.String("op", "main.writeMetrics"),
			zap.Error(err),
		)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
