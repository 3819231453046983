package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"MarketScreener/internal/cache"
	"MarketScreener/internal/calculator"
	"MarketScreener/internal/collector"
	"MarketScreener/internal/config"
	"MarketScreener/internal/logger"
	"MarketScreener/internal/model"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/scheduler"
	"MarketScreener/internal/strategy"
)

var configPath string

// app holds the components every subcommand shares.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	fetcher collector.Fetcher
	runner  *scheduler.Runner
	rec     recorder.Recorder
}

func (a *app) Close() {
	if err := a.rec.Close(); err != nil {
		a.log.Warn("close recorder", zap.Error(err))
	}
	_ = a.log.Sync()
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if v := os.Getenv("CONFIG_PATH"); v != "" && path == defaultConfigPath {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	ds := cfg.DataSource
	switch ds.Source {
	case config.SourceAlpaca:
		return collector.NewAlpacaFetcher(ds.AlpacaKey, ds.AlpacaSecret, ds.AlpacaDataURL, ds.RequestsPerSecond)
	case config.SourceParquet:
		return &collector.ParquetFetcher{Dir: ds.ParquetDir}
	case config.SourceMock:
		return &collector.MockFetcher{Price: 100}
	default:
		return collector.NewYahooFetcher(cfg.Proxy, ds.RequestsPerSecond)
	}
}

func newTickerProvider(cfg *config.Config) collector.TickerProvider {
	if cfg.Tickers.File != "" {
		return collector.FileTickers{Path: cfg.Tickers.File}
	}
	return collector.StaticTickers(cfg.Tickers.Symbols)
}

func screenDefaults(cfg *config.Config) strategy.Options {
	opts := strategy.Options{
		Policy:  model.Policy(cfg.Screen.Policy),
		Ranking: model.Ranking(cfg.Screen.Ranking),
		TopK:    cfg.Screen.TopK,
	}
	if cfg.Screen.MaxEligible != nil {
		opts.MaxEligible = *cfg.Screen.MaxEligible
	}
	return opts.Normalize()
}

// newApp wires config, logging, data source, cache and history.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	fetcher := newFetcher(cfg)
	minPeriods, _ := calculator.ParseMinPeriods(cfg.Indicators.MinPeriods)
	col := collector.NewCollector(fetcher, cache.New(cfg.Cache.TTL), minPeriods, log.Named("collector"))
	scanner := collector.NewScanner(col, cfg.Screen.Workers, cfg.Screen.UniverseLimit, log.Named("scanner"))
	log.Info("data source", zap.String("source", fetcher.Name()), zap.String("min_periods", string(minPeriods)))

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log.Named("recorder"))
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	runner := scheduler.NewRunner(newTickerProvider(cfg), scanner, rec, screenDefaults(cfg), log.Named("runner"))
	return &app{cfg: cfg, log: log, fetcher: fetcher, runner: runner, rec: rec}, nil
}

const defaultConfigPath = "configs/config.yaml"

func main() {
	rootCmd := &cobra.Command{
		Use:           "screener",
		Short:         "Technical-indicator stock screener",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to the configuration file (or CONFIG_PATH)")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newScreenCmd(),
		newTickersCmd(),
		newRunsCmd(),
		newExportCmd(),
		newWatchCmd(),
		newServeCmd(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
