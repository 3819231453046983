package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"MarketScreener/internal/api"
	"MarketScreener/internal/collector"
	"MarketScreener/internal/config"
	"MarketScreener/internal/logger"
	"MarketScreener/internal/model"
	"MarketScreener/internal/notifier"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/render"
	"MarketScreener/internal/scheduler"
	"MarketScreener/internal/strategy"
	"MarketScreener/internal/watchlist"
)

func newAnalyzeCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "analyze TICKER",
		Short: "Show the latest indicators and a buy/sell recommendation for one ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tickers := collector.NormalizeTickers(args)
			if len(tickers) == 0 {
				return errors.New("ticker is required")
			}
			res, err := a.runner.Analyze(cmd.Context(), tickers[0])
			switch {
			case err == nil:
				render.Analysis(cmd.OutOrStdout(), res, rows)
				return nil
			case collector.IsDataUnavailable(err), errors.Is(err, strategy.ErrNoRecommendation):
				render.Warning(cmd.OutOrStdout(), fmt.Sprintf("No usable data for %s: %v", tickers[0], err))
				return nil
			default:
				return err
			}
		},
	}
	cmd.Flags().IntVar(&rows, "rows", api.AnalysisRows, "Number of trailing sessions to show")
	return cmd
}

func newScreenCmd() *cobra.Command {
	var (
		policy, ranking string
		top, maxElig    int
	)
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Scan the ticker universe and print the top-ranked candidates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			opts := a.runner.Defaults
			if policy != "" {
				if opts.Policy, err = model.ParsePolicy(policy); err != nil {
					return err
				}
			}
			if ranking != "" {
				if opts.Ranking, err = model.ParseRanking(ranking); err != nil {
					return err
				}
			}
			if top > 0 {
				opts.TopK = top
			}
			if cmd.Flags().Changed("max-eligible") {
				opts.MaxEligible = maxElig
			}

			res, id, err := a.runner.Screen(cmd.Context(), opts, recorder.TriggerCLI)
			if err != nil {
				return err
			}
			render.Candidates(cmd.OutOrStdout(), res, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "Screening policy: above-ma or pre-breakout")
	cmd.Flags().StringVar(&ranking, "ranking", "", "Ranking: score or distance")
	cmd.Flags().IntVar(&top, "top", 0, "Number of candidates to show")
	cmd.Flags().IntVar(&maxElig, "max-eligible", strategy.DefaultMaxEligible, "Stop scanning after this many eligible tickers (0 = no cap)")
	return cmd
}

func newTickersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tickers",
		Short: "List the screening universe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tickers, err := a.runner.Tickers(cmd.Context())
			if err != nil {
				return err
			}
			render.Tickers(cmd.OutOrStdout(), tickers)
			return nil
		},
	}
}

func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded screening runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.runner.RecentRuns(limit)
			if err != nil {
				return err
			}
			render.Runs(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to list")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		period string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "export [TICKER...]",
		Short: "Download daily bars into Parquet snapshots for offline screening",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.DataSource.Source == config.SourceParquet {
				return errors.New("export needs an online data source, not parquet")
			}
			p, err := model.ParsePeriod(period)
			if err != nil {
				return err
			}
			tickers := collector.NormalizeTickers(args)
			if len(tickers) == 0 {
				if tickers, err = a.runner.Tickers(cmd.Context()); err != nil {
					return err
				}
				if limit := a.runner.Scanner.UniverseLimit; len(tickers) > limit {
					tickers = tickers[:limit]
				}
			}
			if dir == "" {
				dir = a.cfg.DataSource.ParquetDir
			}
			return exportBars(cmd, a, tickers, p, dir)
		},
	}
	cmd.Flags().StringVar(&period, "period", string(model.PeriodOneYear), "Lookback: 6mo or 1y")
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (defaults to data_source.parquet_dir)")
	return cmd
}

func exportBars(cmd *cobra.Command, a *app, tickers []string, p model.Period, dir string) error {
	writer := &collector.ParquetWriter{Dir: dir}
	var written, bars, failed atomic.Int64

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(a.cfg.Screen.Workers)
	for _, t := range tickers {
		g.Go(func() error {
			b, err := a.fetcher.FetchBars(ctx, t, p)
			if err == nil {
				_, err = writer.WriteBars(t, b)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed.Add(1)
				a.log.Warn("export skipped", logger.Ticker(t), zap.Error(err))
				return nil
			}
			written.Add(1)
			bars.Add(int64(len(b)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s bars for %s tickers to %s (%s failed)\n",
		humanize.Comma(bars.Load()), humanize.Comma(written.Load()), dir, humanize.Comma(failed.Load()))
	return nil
}

func newWatchCmd() *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run scheduled screens and answer Telegram commands until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var (
				sender notifier.Sender
				tn     *notifier.TelegramNotifier
			)
			if a.cfg.TelegramEnabled() {
				tn, err = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.log.Named("telegram"))
				if err != nil {
					return err
				}
				sender = notifier.RetrySender{Sender: tn, MaxRetries: 3, Log: a.log.Named("telegram")}
			} else {
				a.log.Warn("telegram not configured, reports go to the log only")
			}

			sched := scheduler.NewScheduler(ctx, a.runner, sender, a.log.Named("scheduler"))
			if sched.Watch, err = watchlist.NewManager(a.cfg.Schedule.StateFile, a.log.Named("watchlist")); err != nil {
				return fmt.Errorf("load watch state: %w", err)
			}
			if err := sched.Register(a.cfg.Schedule.ScreenCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				a.log.Info("telegram polling started")
			}
			if runNow || os.Getenv("RUN_ON_START") == "true" {
				a.log.Info("running screen on start")
				go sched.RunNow()
			}

			a.log.Info("screener is running, press Ctrl+C to stop", zap.String("cron", a.cfg.Schedule.ScreenCron))
			<-ctx.Done()
			a.log.Info("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run one screen immediately (also RUN_ON_START=true)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.API.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := api.NewServer(a.runner, a.runner.Defaults, a.log.Named("api"))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to api.addr)")
	return cmd
}
