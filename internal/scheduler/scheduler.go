package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/logger"
	"MarketScreener/internal/model"
	"MarketScreener/internal/notifier"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/strategy"
	"MarketScreener/internal/watchlist"
)

// Scheduler runs periodic screens and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *Runner
	Notifier notifier.Sender
	// Watch, when set, tracks candidate changes between scheduled runs.
	Watch *watchlist.Manager
	Ctx   context.Context
	log   *zap.Logger
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler creates a new Scheduler. A nil sender drops reports after logging them.
func NewScheduler(ctx context.Context, runner *Runner, sender notifier.Sender, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	cl := cronLogger{s: log.Sugar()}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Runner:   runner,
		Notifier: sender,
		Ctx:      ctx,
		log:      log,
	}
}

// Register adds the periodic screen task.
func (s *Scheduler) Register(screenCron string) error {
	if _, err := s.Cron.AddFunc(screenCron, s.screenTask); err != nil {
		return fmt.Errorf("register screen task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the screen task immediately (manual trigger / run on start).
func (s *Scheduler) RunNow() {
	s.screenTask()
}

func (s *Scheduler) screenTask() {
	s.log.Info("running scheduled screen")
	res, id, err := s.Runner.Screen(s.Ctx, s.Runner.Defaults, recorder.TriggerCron)
	if err != nil {
		s.log.Error("screen failed", zap.Error(err))
		s.trySend("❌ Screen failed: " + html.EscapeString(err.Error()))
		return
	}
	report := notifier.FormatScreenReport(res, id)
	if s.Watch != nil {
		tickers := make([]string, len(res.Candidates))
		for i, c := range res.Candidates {
			tickers[i] = c.Ticker
		}
		prev, _ := s.Watch.Last(res.Policy)
		report += notifier.FormatChange(s.Watch.Observe(res.Policy, id, tickers), prev.RunID)
	}
	s.trySend(report)
}

func (s *Scheduler) screen(ctx context.Context, opts strategy.Options, trigger recorder.Trigger) string {
	res, id, err := s.Runner.Screen(ctx, opts, trigger)
	if err != nil {
		s.log.Error("screen failed", zap.Error(err))
		return "❌ Screen failed: " + html.EscapeString(err.Error())
	}
	return notifier.FormatScreenReport(res, id)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// "/screen@my_bot" is how group chats address a bot.
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch cmd {
	case "/screen":
		opts := s.Runner.Defaults
		if len(args) > 0 {
			p, err := model.ParsePolicy(strings.ToLower(args[0]))
			if err != nil {
				return "❌ " + html.EscapeString(err.Error())
			}
			opts.Policy = p
		}
		return s.screen(ctx, opts, recorder.TriggerTelegram)
	case "/analyze":
		if len(args) == 0 {
			return "Usage: /analyze TICKER"
		}
		ticker := collector.NormalizeTickers(args[:1])
		if len(ticker) == 0 {
			return "Usage: /analyze TICKER"
		}
		a, err := s.Runner.Analyze(ctx, ticker[0])
		switch {
		case err == nil:
			return notifier.FormatAnalysis(a)
		case collector.IsDataUnavailable(err) || errors.Is(err, strategy.ErrNoRecommendation):
			return notifier.FormatNoData(ticker[0], err)
		default:
			s.log.Error("analyze failed", logger.Ticker(ticker[0]), zap.Error(err))
			return fmt.Sprintf("❌ Analyze %s failed: %s", html.EscapeString(ticker[0]), html.EscapeString(err.Error()))
		}
	case "/refresh":
		s.Runner.Refresh()
		return "♻️ Cached market data cleared."
	case "/runs":
		runs, err := s.Runner.RecentRuns(5)
		if err != nil {
			return "❌ " + html.EscapeString(err.Error())
		}
		return notifier.FormatRuns(runs)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		s.log.Info("report (no notifier configured)", zap.String("text", text))
		return
	}
	if err := s.Notifier.Send(s.Ctx, text); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
