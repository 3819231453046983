package collector

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"MarketScreener/internal/logger"
	"MarketScreener/internal/model"
	"MarketScreener/internal/strategy"
)

const DefaultUniverseLimit = 100

// Skip records a ticker dropped from a run and why.
type Skip struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// ScreenResult is the outcome of one screening run.
type ScreenResult struct {
	Policy     model.Policy      `json:"policy"`
	Ranking    model.Ranking     `json:"ranking"`
	Candidates []model.Candidate `json:"candidates"`
	Scanned    int               `json:"scanned"`
	Eligible   int               `json:"eligible"`
	Skipped    []Skip            `json:"skipped"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Scanner runs fetch+compute across a ticker universe and screens the results.
type Scanner struct {
	Collector *Collector
	// Workers bounds concurrent fetches. 1 reproduces a serial scan.
	Workers       int
	UniverseLimit int
	log           *zap.Logger
}

// NewScanner creates a Scanner.
func NewScanner(col *Collector, workers, universeLimit int, log *zap.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	if universeLimit <= 0 {
		universeLimit = DefaultUniverseLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{Collector: col, Workers: workers, UniverseLimit: universeLimit, log: log}
}

type scanSlot struct {
	series *model.IndicatorSeries
	err    error
	done   bool
}

// Screen scans tickers in order and returns the ranked candidates.
// Results are committed in input order, so the eligibility cap and the ranking are the
// same as a serial scan no matter how many workers run. Per-ticker failures are skipped.
func (s *Scanner) Screen(ctx context.Context, tickers []string, opts strategy.Options) (*ScreenResult, error) {
	opts = opts.Normalize()
	profile := strategy.ProfileFor(opts.Policy)

	universe := tickers
	if len(universe) > s.UniverseLimit {
		universe = universe[:s.UniverseLimit]
	}

	res := &ScreenResult{
		Policy:    opts.Policy,
		Ranking:   opts.Ranking,
		Skipped:   make([]Skip, 0),
		StartedAt: time.Now(),
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		slots    = make([]scanSlot, len(universe))
		next     int
		eligible = make([]model.Candidate, 0)
		stopped  bool
	)

	// commit advances the cursor over finished slots. Caller holds mu.
	commit := func() {
		for !stopped && next < len(slots) && slots[next].done {
			slot := slots[next]
			ticker := universe[next]
			next++
			res.Scanned++
			if slot.err != nil {
				s.log.Warn("ticker skipped", logger.Ticker(ticker), zap.Error(slot.err))
				res.Skipped = append(res.Skipped, Skip{Ticker: ticker, Reason: slot.err.Error()})
				continue
			}
			c, ok := strategy.Evaluate(slot.series, opts.Policy)
			if !ok {
				continue
			}
			eligible = append(eligible, c)
			if opts.MaxEligible > 0 && len(eligible) >= opts.MaxEligible {
				stopped = true
				cancel()
			}
		}
	}

	var g errgroup.Group
	g.SetLimit(s.Workers)
	for i, ticker := range universe {
		mu.Lock()
		halt := stopped
		mu.Unlock()
		if halt || scanCtx.Err() != nil {
			break
		}

		g.Go(func() error {
			var series *model.IndicatorSeries
			err := scanCtx.Err()
			if err == nil {
				series, err = s.Collector.Load(scanCtx, ticker, profile.Period, profile.MinBars)
			}
			mu.Lock()
			slots[i] = scanSlot{series: series, err: err, done: true}
			commit()
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Eligible = len(eligible)
	res.Candidates = strategy.Rank(eligible, opts.Ranking, opts.TopK)
	res.FinishedAt = time.Now()
	s.log.Info("screen finished",
		zap.String("policy", string(opts.Policy)),
		zap.Int("universe", len(universe)),
		zap.Int("scanned", res.Scanned),
		zap.Int("eligible", res.Eligible),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}
