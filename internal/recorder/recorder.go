package recorder

import (
	"time"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
)

// Trigger names what started a screening run.
type Trigger string

const (
	TriggerCron     Trigger = "cron"
	TriggerTelegram Trigger = "telegram"
	TriggerCLI      Trigger = "cli"
	TriggerAPI      Trigger = "api"
)

// ScreenRun is one persisted screening run.
type ScreenRun struct {
	ID      string
	Trigger Trigger
	Result  *collector.ScreenResult
}

// AnalysisEvent records a single-ticker analysis and its recommendation.
type AnalysisEvent struct {
	Ticker         string
	Recommendation model.Recommendation
	RSI            float64
	At             time.Time
}

// RunSummary is a stored run without its candidate rows.
type RunSummary struct {
	ID         string    `json:"id"`
	Trigger    Trigger   `json:"trigger"`
	Policy     string    `json:"policy"`
	Ranking    string    `json:"ranking"`
	Scanned    int       `json:"scanned"`
	Eligible   int       `json:"eligible"`
	Skipped    int       `json:"skipped"`
	Top        string    `json:"top"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Recorder persists screening history for later review.
type Recorder interface {
	// RecordScreen stores the run and returns its ID, assigning one if empty.
	RecordScreen(run *ScreenRun) (string, error)
	RecordAnalysis(evt *AnalysisEvent) error
	// RecentRuns lists the newest runs first.
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
