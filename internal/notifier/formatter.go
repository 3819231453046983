package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/watchlist"
)

func num(v float64, format string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

func pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func flag(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

var policyTitles = map[model.Policy]string{
	model.PolicyAboveMA:     "Above MA50 &amp; MA200",
	model.PolicyPreBreakout: "Pre-breakout",
}

// FormatScreenReport formats a screening run into a Telegram message.
func FormatScreenReport(res *collector.ScreenResult, runID string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Screen: %s</b> | %s\n", policyTitles[res.Policy], res.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Scanned %d, eligible %d, skipped %d (ranked by %s)\n\n",
		res.Scanned, res.Eligible, len(res.Skipped), res.Ranking))

	if len(res.Candidates) == 0 {
		b.WriteString("No stocks currently match the criteria.\n")
	}
	for i, c := range res.Candidates {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %s", i+1, html.EscapeString(c.Ticker), humanize.FormatFloat("#,###.##", c.Price)))
		switch res.Policy {
		case model.PolicyPreBreakout:
			b.WriteString(fmt.Sprintf(" | off high %s | vol x%s | RSI %s | score %s\n",
				pct(c.DistanceFromHigh), num(c.VolumeRatio, "%.2f"), num(c.RSI, "%.1f"), num(c.Score, "%.1f")))
		default:
			b.WriteString(fmt.Sprintf(" | MA50 %s | MA200 %s | score %s\n",
				num(c.MA50, "%.2f"), num(c.MA200, "%.2f"), num(c.Score, "%.1f")))
		}
	}

	if runID != "" {
		b.WriteString(fmt.Sprintf("\n<code>run %s</code>", runID))
	}
	return b.String()
}

// FormatAnalysis formats a single-ticker analysis.
func FormatAnalysis(a *collector.Analysis) string {
	f := a.Series.Latest
	rec := a.Recommendation
	last := a.Series.Bars[a.Series.Len()-1]

	icon, relation := "🔴", "at or below"
	if rec.Favorable {
		icon, relation = "🟢", "above"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>%s</b> | %s\n\n", html.EscapeString(a.Series.Ticker), last.Time.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Close: %s\n", humanize.FormatFloat("#,###.##", f.Close)))
	b.WriteString(fmt.Sprintf("MA50: %s | MA200: %s\n", num(f.MA50, "%.2f"), num(f.MA200, "%.2f")))
	b.WriteString(fmt.Sprintf("RSI14: %s\n", num(f.RSI, "%.1f")))
	b.WriteString(fmt.Sprintf("3M high: %s (%s below)\n", num(f.High63, "%.2f"), pct(f.DistanceFromHigh)))
	b.WriteString(fmt.Sprintf("Volume: %s (x%s of 20d mean)\n", humanize.Comma(int64(f.Volume)), num(f.VolumeRatio, "%.2f")))
	b.WriteString(fmt.Sprintf("Volume spike: %s | OBV rising: %s\n\n", flag(f.VolumeSpike), flag(f.OBVTrend)))
	b.WriteString(fmt.Sprintf("%s <b>Recommendation: %s</b> (close %s MA50)\n", icon, rec.Label(), relation))
	return b.String()
}

// FormatChange describes how the candidate list moved since the previous scheduled run.
// prevRunID names that run when known.
func FormatChange(c watchlist.Change, prevRunID string) string {
	since := "the last run"
	if prevRunID != "" {
		since = fmt.Sprintf("run <code>%s</code>", html.EscapeString(prevRunID))
	}
	switch {
	case c.First:
		return ""
	case c.Empty():
		return fmt.Sprintf("\nNo changes since %s.", since)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\nChanges since %s:", since))
	if len(c.Added) > 0 {
		b.WriteString(fmt.Sprintf("\n🆕 New: %s", html.EscapeString(strings.Join(c.Added, ", "))))
	}
	if len(c.Removed) > 0 {
		b.WriteString(fmt.Sprintf("\n📤 Dropped: %s", html.EscapeString(strings.Join(c.Removed, ", "))))
	}
	return b.String()
}

// FormatNoData is the soft warning for a ticker with nothing to show.
func FormatNoData(ticker string, err error) string {
	return fmt.Sprintf("⚠️ No usable data for <b>%s</b>: %s", html.EscapeString(strings.ToUpper(ticker)), html.EscapeString(err.Error()))
}

// FormatRuns lists recent recorded runs.
func FormatRuns(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No screening runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		top := r.Top
		if top == "" {
			top = "none"
		}
		b.WriteString(fmt.Sprintf("%s %s [%s] %d/%d eligible: %s\n",
			humanize.Time(r.StartedAt), r.Policy, r.Trigger, r.Eligible, r.Scanned, html.EscapeString(top)))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return strings.Join([]string{
		"<b>Commands</b>",
		"/screen [above-ma|pre-breakout] - run a screen now",
		"/analyze TICKER - indicators and recommendation",
		"/refresh - discard cached market data",
		"/runs - recent screening runs",
		"/help - this message",
	}, "\n")
}
