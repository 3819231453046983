// Package render draws screener output as terminal tables.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
	"MarketScreener/internal/recorder"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	buyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	sellStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func num(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return humanize.CommafWithDigits(v, prec)
}

func pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// Analysis prints the last rows of the series and the recommendation.
func Analysis(w io.Writer, a *collector.Analysis, rows int) {
	tail := a.Series.Tail(rows)
	t := newTable("Date", "Close", "Volume", "MA20", "MA50", "MA200", "RSI14", "OBV", "High63")
	for i, b := range tail.Bars {
		t.Row(
			b.Time.Format("2006-01-02"),
			num(b.Close, 2),
			humanize.Comma(int64(b.Volume)),
			num(tail.MA20[i], 2),
			num(tail.MA50[i], 2),
			num(tail.MA200[i], 2),
			num(tail.RSI14[i], 1),
			num(tail.OBV[i], 0),
			num(tail.High63[i], 2),
		)
	}

	f := a.Series.Latest
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (last %d sessions)", a.Series.Ticker, tail.Len())))
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "3M high distance: %s | volume x%s of 20d mean | spike: %s | OBV rising: %s\n",
		pct(f.DistanceFromHigh), num(f.VolumeRatio, 2), yesNo(f.VolumeSpike), yesNo(f.OBVTrend))

	label := sellStyle.Render(a.Recommendation.Label())
	if a.Recommendation.Favorable {
		label = buyStyle.Render(a.Recommendation.Label())
	}
	fmt.Fprintf(w, "Recommendation: %s (close %s vs MA50 %s)\n", label, num(a.Recommendation.Close, 2), num(a.Recommendation.MA50, 2))
}

// Candidates prints a screening result.
func Candidates(w io.Writer, res *collector.ScreenResult, runID string) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Screen %s ranked by %s", res.Policy, res.Ranking)))
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("scanned %d, eligible %d, skipped %d in %s",
		res.Scanned, res.Eligible, len(res.Skipped), res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))))

	if len(res.Candidates) == 0 {
		Warning(w, "No stocks currently match the criteria.")
		return
	}

	var t *table.Table
	switch res.Policy {
	case model.PolicyPreBreakout:
		t = newTable("#", "Ticker", "Price", "Off 3M high", "Vol ratio", "RSI", "Spike", "OBV up", "Score")
		for i, c := range res.Candidates {
			t.Row(fmt.Sprint(i+1), c.Ticker, num(c.Price, 2), pct(c.DistanceFromHigh), num(c.VolumeRatio, 2),
				num(c.RSI, 1), yesNo(c.VolumeSpike), yesNo(c.OBVTrend), num(c.Score, 1))
		}
	default:
		t = newTable("#", "Ticker", "Price", "MA50", "MA200", "Score")
		for i, c := range res.Candidates {
			t.Row(fmt.Sprint(i+1), c.Ticker, num(c.Price, 2), num(c.MA50, 2), num(c.MA200, 2), num(c.Score, 2))
		}
	}
	fmt.Fprintln(w, t.String())
	if runID != "" {
		fmt.Fprintln(w, dimStyle.Render("run "+runID))
	}
}

// Tickers prints the universe, several symbols per line.
func Tickers(w io.Writer, tickers []string) {
	const perLine = 10
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s tickers", humanize.Comma(int64(len(tickers))))))
	for i := 0; i < len(tickers); i += perLine {
		end := min(i+perLine, len(tickers))
		fmt.Fprintln(w, strings.Join(tickers[i:end], " "))
	}
}

// Runs prints recorded screening runs.
func Runs(w io.Writer, runs []recorder.RunSummary) {
	if len(runs) == 0 {
		Warning(w, "No screening runs recorded yet.")
		return
	}
	t := newTable("Started", "Trigger", "Policy", "Scanned", "Eligible", "Top")
	for _, r := range runs {
		t.Row(humanize.Time(r.StartedAt), string(r.Trigger), r.Policy, fmt.Sprint(r.Scanned), fmt.Sprint(r.Eligible), r.Top)
	}
	fmt.Fprintln(w, t.String())
}

// Warning prints a soft, non-fatal message.
func Warning(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render("! "+msg))
}
