package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"BullionLedger/internal/calculator"
	"BullionLedger/internal/model"
	"BullionLedger/internal/recorder"
)

// FormatRunSummary formats one ingestion run for Telegram.
func FormatRunSummary(s *model.RunSummary) string {
	var b strings.Builder

	status := "✅"
	if s.Failed() > 0 {
		status = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>Price run</b> | %s\n\n", status, s.Date.Format(model.DateLayout)))

	for _, r := range s.Results {
		if !r.OK() {
			b.WriteString(fmt.Sprintf("❌ %s: FAILED -> %s\n", r.Commodity, html.EscapeString(r.Err.Error())))
			continue
		}
		b.WriteString(fmt.Sprintf("✔️ %s:", r.Commodity))
		for _, o := range r.Observations {
			if sub := o.SubKey(); sub != "" {
				b.WriteString(fmt.Sprintf(" %s %.2f", sub, o.Value))
			} else {
				b.WriteString(fmt.Sprintf(" %.2f", o.Value))
			}
		}
		b.WriteString(fmt.Sprintf(" %s\n", unitLabel(r)))
	}

	b.WriteString(fmt.Sprintf("\n%d ok, %d failed in %s", s.Succeeded(), s.Failed(),
		s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)))
	return b.String()
}

func unitLabel(r model.Result) string {
	if len(r.Observations) == 0 {
		return ""
	}
	return r.Observations[0].Unit.Label()
}

// FormatRecentRuns lists stored runs, newest first.
func FormatRecentRuns(runs []recorder.RunRecord) string {
	if len(runs) == 0 {
		return "No runs recorded yet"
	}
	var b strings.Builder
	b.WriteString("📒 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s %s: %d ok, %d failed\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.Date, r.Succeeded, r.Failed))
	}
	return b.String()
}

// FormatPriceBoard shows the latest days of one series with the move
// against the previous day's close.
func FormatPriceBoard(com model.Commodity, bars []model.DailyBar, days int) string {
	series := calculator.GroupBySubKey(bars)
	if len(series) == 0 {
		return fmt.Sprintf("<b>%s</b>: no data\n", com.Name)
	}

	var b strings.Builder
	for _, ser := range series {
		title := com.Name
		if ser.SubKey != "" {
			title += " " + ser.SubKey
		}
		recent := calculator.Recent(ser.Bars, days)
		b.WriteString(fmt.Sprintf("<b>%s</b> (%s)\n", title, com.Unit.Label()))
		for i, bar := range recent {
			dir := calculator.Same
			if i+1 < len(recent) {
				dir = calculator.Compare(bar.Close, recent[i+1].Close)
			}
			b.WriteString(fmt.Sprintf("%s O %.2f H %.2f L %.2f C %.2f %s\n",
				bar.Date, bar.Open, bar.High, bar.Low, bar.Close, dir.Arrow()))
		}
		if high, low, err := calculator.PeriodRange(recent); err == nil {
			pos, _ := calculator.RangePosition(recent[0].Close, high, low)
			b.WriteString(fmt.Sprintf("%d-day range %.2f – %.2f, close at %.0f%%\n", len(recent), low, high, pos*100))
		}
		b.WriteString("\n")
	}
	return b.String()
}
