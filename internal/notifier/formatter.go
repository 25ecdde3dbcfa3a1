package notifier

import (
	"fmt"
	"math"
	"strings"

	"PairSentinel/internal/model"
)

func fmtLSD(lsd float64) string {
	if math.IsNaN(lsd) || math.IsInf(lsd, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f", lsd)
}

// FormatAlert formats a band-crossing alert for one pair.
func FormatAlert(m *model.PairMetrics, band float64) string {
	var b strings.Builder
	direction := "above"
	if m.LSD < 0 {
		direction = "below"
	}
	b.WriteString(fmt.Sprintf("🚨 <b>%s</b> spread %s %.1fσ\n\n", m.Pair, direction, band))
	if m.Sector != "" {
		b.WriteString(fmt.Sprintf("Sector: %s\n", m.Sector))
	}
	b.WriteString(fmt.Sprintf("LSD: %s\n", fmtLSD(m.LSD)))
	b.WriteString(fmt.Sprintf("Correlation: %.4f\n", m.Correlation))
	b.WriteString(fmt.Sprintf("Spread (PSD): %.2f | σ: %.2f\n", m.PSD, m.LFSD))
	b.WriteString(fmt.Sprintf("Bands 2σ/2.7σ/3σ: %.2f / %.2f / %.2f\n", m.TwoSD, m.TwoPointSevenSD, m.ThreeSD))
	b.WriteString(fmt.Sprintf("Price ratio: %.4f (corr-adj %.4f)\n", m.PPR, m.LPR))
	b.WriteString(fmt.Sprintf("Updated: %s", m.LastUpdated.Format("2006-01-02 15:04:05")))
	return b.String()
}

// FormatPairList formats stored metrics as a compact table.
func FormatPairList(metrics []model.PairMetrics) string {
	if len(metrics) == 0 {
		return "No pairs match."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%d pairs</b>\n\n", len(metrics)))
	for _, m := range metrics {
		b.WriteString(fmt.Sprintf("%s  corr %.3f  lsd %s\n", m.Pair, m.Correlation, fmtLSD(m.LSD)))
	}
	return b.String()
}

// FormatRollingStats summarizes a pair's ratio distribution.
func FormatRollingStats(s *model.RollingPairStats) string {
	d := s.DetailedStats
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s / %s</b> (%d days)\n\n", s.Stock1, s.Stock2, len(s.Dates)))
	b.WriteString(fmt.Sprintf("Last z-score: %+.2f\n", s.LastZScore))
	b.WriteString(fmt.Sprintf("Last correlation: %.4f\n", s.LastCorrelation))
	b.WriteString(fmt.Sprintf("Ratio close/mean: %.4f / %.4f\n", d.ClosePR, d.MeanPR))
	b.WriteString(fmt.Sprintf("Ratio min/max: %.4f / %.4f\n", d.MinPR, d.MaxPR))
	b.WriteString(fmt.Sprintf("+1σ %.4f | +2σ %.4f | +2.7σ %.4f | +3σ %.4f\n", d.SD1, d.SD2, d.SD2_7, d.SD3))
	b.WriteString(fmt.Sprintf("Cash neutral: %.2f%%", d.CashNeutralPercentage))
	return b.String()
}
