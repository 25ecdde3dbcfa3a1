package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"PairSentinel/internal/model"
)

// PairQuerier answers the read-side questions behind bot commands.
type PairQuerier interface {
	MetricsByCorrelationRange(ctx context.Context, min, max float64, sector string) ([]model.PairMetrics, error)
	PairRollingStats(ctx context.Context, symbol1, symbol2 string) (*model.RollingPairStats, error)
}

const commandHelp = "Available commands:\n" +
	"• /pairs [min-correlation] [sector]\n" +
	"• /pair SYMBOL1 SYMBOL2"

// NewCommandHandler routes bot commands to q. /pairs without an argument
// lists pairs with correlation of at least defaultMin.
func NewCommandHandler(q PairQuerier, defaultMin float64) CommandHandler {
	return func(ctx context.Context, command string) string {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return commandHelp
		}
		switch fields[0] {
		case "/pairs":
			minCorr := defaultMin
			sector := ""
			if len(fields) > 1 {
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return fmt.Sprintf("Invalid correlation %q", fields[1])
				}
				minCorr = v
			}
			if len(fields) > 2 {
				sector = fields[2]
			}
			metrics, err := q.MetricsByCorrelationRange(ctx, minCorr, 1, sector)
			if err != nil {
				return fmt.Sprintf("❌ %v", err)
			}
			return FormatPairList(metrics)
		case "/pair":
			if len(fields) != 3 {
				return "Usage: /pair SYMBOL1 SYMBOL2"
			}
			stats, err := q.PairRollingStats(ctx, strings.ToUpper(fields[1]), strings.ToUpper(fields[2]))
			if err != nil {
				return fmt.Sprintf("❌ %v", err)
			}
			return FormatRollingStats(stats)
		default:
			return commandHelp
		}
	}
}
