package notifier

import (
	"context"
	"math"
	"sort"
	"sync"

	"PairSentinel/internal/model"

	log "github.com/sirupsen/logrus"
)

// DefaultAlertBands are the |LSD| thresholds, in spread standard deviations.
var DefaultAlertBands = []float64{2, 2.7, 3}

// AlertSubscriber turns metricsUpdate events into Telegram alerts. A pair is
// reported once each time its |LSD| moves into a higher band; dropping back
// below a band re-arms it.
type AlertSubscriber struct {
	sender Sender
	bands  []float64

	mu    sync.Mutex
	last  map[string]int
	queue chan string
}

// NewAlertSubscriber creates a subscriber. Empty bands use DefaultAlertBands.
func NewAlertSubscriber(sender Sender, bands []float64) *AlertSubscriber {
	if len(bands) == 0 {
		bands = DefaultAlertBands
	}
	sorted := append([]float64(nil), bands...)
	sort.Float64s(sorted)
	return &AlertSubscriber{
		sender: sender,
		bands:  sorted,
		last:   make(map[string]int),
		queue:  make(chan string, 64),
	}
}

// band returns the index of the highest band reached by lsd, or -1.
func (a *AlertSubscriber) band(lsd float64) int {
	if math.IsNaN(lsd) || math.IsInf(lsd, 0) {
		return -1
	}
	abs := math.Abs(lsd)
	idx := -1
	for i, b := range a.bands {
		if abs >= b {
			idx = i
		}
	}
	return idx
}

func (a *AlertSubscriber) Publish(event string, payload any) {
	if event != EventMetricsUpdate {
		return
	}
	m, ok := payload.(*model.PairMetrics)
	if !ok || m == nil {
		return
	}

	idx := a.band(m.LSD)
	a.mu.Lock()
	prev, seen := a.last[m.Pair]
	a.last[m.Pair] = idx
	a.mu.Unlock()
	if !seen {
		prev = -1
	}
	if idx < 0 || idx <= prev {
		return
	}

	select {
	case a.queue <- FormatAlert(m, a.bands[idx]):
	default:
		log.WithField("pair", m.Pair).Warn("[notifier] alert queue full, dropping alert")
	}
}

// Run delivers queued alerts until ctx is cancelled.
func (a *AlertSubscriber) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-a.queue:
			if err := a.sender.Send(ctx, text); err != nil {
				log.Errorf("[notifier] send alert: %v", err)
			}
		}
	}
}
