package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PairSentinel/internal/model"
	"PairSentinel/internal/notifier"
	"PairSentinel/internal/recorder"
	"PairSentinel/internal/strategy"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ErrNotRefreshing is returned by RefreshNow outside refresh mode.
var ErrNotRefreshing = errors.New("scheduler is not in refresh mode")

// Mode is the scheduler's current activity.
type Mode int

const (
	ModeIdle Mode = iota
	ModeRefresh
	ModeReseed
	ModeStopped
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeRefresh:
		return "refresh"
	case ModeReseed:
		return "reseed"
	case ModeStopped:
		return "stopped"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Policy decides when the next refresh cycle is armed.
type Policy string

const (
	// PolicyFixedInterval arms the next cycle when a cycle starts; cycles may overlap.
	PolicyFixedInterval Policy = "fixed-interval"
	// PolicyFixedDelay arms the next cycle after a cycle completes.
	PolicyFixedDelay Policy = "fixed-delay"
)

// Defaults.
const (
	DefaultRefreshInterval = 60 * time.Second
	DefaultReseedCron      = "0 1 20 * * *"
	DefaultTimezone        = "Asia/Kolkata"
)

// State is a snapshot of the scheduler.
type State struct {
	Mode       Mode   `json:"-"`
	ModeName   string `json:"mode"`
	Armed      bool   `json:"armed"`
	Generation uint64 `json:"generation"`
}

// SeriesSource returns a cached price series; an empty series means unavailable.
type SeriesSource interface {
	Get(ctx context.Context, symbol string) model.PriceSeries
}

// QuoteSource returns live prices.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (*model.LiveQuote, error)
}

// Reseeder reloads the instrument universe.
type Reseeder interface {
	Reseed(ctx context.Context) error
}

// Config holds the timing settings of a Scheduler.
type Config struct {
	RefreshInterval time.Duration
	Policy          Policy
	ReseedCron      string // six-field cron spec, seconds first
	Timezone        string
	Alignment       strategy.Alignment
}

// Scheduler runs the periodic metrics refresh and the daily re-seed. The two
// never overlap: a re-seed cancels the refresh timer and waits for running
// cycles before it starts.
type Scheduler struct {
	Pairs       []model.Pair
	Series      SeriesSource
	Quotes      QuoteSource
	Store       recorder.MetricsStore
	Broadcaster notifier.Broadcaster
	Reseeder    Reseeder
	Now         func() time.Time

	cfg    Config
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    *log.Entry

	mu         sync.Mutex
	state      State
	timer      *time.Timer
	lastReport CycleReport
	cycles     sync.WaitGroup
}

// New creates a Scheduler and registers the re-seed job. Zero config values
// take the defaults.
func New(ctx context.Context, cfg Config, pairs []model.Pair, series SeriesSource, quotes QuoteSource,
	store recorder.MetricsStore, b notifier.Broadcaster, reseeder Reseeder) (*Scheduler, error) {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyFixedDelay
	}
	if cfg.Policy != PolicyFixedDelay && cfg.Policy != PolicyFixedInterval {
		return nil, fmt.Errorf("unknown refresh policy %q", cfg.Policy)
	}
	if cfg.ReseedCron == "" {
		cfg.ReseedCron = DefaultReseedCron
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Alignment == "" {
		cfg.Alignment = strategy.AlignIndex
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	if b == nil {
		b = notifier.Discard{}
	}

	cctx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		Pairs:       pairs,
		Series:      series,
		Quotes:      quotes,
		Store:       store,
		Broadcaster: b,
		Reseeder:    reseeder,
		Now:         time.Now,
		cfg:         cfg,
		cron:        cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		ctx:         cctx,
		cancel:      cancel,
		log:         log.WithField("component", "scheduler"),
	}
	s.state.Mode = ModeIdle
	if reseeder != nil {
		if _, err := s.cron.AddFunc(cfg.ReseedCron, s.Reseed); err != nil {
			cancel()
			return nil, fmt.Errorf("register reseed task: %w", err)
		}
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// State returns a snapshot of the scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.ModeName = st.Mode.String()
	return st
}

// LastReport returns the report of the most recently completed cycle.
func (s *Scheduler) LastReport() CycleReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// Start enters refresh mode, runs the first cycle immediately and starts the
// re-seed schedule.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state.Mode != ModeIdle {
		s.mu.Unlock()
		return
	}
	s.state.Mode = ModeRefresh
	s.state.Generation++
	gen := s.state.Generation
	s.mu.Unlock()

	s.cron.Start()
	s.log.Infof("scheduler started: %d pairs, every %s (%s), reseed %q %s",
		len(s.Pairs), s.cfg.RefreshInterval, s.cfg.Policy, s.cfg.ReseedCron, s.cfg.Timezone)
	go s.fire(gen)
}

// Stop stops the cron and the refresh timer, cancels running cycles and waits
// for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state.Mode == ModeStopped {
		s.mu.Unlock()
		return
	}
	s.state.Mode = ModeStopped
	s.state.Generation++
	s.disarmLocked()
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.cycles.Wait()
	s.log.Info("scheduler stopped")
}

// armLocked schedules the next cycle for generation gen. Caller holds mu.
func (s *Scheduler) armLocked(gen uint64) {
	s.disarmLocked()
	s.timer = time.AfterFunc(s.cfg.RefreshInterval, func() { s.fire(gen) })
	s.state.Armed = true
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state.Armed = false
}

// fire runs one timer-triggered cycle if gen is still current.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.state.Mode != ModeRefresh || s.state.Generation != gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.state.Armed = false
	if s.cfg.Policy == PolicyFixedInterval {
		s.armLocked(gen)
	}
	s.cycles.Add(1)
	s.mu.Unlock()

	report := s.RunCycle(s.ctx)
	s.cycles.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReport = report
	if s.cfg.Policy == PolicyFixedDelay && s.state.Mode == ModeRefresh && s.state.Generation == gen {
		s.armLocked(gen)
	}
}

// RefreshNow runs one cycle immediately, beside the timer. It is refused while a
// re-seed runs, before Start and after Stop. The cycle stops early when either
// ctx or the scheduler is cancelled.
func (s *Scheduler) RefreshNow(ctx context.Context) (CycleReport, error) {
	s.mu.Lock()
	if s.state.Mode != ModeRefresh {
		mode := s.state.Mode
		s.mu.Unlock()
		return CycleReport{}, fmt.Errorf("%w: scheduler is %s", ErrNotRefreshing, mode)
	}
	s.cycles.Add(1)
	s.mu.Unlock()
	defer s.cycles.Done()

	cctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	s.log.Info("manual refresh requested")
	report := s.RunCycle(cctx)

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
	return report, nil
}

// Reseed runs the re-seed procedure exclusively: the refresh timer is
// cancelled, running cycles are awaited, and refresh mode is re-entered
// afterwards whether or not the re-seed succeeded.
func (s *Scheduler) Reseed() {
	s.mu.Lock()
	if s.state.Mode != ModeRefresh {
		s.log.Warnf("reseed skipped: scheduler is %s", s.state.Mode)
		s.mu.Unlock()
		return
	}
	s.state.Mode = ModeReseed
	s.state.Generation++
	gen := s.state.Generation
	s.disarmLocked()
	s.mu.Unlock()

	s.log.Info("reseed started, waiting for running cycles")
	s.cycles.Wait()

	start := time.Now()
	if err := s.runReseeder(); err != nil {
		s.log.Errorf("reseed failed: %v", err)
	} else {
		s.log.Infof("reseed finished in %s", time.Since(start).Round(time.Millisecond))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Mode != ModeReseed || s.state.Generation != gen {
		return
	}
	s.state.Mode = ModeRefresh
	s.armLocked(gen)
}

func (s *Scheduler) runReseeder() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reseed panicked: %v", r)
		}
	}()
	if s.Reseeder == nil {
		return nil
	}
	return s.Reseeder.Reseed(s.ctx)
}
