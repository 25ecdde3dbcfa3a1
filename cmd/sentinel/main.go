package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"PairSentinel/internal/collector"
	"PairSentinel/internal/config"
	"PairSentinel/internal/logger"
	"PairSentinel/internal/notifier"
	"PairSentinel/internal/pairs"
	"PairSentinel/internal/query"
	"PairSentinel/internal/recorder"
	"PairSentinel/internal/scheduler"
	"PairSentinel/internal/seeder"
	"PairSentinel/internal/server"
	"PairSentinel/internal/strategy"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	log.Info("PairSentinel starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	var seriesStore recorder.SeriesStore = store
	if cfg.Cache.Backend == "badger" {
		bs, err := recorder.NewBadgerSeriesStore(cfg.Cache.BadgerPath)
		if err != nil {
			log.Fatalf("open badger series cache: %v", err)
		}
		defer bs.Close()
		seriesStore = bs
	}

	fetcher := newFetcher(cfg)
	log.Infof("data source: %s", fetcher.Name())

	cache := collector.NewSeriesCache(fetcher, seriesStore)
	cache.Freshness = cfg.Engine.CacheFreshness
	cache.Throttle = cfg.Engine.FetchThrottle
	cache.LookbackDays = cfg.Engine.LookbackDays
	if cfg.Market.TradingDaysOnly {
		cache.Calendar = collector.NewTradingCalendar(cfg.Market.MIC)
	}

	seed := seeder.New(fetcher, store, cfg.Sectors)
	seed.LookbackDays = cfg.Engine.LookbackDays
	if *cfg.Reseed.OnStart {
		existing, err := store.ListInstruments(ctx, "")
		if err != nil {
			log.Warnf("list instruments: %v", err)
		}
		if len(existing) == 0 {
			log.Info("instrument universe empty, seeding now")
			if err := seed.Reseed(ctx); err != nil {
				log.Warnf("initial seed: %v", err)
			}
		}
	}

	hub := server.NewHub()
	go hub.Run(ctx)

	fanout := notifier.Fanout{hub}
	if cfg.Broadcast.NATSURL != "" {
		np, err := notifier.NewNATSPublisher(cfg.Broadcast.NATSURL, cfg.Broadcast.SubjectPrefix)
		if err != nil {
			log.Warnf("nats disabled: %v", err)
		} else {
			defer np.Close()
			fanout = append(fanout, np)
		}
	}

	qs := query.New(store, store)
	qs.Sectors = cfg.Sectors
	qs.Series = cache
	qs.Quotes = fetcher

	if cfg.TelegramEnabled() {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		alerts := notifier.NewAlertSubscriber(tn, cfg.Telegram.AlertBands)
		go alerts.Run(ctx)
		fanout = append(fanout, alerts)

		go tn.StartPolling(ctx, notifier.NewCommandHandler(qs, cfg.Telegram.MinCorrelation))
		log.Info("Telegram alerts and polling started")
	}

	pairList := pairs.Enumerate(cfg.Sectors)
	log.Infof("tracking %d pairs across %d sectors", len(pairList), len(cfg.Sectors))

	sched, err := scheduler.New(ctx, scheduler.Config{
		RefreshInterval: cfg.Engine.RefreshInterval,
		Policy:          scheduler.Policy(cfg.Engine.RefreshPolicy),
		ReseedCron:      cfg.Reseed.Cron,
		Timezone:        cfg.Reseed.Timezone,
		Alignment:       strategy.Alignment(cfg.Engine.Alignment),
	}, pairList, cache, fetcher, store, fanout, seed)
	if err != nil {
		log.Fatalf("init scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(qs, sched, hub, cfg.Server.AllowedOrigins, cfg.Server.Debug)
	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("HTTP server listening on %s", cfg.Server.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	log.Info("PairSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}
	cancel()
	log.Info("PairSentinel stopped")
}

func openStore(cfg *config.Config) (recorder.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return recorder.NewPostgresStore(cfg.Database.PostgresDSN)
	case "memory":
		return recorder.NewMemoryStore(), nil
	default:
		if dir := filepath.Dir(cfg.Database.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return recorder.NewSQLiteStore(cfg.Database.SQLitePath)
	}
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case "vstrader":
		return collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		return &collector.MockFetcher{Price: 1000}
	default:
		return collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	}
}
