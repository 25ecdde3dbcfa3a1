package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"PairSentinel/internal/model"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Engine struct {
		RefreshInterval time.Duration `yaml:"refresh_interval"`
		RefreshPolicy   string        `yaml:"refresh_policy"` // fixed-delay | fixed-interval
		CacheFreshness  time.Duration `yaml:"cache_freshness"`
		FetchThrottle   time.Duration `yaml:"fetch_throttle"`
		LookbackDays    int           `yaml:"lookback_days"`
		Alignment       string        `yaml:"alignment"` // index | date
	} `yaml:"engine"`
	Reseed struct {
		Cron     string `yaml:"cron"`
		Timezone string `yaml:"timezone"`
		OnStart  *bool  `yaml:"on_start"` // seed at startup when the universe is empty
	} `yaml:"reseed"`
	DataSource struct {
		Provider string `yaml:"provider"` // yahoo | vstrader | mock
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	Market struct {
		MIC             string `yaml:"mic"`
		TradingDaysOnly bool   `yaml:"trading_days_only"`
	} `yaml:"market"`
	Sectors  []model.Sector `yaml:"sectors"`
	Database struct {
		Driver      string `yaml:"driver"` // sqlite | postgres | memory
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	Cache struct {
		Backend    string `yaml:"backend"` // database | badger
		BadgerPath string `yaml:"badger_path"`
	} `yaml:"cache"`
	Server struct {
		Listen         string   `yaml:"listen"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		Debug          bool     `yaml:"debug"`
	} `yaml:"server"`
	Broadcast struct {
		NATSURL       string `yaml:"nats_url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"broadcast"`
	Telegram struct {
		BotToken       string    `yaml:"bot_token"`
		ChatID         string    `yaml:"chat_id"`
		AlertBands     []float64 `yaml:"alert_bands"`
		MinCorrelation float64   `yaml:"min_correlation"`
	} `yaml:"telegram"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// DefaultSectors is the NSE universe used when no sectors are configured.
func DefaultSectors() []model.Sector {
	return []model.Sector{
		{Name: "technology", Symbols: []string{"TCS.NS", "INFY.NS", "WIPRO.NS", "TECHM.NS"}},
		{Name: "insurance", Symbols: []string{"ICICIPRULI.NS", "SBILIFE.NS", "HDFCLIFE.NS"}},
		{Name: "banks", Symbols: []string{"HDFCBANK.NS", "AXISBANK.NS", "ICICIBANK.NS"}},
		{Name: "publicSectorBanks", Symbols: []string{"SBIN.NS", "PNB.NS", "BANKBARODA.NS", "BANKINDIA.NS"}},
		{Name: "cement", Symbols: []string{"ACC.NS", "AMBUJACEM.NS", "ULTRACEMCO.NS"}},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"VSTRADER_BASE_URL":  &c.DataSource.BaseURL,
		"VSTRADER_API_KEY":   &c.DataSource.APIKey,
		"HTTPS_PROXY":        &c.Proxy,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"POSTGRES_DSN":       &c.Database.PostgresDSN,
		"NATS_URL":           &c.Broadcast.NATSURL,
		"LISTEN_ADDR":        &c.Server.Listen,
		"LOG_LEVEL":          &c.Log.Level,
		"RESEED_CRON":        &c.Reseed.Cron,
	}
	for env, field := range overrides {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	e := &c.Engine
	if e.RefreshInterval == 0 {
		e.RefreshInterval = 60 * time.Second
	}
	if e.RefreshPolicy == "" {
		e.RefreshPolicy = "fixed-delay"
	}
	if e.CacheFreshness == 0 {
		e.CacheFreshness = 24 * time.Hour
	}
	if e.FetchThrottle == 0 {
		e.FetchThrottle = time.Second
	}
	if e.LookbackDays == 0 {
		e.LookbackDays = 365
	}
	if e.Alignment == "" {
		e.Alignment = "index"
	}
	if c.Reseed.Cron == "" {
		c.Reseed.Cron = "0 1 20 * * *"
	}
	if c.Reseed.Timezone == "" {
		c.Reseed.Timezone = "Asia/Kolkata"
	}
	if c.Reseed.OnStart == nil {
		on := true
		c.Reseed.OnStart = &on
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.Market.MIC == "" {
		c.Market.MIC = "xnse"
	}
	if len(c.Sectors) == 0 {
		c.Sectors = DefaultSectors()
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/pair_sentinel.db"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "database"
	}
	if c.Cache.BadgerPath == "" {
		c.Cache.BadgerPath = "data/series"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Broadcast.SubjectPrefix == "" {
		c.Broadcast.SubjectPrefix = "pairs"
	}
	if len(c.Telegram.AlertBands) == 0 {
		c.Telegram.AlertBands = []float64{2, 2.7, 3}
	}
	if c.Telegram.MinCorrelation == 0 {
		c.Telegram.MinCorrelation = 0.8
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all required fields are set and in range.
func (c *Config) Validate() error {
	e := c.Engine
	if e.RefreshInterval <= 0 {
		return fmt.Errorf("engine.refresh_interval must be positive")
	}
	switch e.RefreshPolicy {
	case "fixed-delay", "fixed-interval":
	default:
		return fmt.Errorf("engine.refresh_policy must be fixed-delay or fixed-interval, got %q", e.RefreshPolicy)
	}
	if e.CacheFreshness <= 0 {
		return fmt.Errorf("engine.cache_freshness must be positive")
	}
	if e.FetchThrottle < 0 {
		return fmt.Errorf("engine.fetch_throttle must not be negative")
	}
	if e.LookbackDays <= 0 {
		return fmt.Errorf("engine.lookback_days must be positive")
	}
	switch e.Alignment {
	case "index", "date":
	default:
		return fmt.Errorf("engine.alignment must be index or date, got %q", e.Alignment)
	}
	if _, err := time.LoadLocation(c.Reseed.Timezone); err != nil {
		return fmt.Errorf("reseed.timezone: %w", err)
	}

	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "vstrader":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for vstrader")
		}
	default:
		return fmt.Errorf("data_source.provider must be yahoo, vstrader or mock, got %q", c.DataSource.Provider)
	}

	seen := make(map[string]bool, len(c.Sectors))
	owner := make(map[string]string) // symbol -> sector
	for _, s := range c.Sectors {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("sectors: every sector needs a name")
		}
		if seen[name] {
			return fmt.Errorf("sectors: duplicate sector %q", name)
		}
		seen[name] = true
		if len(s.Symbols) == 0 {
			return fmt.Errorf("sectors: %q has no symbols", name)
		}
		for _, sym := range s.Symbols {
			key := strings.ToUpper(strings.TrimSpace(sym))
			if key == "" {
				return fmt.Errorf("sectors: %q has an empty symbol", name)
			}
			if prev, dup := owner[key]; dup {
				return fmt.Errorf("sectors: symbol %q listed in %q and again in %q", sym, prev, name)
			}
			owner[key] = name
		}
	}

	switch c.Database.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres or memory, got %q", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "database", "badger":
	default:
		return fmt.Errorf("cache.backend must be database or badger, got %q", c.Cache.Backend)
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	for _, b := range c.Telegram.AlertBands {
		if b <= 0 {
			return fmt.Errorf("telegram.alert_bands must be positive, got %v", b)
		}
	}
	return nil
}
