package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/model"
)

// Data source names.
const (
	SourceYahoo   = "yahoo"
	SourceAlpaca  = "alpaca"
	SourceParquet = "parquet"
	SourceMock    = "mock"
)

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
	DataSource struct {
		Source            string  `yaml:"source"`
		AlpacaKey         string  `yaml:"alpaca_key"`
		AlpacaSecret      string  `yaml:"alpaca_secret"`
		AlpacaDataURL     string  `yaml:"alpaca_data_url"`
		ParquetDir        string  `yaml:"parquet_dir"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"data_source"`
	Tickers struct {
		File    string   `yaml:"file"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"tickers"`
	Indicators struct {
		MinPeriods string `yaml:"min_periods"`
	} `yaml:"indicators"`
	Screen struct {
		Policy        string `yaml:"policy"`
		Ranking       string `yaml:"ranking"`
		TopK          int    `yaml:"top_k"`
		MaxEligible   *int   `yaml:"max_eligible"`
		UniverseLimit int    `yaml:"universe_limit"`
		Workers       int    `yaml:"workers"`
	} `yaml:"screen"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Schedule struct {
		ScreenCron string `yaml:"screen_cron"`
		StateFile  string `yaml:"state_file"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
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

	// Environment variable overrides
	if v := os.Getenv("SCREENER_SOURCE"); v != "" {
		cfg.DataSource.Source = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.DataSource.AlpacaKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.DataSource.AlpacaSecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		var id int64
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = "console"
	}
	if cfg.DataSource.Source == "" {
		cfg.DataSource.Source = SourceYahoo
	}
	if cfg.DataSource.ParquetDir == "" {
		cfg.DataSource.ParquetDir = "data/bars"
	}
	if cfg.DataSource.RequestsPerSecond == 0 {
		cfg.DataSource.RequestsPerSecond = 2
	}
	if cfg.Indicators.MinPeriods == "" {
		cfg.Indicators.MinPeriods = string(calculator.MinPeriodsRelaxed)
	}
	if cfg.Screen.Policy == "" {
		cfg.Screen.Policy = string(model.PolicyAboveMA)
	}
	if cfg.Screen.Ranking == "" {
		cfg.Screen.Ranking = string(model.RankByScore)
	}
	if cfg.Screen.TopK == 0 {
		cfg.Screen.TopK = 5
	}
	if cfg.Screen.MaxEligible == nil {
		maxEligible := 20
		cfg.Screen.MaxEligible = &maxEligible
	}
	if cfg.Screen.UniverseLimit == 0 {
		cfg.Screen.UniverseLimit = 100
	}
	if cfg.Screen.Workers == 0 {
		cfg.Screen.Workers = 1
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Schedule.ScreenCron == "" {
		cfg.Schedule.ScreenCron = "0 30 22 * * 1-5"
	}
	if cfg.Schedule.StateFile == "" {
		cfg.Schedule.StateFile = "data/watch_state.json"
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = ":8080"
	}

	return cfg, nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	switch c.DataSource.Source {
	case SourceYahoo, SourceMock:
	case SourceAlpaca:
		if c.DataSource.AlpacaKey == "" || c.DataSource.AlpacaSecret == "" {
			return fmt.Errorf("data_source.alpaca_key and alpaca_secret are required for alpaca")
		}
	case SourceParquet:
		if c.DataSource.ParquetDir == "" {
			return fmt.Errorf("data_source.parquet_dir is required for parquet")
		}
	default:
		return fmt.Errorf("unknown data_source.source %q", c.DataSource.Source)
	}
	if c.Tickers.File == "" && len(c.Tickers.Symbols) == 0 {
		return fmt.Errorf("tickers.file or tickers.symbols is required")
	}
	if _, err := calculator.ParseMinPeriods(c.Indicators.MinPeriods); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	if _, err := model.ParsePolicy(c.Screen.Policy); err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	if _, err := model.ParseRanking(c.Screen.Ranking); err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	if c.Screen.TopK < 0 {
		return fmt.Errorf("screen.top_k must not be negative")
	}
	if c.Screen.MaxEligible != nil && *c.Screen.MaxEligible < 0 {
		return fmt.Errorf("screen.max_eligible must not be negative")
	}
	if c.Screen.UniverseLimit < 0 {
		return fmt.Errorf("screen.universe_limit must not be negative")
	}
	if c.Screen.Workers < 1 {
		return fmt.Errorf("screen.workers must be at least 1")
	}
	if c.DataSource.RequestsPerSecond < 0 {
		return fmt.Errorf("data_source.requests_per_second must not be negative")
	}
	return nil
}

// TelegramEnabled reports whether reports can be delivered.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}
