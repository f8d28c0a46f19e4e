package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. STICKERFLOOR_API_BASE_URL.
const EnvPrefix = "STICKERFLOOR"

// Config represents the overall application configuration.
type Config struct {
	API         APIConfig       `yaml:"api" envconfig:"API"`
	Reference   ReferenceConfig `yaml:"reference" envconfig:"REFERENCE"`
	Report      ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Pacing      PacingConfig    `yaml:"pacing" envconfig:"PACING"`
	Logging     LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Metrics     MetricsConfig   `yaml:"metrics" envconfig:"METRICS"`
	Schedule    ScheduleConfig  `yaml:"schedule" envconfig:"SCHEDULE"`
	PauseOnExit *bool           `yaml:"pause_on_exit" split_words:"true"`
}

// APIConfig holds the marketplace client configuration.
type APIConfig struct {
	BaseURL      string `yaml:"base_url" split_words:"true"`
	UserDataFile string `yaml:"user_data_file" split_words:"true"`
	UserAgent    string `yaml:"user_agent" split_words:"true"`
	HTTPProxy    string `yaml:"http_proxy" split_words:"true"`

	CollectionsTimeout time.Duration `yaml:"collections_timeout" split_words:"true"`

	PacksTimeout    time.Duration `yaml:"packs_timeout" split_words:"true"`
	PacksAttempts   int           `yaml:"packs_attempts" split_words:"true"`
	PacksRetryDelay time.Duration `yaml:"packs_retry_delay" split_words:"true"`
	PackCacheTTL    time.Duration `yaml:"pack_cache_ttl" split_words:"true"`

	OffersTimeout    time.Duration `yaml:"offers_timeout" split_words:"true"`
	OffersAttempts   int           `yaml:"offers_attempts" split_words:"true"`
	OffersRetryDelay time.Duration `yaml:"offers_retry_delay" split_words:"true"`
	OffersLimit      int           `yaml:"offers_limit" split_words:"true"`
}

// ReferenceConfig points at the issuance reference spreadsheet.
type ReferenceConfig struct {
	Path  string `yaml:"path" split_words:"true"`
	Sheet string `yaml:"sheet" split_words:"true"` // empty means the first sheet
}

// ReportConfig controls where the report is written.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" split_words:"true"`
}

// PacingConfig holds the minimum interval between pack-list and floor requests.
type PacingConfig struct {
	MinInterval time.Duration `yaml:"min_interval" split_words:"true"`
}

// LoggingConfig holds the console/file logging configuration.
type LoggingConfig struct {
	Dir string `yaml:"dir" split_words:"true"`
}

// MetricsConfig enables the prometheus textfile written after each run.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" split_words:"true"`
	Textfile string `yaml:"textfile" split_words:"true"`
}

// ScheduleConfig repeats the run on a fixed interval when IntervalSeconds > 0.
type ScheduleConfig struct {
	IntervalSeconds int           `yaml:"interval_seconds" split_words:"true"`
	Interval        time.Duration `yaml:"-" ignored:"true"`
}

// ShouldPauseOnExit reports whether main should wait for Enter before exiting.
func (c *Config) ShouldPauseOnExit() bool {
	return c.PauseOnExit == nil || *c.PauseOnExit
}

// Load reads the configuration from the given path, then applies .env and
// environment overrides. A missing file is not an error when allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && allowMissing:
		log.Printf("config file %s not found; using defaults", path)
	default:
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if err := godotenv.Load(); err == nil {
		log.Println(".env file loaded")
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	api := &cfg.API
	if api.BaseURL == "" {
		api.BaseURL = "https://palacenft.com"
	}
	api.BaseURL = strings.TrimRight(api.BaseURL, "/")
	if api.UserDataFile == "" {
		api.UserDataFile = "user_data.txt"
	}
	if api.UserAgent == "" {
		api.UserAgent = "Mozilla/5.0"
	}
	if api.CollectionsTimeout <= 0 {
		api.CollectionsTimeout = 15 * time.Second
	}
	if api.PacksTimeout <= 0 {
		api.PacksTimeout = 10 * time.Second
	}
	if api.PacksAttempts <= 0 {
		api.PacksAttempts = 2
	}
	if api.PacksRetryDelay < 0 {
		api.PacksRetryDelay = 0
	} else if api.PacksRetryDelay == 0 {
		api.PacksRetryDelay = 2 * time.Second
	}
	if api.PackCacheTTL <= 0 {
		api.PackCacheTTL = 30 * time.Minute
	}
	if api.OffersTimeout <= 0 {
		api.OffersTimeout = 15 * time.Second
	}
	if api.OffersAttempts <= 0 {
		api.OffersAttempts = 3
	}
	if api.OffersRetryDelay < 0 {
		api.OffersRetryDelay = 0
	} else if api.OffersRetryDelay == 0 {
		api.OffersRetryDelay = 5 * time.Second
	}
	if api.OffersLimit <= 0 {
		api.OffersLimit = 40
	}

	if cfg.Reference.Path == "" {
		cfg.Reference.Path = "Stickers.xlsx"
	}
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "."
	}
	if cfg.Pacing.MinInterval == 0 {
		cfg.Pacing.MinInterval = 200 * time.Millisecond
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "log"
	}
	if cfg.Metrics.Textfile == "" {
		cfg.Metrics.Textfile = filepath.Join(cfg.Logging.Dir, "stickerfloor.prom")
	}

	if cfg.Schedule.IntervalSeconds < 0 {
		log.Printf("schedule.interval_seconds is negative; running once")
		cfg.Schedule.IntervalSeconds = 0
	}
	cfg.Schedule.Interval = time.Duration(cfg.Schedule.IntervalSeconds) * time.Second
}

// ReadUserData reads the marketplace credential verbatim from path, trimming surrounding whitespace.
func ReadUserData(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
