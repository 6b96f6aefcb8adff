package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Chooser backends.
const (
	ChooserFirst = "first"
	ChooserHTTP  = "http"
	ChooserUCI   = "uci"
)

type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	HumanColor string `yaml:"human_color"`

	Chooser            string        `yaml:"chooser"`
	OracleURL          string        `yaml:"oracle_url"`
	OracleRetry        int           `yaml:"oracle_retry"`
	StockfishPath      string        `yaml:"stockfish_path"`
	ChooserLevel       string        `yaml:"chooser_level"`
	ChooserTimeout     time.Duration `yaml:"chooser_timeout"`
	ChooserMaxAttempts int           `yaml:"chooser_max_attempts"`
	ChooserBackoff     time.Duration `yaml:"chooser_backoff"`
	ChooserFallback    bool          `yaml:"chooser_fallback"`
	ChooserPrudent     bool          `yaml:"chooser_prudent"`

	RedisURL    string        `yaml:"redis_url"`
	DatabaseURL string        `yaml:"database_url"`
	SessionTTL  time.Duration `yaml:"session_ttl"`

	MessagesDir string `yaml:"messages_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:         ":8080",
		HumanColor:         "white",
		Chooser:            ChooserFirst,
		OracleRetry:        3,
		ChooserLevel:       "level3",
		ChooserTimeout:     20 * time.Second,
		ChooserMaxAttempts: 3,
		ChooserBackoff:     200 * time.Millisecond,
		ChooserFallback:    true,
		SessionTTL:         24 * time.Hour,
	}
}

// Load reads defaults, then the YAML file named by GRIDCHESS_CONFIG, then the environment.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("GRIDCHESS_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	envString("LISTEN_ADDR", &cfg.ListenAddr)
	envString("HUMAN_COLOR", &cfg.HumanColor)
	envString("CHOOSER", &cfg.Chooser)
	envString("ORACLE_URL", &cfg.OracleURL)
	envString("STOCKFISH_PATH", &cfg.StockfishPath)
	envString("CHOOSER_LEVEL", &cfg.ChooserLevel)
	envString("REDIS_URL", &cfg.RedisURL)
	envString("DATABASE_URL", &cfg.DatabaseURL)
	envString("MESSAGES_DIR", &cfg.MessagesDir)

	if v := strings.TrimSpace(os.Getenv("ORACLE_RETRY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.OracleRetry = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHOOSER_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChooserMaxAttempts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHOOSER_FALLBACK")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ChooserFallback = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHOOSER_PRUDENT")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ChooserPrudent = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHOOSER_TIMEOUT")); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CHOOSER_TIMEOUT: %w", err)
		}
		cfg.ChooserTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("CHOOSER_BACKOFF")); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CHOOSER_BACKOFF: %w", err)
		}
		cfg.ChooserBackoff = d
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	cfg.HumanColor = strings.ToLower(strings.TrimSpace(cfg.HumanColor))
	cfg.Chooser = strings.ToLower(strings.TrimSpace(cfg.Chooser))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required keys for the selected chooser backend.
func (c *AppConfig) Validate() error {
	if c.HumanColor != "white" && c.HumanColor != "black" {
		return fmt.Errorf("HUMAN_COLOR must be white or black, got %q", c.HumanColor)
	}
	switch c.Chooser {
	case ChooserFirst:
	case ChooserHTTP:
		if c.OracleURL == "" {
			return errors.New("ORACLE_URL is required for CHOOSER=http")
		}
	case ChooserUCI:
		if c.StockfishPath == "" {
			return errors.New("STOCKFISH_PATH is required for CHOOSER=uci")
		}
	default:
		return fmt.Errorf("CHOOSER must be first, http or uci, got %q", c.Chooser)
	}
	if c.ChooserTimeout <= 0 {
		return errors.New("CHOOSER_TIMEOUT must be positive")
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// parseDuration accepts Go durations ("90s") or plain seconds ("90").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", v)
	}
	return d, nil
}
