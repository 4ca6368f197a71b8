package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	OllamaURL       string `yaml:"ollama_url"`
	Model           string `yaml:"model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
	// Pointer so an explicit 0 (retries disabled) survives defaulting.
	MaxRetries      *int   `yaml:"max_retries"`
	FetchLimit      int    `yaml:"fetch_limit"`
	MaxItems        int    `yaml:"max_items"`
	MaxChars        int    `yaml:"max_chars"`
	Order           string `yaml:"order"`
	ScrapeLinks     bool   `yaml:"scrape_links"`
	ExcerptChars    int    `yaml:"excerpt_chars"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_secs"`
	DataDir         string `yaml:"data_dir"`
	DBPath          string `yaml:"db_path"`
	GenerateTime    string `yaml:"generate_time"`
	Timezone        string `yaml:"timezone"`
	TelegramToken   string `yaml:"telegram_token"`
	ChatID          int64  `yaml:"chat_id"`
	LogLevel        string `yaml:"log_level"`
}

// generateTimeRegex validates HH:MM format with proper ranges.
var generateTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Load reads configuration from a YAML file and applies defaults. A missing
// file is not an error; the defaults alone form a working local setup.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("PERSONA_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func applyDefaults(cfg *Config) {
	if cfg.OllamaURL == "" {
		cfg.OllamaURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral"
	}
	if cfg.TimeoutSecs == 0 {
		cfg.TimeoutSecs = 120
	}
	if cfg.MaxRetries == nil {
		retries := 2
		cfg.MaxRetries = &retries
	}
	if cfg.FetchLimit == 0 {
		cfg.FetchLimit = 100
	}
	if cfg.MaxItems == 0 {
		cfg.MaxItems = 50
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = 24000
	}
	if cfg.Order == "" {
		cfg.Order = "recency"
	}
	if cfg.ExcerptChars == 0 {
		cfg.ExcerptChars = 1200
	}
	if cfg.FetchTimeoutSec == 0 {
		cfg.FetchTimeoutSec = 15
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./persona.db"
	}
	if cfg.GenerateTime == "" {
		cfg.GenerateTime = "09:00"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if url := os.Getenv("PERSONA_OLLAMA_URL"); url != "" {
		cfg.OllamaURL = url
	}
	if dbPath := os.Getenv("PERSONA_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if token := os.Getenv("PERSONA_TELEGRAM_TOKEN"); token != "" {
		cfg.TelegramToken = token
	}
}

func validate(cfg *Config) error {
	if cfg.MaxItems < 0 || cfg.MaxChars < 0 {
		return fmt.Errorf("max_items and max_chars must not be negative")
	}
	if *cfg.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", *cfg.MaxRetries)
	}
	if cfg.Order != "recency" && cfg.Order != "score" {
		return fmt.Errorf("order must be %q or %q, got %q", "recency", "score", cfg.Order)
	}
	if !generateTimeRegex.MatchString(cfg.GenerateTime) {
		return fmt.Errorf("generate_time must be in HH:MM format (00:00-23:59), got %q", cfg.GenerateTime)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}
