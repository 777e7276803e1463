// Package config loads and validates the gopost configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gopost/gopost/internal/domain"
)

const (
	defaultServerAddress    = ":8080"
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultMonitorInterval  = 10 * time.Minute
	defaultDispatchInterval = 1 * time.Minute
	defaultMonthlyLimit     = 500
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultSearchTimeout    = 15 * time.Second
	defaultDedupCacheTTL    = 30 * 24 * time.Hour
)

type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Twitter   TwitterConfig   `yaml:"twitter"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Search    SearchConfig    `yaml:"search"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Topics    []TopicSeed     `yaml:"topics"` // Optional: topics seeded at startup
}

type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // TTL for dedup cache keys
}

type TwitterConfig struct {
	APIBaseURL    string        `yaml:"api_base_url"`    // Default: https://api.twitter.com
	UploadBaseURL string        `yaml:"upload_base_url"` // Default: https://upload.twitter.com
	BearerToken   string        `yaml:"bearer_token"`
	RateLimitRPS  float64       `yaml:"rate_limit_rps"`
	Timeout       time.Duration `yaml:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type SearchConfig struct {
	BaseURL string        `yaml:"base_url"` // SearxNG-compatible JSON search endpoint
	Timeout time.Duration `yaml:"timeout"`
}

type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"` // How often the monitoring cycle ticks
}

type SchedulerConfig struct {
	Interval     time.Duration `yaml:"interval"`      // How often the dispatch check ticks
	MonthlyLimit int           `yaml:"monthly_limit"` // Monthly sent-post quota
}

// TopicSeed is a monitored topic declared in the config file. Seeds are
// inserted at startup; an existing query+kind pair is left untouched.
type TopicSeed struct {
	Query           string `yaml:"query"`
	SourceKind      string `yaml:"source_kind"`
	IntervalMinutes int    `yaml:"interval_minutes"`
}

// Validate checks the configuration and returns an error if it is unusable.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Twitter.BearerToken == "" {
		return errors.New("twitter.bearer_token is required")
	}
	if c.OpenAI.APIKey == "" {
		return errors.New("openai.api_key is required")
	}
	if c.Scheduler.MonthlyLimit <= 0 {
		return fmt.Errorf("scheduler.monthly_limit must be positive, got %d", c.Scheduler.MonthlyLimit)
	}
	for i, seed := range c.Topics {
		if seed.Query == "" {
			return fmt.Errorf("topics[%d].query is required", i)
		}
		if !domain.SourceKind(seed.SourceKind).Valid() {
			return fmt.Errorf("topics[%d].source_kind %q is not one of web_search, social_search, specific_url", i, seed.SourceKind)
		}
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = defaultDedupCacheTTL
	}
	if cfg.Twitter.APIBaseURL == "" {
		cfg.Twitter.APIBaseURL = "https://api.twitter.com"
	}
	if cfg.Twitter.UploadBaseURL == "" {
		cfg.Twitter.UploadBaseURL = "https://upload.twitter.com"
	}
	if cfg.Twitter.RateLimitRPS == 0 {
		cfg.Twitter.RateLimitRPS = 1
	}
	if cfg.Twitter.Timeout == 0 {
		cfg.Twitter.Timeout = 30 * time.Second
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = defaultOpenAIModel
	}
	if cfg.OpenAI.Timeout == 0 {
		cfg.OpenAI.Timeout = 30 * time.Second
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = defaultSearchTimeout
	}
	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = defaultMonitorInterval
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = defaultDispatchInterval
	}
	if cfg.Scheduler.MonthlyLimit == 0 {
		cfg.Scheduler.MonthlyLimit = defaultMonthlyLimit
	}
}

func overrideWithEnvVars(cfg *Config) {
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.DBName = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TWITTER_BEARER_TOKEN"); v != "" {
		cfg.Twitter.BearerToken = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("SEARCH_BASE_URL"); v != "" {
		cfg.Search.BaseURL = v
	}
	if v := os.Getenv("APP_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
	if v := os.Getenv("GOPOST_PORT"); v != "" {
		cfg.Server.Address = ":" + v
	}
}

// Load reads the YAML config at path, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// parseBool parses common boolean string representations; "true", "1" and
// "yes" (case-insensitive) are true, anything else false.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
