package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "NEWS_CURATOR_CONFIG"
	databasePathEnv = "NEWS_CURATOR_DB_PATH"
	logLevelEnv     = "NEWS_CURATOR_LOG_LEVEL"
	braveAPIKeyEnv  = "BRAVE_API_KEY"
	openAIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	openAIBaseEnv   = "OPENAI_BASE_URL"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
}

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	LLM       LLMConfig       `yaml:"llm"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Retention RetentionConfig `yaml:"retention"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// SearchConfig selects and tunes the search provider.
type SearchConfig struct {
	Provider  string `yaml:"provider" validate:"oneof=rss brave"`
	APIKey    string `yaml:"apiKey"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	Locale    string `yaml:"locale"`
	Freshness string `yaml:"freshness" validate:"omitempty,duration"`
	Limit     int    `yaml:"limit" validate:"gte=1,lte=100"`
	Timeout   string `yaml:"timeout" validate:"omitempty,duration"`
}

// GetFreshness returns how far back searches look.
func (s SearchConfig) GetFreshness() time.Duration {
	return durationOr(s.Freshness, 24*time.Hour)
}

// GetTimeout returns the per-search HTTP timeout.
func (s SearchConfig) GetTimeout() time.Duration {
	return durationOr(s.Timeout, 15*time.Second)
}

// LLMConfig defines how to contact the chat completion API.
// Provider "auto" uses the model when an API key is present.
type LLMConfig struct {
	Provider string `yaml:"provider" validate:"oneof=auto openai none"`
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"baseUrl" validate:"omitempty,url"`
	Timeout  string `yaml:"timeout" validate:"omitempty,duration"`
}

// Enabled reports whether the language-model collaborators should be wired.
func (l LLMConfig) Enabled() bool {
	switch l.Provider {
	case "openai":
		return true
	case "none":
		return false
	default:
		return l.APIKey != ""
	}
}

// GetTimeout returns the per-completion timeout.
func (l LLMConfig) GetTimeout() time.Duration {
	return durationOr(l.Timeout, 60*time.Second)
}

// FetchConfig tunes full-content fetching. Zero values keep the fetcher defaults.
type FetchConfig struct {
	UserAgent      string `yaml:"userAgent"`
	MaxPerCluster  int    `yaml:"maxPerCluster" validate:"gte=0,lte=20"`
	MaxConcurrent  int    `yaml:"maxConcurrent" validate:"gte=0,lte=64"`
	MaxFailures    int    `yaml:"maxFailures" validate:"gte=0"`
	DefaultGap     string `yaml:"defaultGap" validate:"omitempty,duration"`
	RequestTimeout string `yaml:"requestTimeout" validate:"omitempty,duration"`
	ArticleTimeout string `yaml:"articleTimeout" validate:"omitempty,duration"`
	BatchCeiling   string `yaml:"batchCeiling" validate:"omitempty,duration"`
	RobotsTimeout  string `yaml:"robotsTimeout" validate:"omitempty,duration"`
}

// Durations resolves the duration strings; empty strings yield zero.
func (f FetchConfig) Durations() (gap, request, article, ceiling, robots time.Duration) {
	return durationOr(f.DefaultGap, 0),
		durationOr(f.RequestTimeout, 0),
		durationOr(f.ArticleTimeout, 0),
		durationOr(f.BatchCeiling, 0),
		durationOr(f.RobotsTimeout, 0)
}

// SchedulerConfig defines how often `watch` runs the pipeline.
type SchedulerConfig struct {
	Interval string `yaml:"interval" validate:"omitempty,duration"`
}

// GetInterval returns the pause between scheduled runs.
func (s SchedulerConfig) GetInterval() time.Duration {
	return durationOr(s.Interval, time.Hour)
}

// RetentionConfig bounds how long briefings are kept. Zero keeps them forever.
type RetentionConfig struct {
	BriefingDays int `yaml:"briefingDays" validate:"gte=0"`
}

// Window converts the retention days into a duration.
func (r RetentionConfig) Window() time.Duration {
	return time.Duration(r.BriefingDays) * 24 * time.Hour
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Load reads YAML configuration (if present) over the defaults and applies environment overrides.
// path wins over NEWS_CURATOR_CONFIG. A configured file that cannot be read or parsed is an error.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg, nil
}

// Validate checks field constraints and provider credentials.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}

	if c.Search.Provider == "brave" && c.Search.APIKey == "" {
		return fmt.Errorf("config: search provider brave needs search.apiKey or %s", braveAPIKeyEnv)
	}
	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		return fmt.Errorf("config: llm provider openai needs llm.apiKey or %s", openAIKeyEnv)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(braveAPIKeyEnv); v != "" {
		c.Search.APIKey = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(openAIBaseEnv); v != "" {
		c.LLM.BaseURL = v
	}
}

func (c *Config) normalize() {
	c.Search.Provider = strings.ToLower(strings.TrimSpace(c.Search.Provider))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.LLM.Provider == "" {
		c.LLM.Provider = "auto"
	}
}

func durationOr(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "newscurator.db"},
		Search: SearchConfig{
			Provider:  "rss",
			Locale:    "en-US",
			Freshness: "24h",
			Limit:     10,
			Timeout:   "15s",
		},
		LLM: LLMConfig{
			Provider: "auto",
			Model:    "gpt-4o-mini",
			Timeout:  "60s",
		},
		Scheduler: SchedulerConfig{Interval: "1h"},
		Retention: RetentionConfig{BriefingDays: 30},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}
