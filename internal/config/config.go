// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/autosave"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
)

// Journal drivers.
const (
	JournalNone   = "none"
	JournalSQLite = "sqlite"
	JournalRedis  = "redis"
)

// Policy presets.
const (
	PresetEvent      = "event"
	PresetNewsletter = "newsletter"
)

// Config holds every setting the server reads at startup.
type Config struct {
	GRPCAddr        string
	SpannerDatabase string

	PolicyFile   string
	PolicyPreset string

	SaveTimeout      time.Duration
	RetryMax         int
	RetryInitial     time.Duration
	RetryMaxInterval time.Duration
	SaveRate         float64
	SaveBurst        int

	JournalDriver string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JournalTTL    time.Duration

	OTelEnabled  bool
	OTelEndpoint string
	OTelInsecure bool
	ServiceName  string
	LogLevel     string
}

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		GRPCAddr:        getEnv("GRPC_ADDR", ":50051"),
		SpannerDatabase: getEnv("SPANNER_DATABASE", "projects/test-project/instances/emulator-instance/databases/test-db"),

		PolicyFile:   getEnv("POLICY_FILE", ""),
		PolicyPreset: getEnv("POLICY_PRESET", PresetEvent),

		SaveTimeout:      p.duration("SAVE_TIMEOUT", 10*time.Second),
		RetryMax:         p.int("RETRY_MAX", 0),
		RetryInitial:     p.duration("RETRY_INITIAL", 500*time.Millisecond),
		RetryMaxInterval: p.duration("RETRY_MAX_INTERVAL", 30*time.Second),
		SaveRate:         p.float("SAVE_RATE", 0),
		SaveBurst:        p.int("SAVE_BURST", 1),

		JournalDriver: strings.ToLower(getEnv("JOURNAL_DRIVER", JournalNone)),
		SQLitePath:    getEnv("SQLITE_PATH", "draft_journal.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),
		JournalTTL:    p.duration("JOURNAL_TTL", 7*24*time.Hour),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OTelInsecure: getEnvBool("OTEL_INSECURE", true),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "draft-autosave-service"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.JournalDriver {
	case JournalNone, JournalSQLite, JournalRedis:
	default:
		return fmt.Errorf("config: JOURNAL_DRIVER %q must be none, sqlite or redis", c.JournalDriver)
	}
	switch c.PolicyPreset {
	case PresetEvent, PresetNewsletter:
	default:
		return fmt.Errorf("config: POLICY_PRESET %q must be event or newsletter", c.PolicyPreset)
	}
	if c.RetryMax < 0 || c.SaveBurst < 0 || c.SaveRate < 0 || c.SaveTimeout < 0 {
		return fmt.Errorf("config: retry, rate and timeout settings must not be negative")
	}
	return nil
}

// Policies returns the field policy registry: POLICY_FILE when set, otherwise the preset.
func (c *Config) Policies() (*domain.PolicyRegistry, error) {
	if c.PolicyFile != "" {
		return domain.LoadPolicies(c.PolicyFile)
	}
	if c.PolicyPreset == PresetNewsletter {
		return domain.NewsletterPolicies(), nil
	}
	return domain.EventEditorPolicies(), nil
}

// Retry converts the retry settings into an autosave.RetryPolicy.
func (c *Config) Retry() autosave.RetryPolicy {
	return autosave.RetryPolicy{
		MaxRetries:          c.RetryMax,
		InitialInterval:     c.RetryInitial,
		MaxInterval:         c.RetryMaxInterval,
		Multiplier:          2,
		RandomizationFactor: 0.2,
	}
}

// SaveLimit returns the save rate as a limiter rate; zero disables limiting.
func (c *Config) SaveLimit() rate.Limit {
	return rate.Limit(c.SaveRate)
}

// SlogLevel maps LOG_LEVEL onto a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes"
}

// parser keeps the first parse error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: %s=%q: %w", key, raw, err)
	}
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return d
}

func (p *parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return f
}
