package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dontdude/tiobot/internal/domain"
)

type Config struct {
	// Server
	Port          string
	CommandPrefix string

	// Redis
	RedisAddr      string
	Stream         string
	Group          string
	ResultsChannel string

	// Worker
	WorkerConcurrency int
	JobTimeout        time.Duration
	RecoveryInterval  time.Duration
	RecoveryMaxAge    time.Duration

	// Provider
	RunURL          string
	LanguagesURL    string
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration
	MaxFetchBytes   int64

	// Paste services
	PastePrimaryURL  string
	PasteFallbackURL string

	// Output budget
	MaxOutputChars int
	MaxOutputLines int
	PreviewLines   int

	// Cooldown
	RateLimitCalls  int
	RateLimitWindow time.Duration

	// ResourcesDir optionally overrides the embedded alias/wrapping tables.
	ResourcesDir string

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		CommandPrefix:     getEnv("COMMAND_PREFIX", "!"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		Stream:            getEnv("EVAL_STREAM", "tiobot:jobs"),
		Group:             getEnv("EVAL_GROUP", "tiobot:workers"),
		ResultsChannel:    getEnv("EVAL_RESULTS_CHANNEL", "tiobot:results"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		JobTimeout:        getEnvDuration("JOB_TIMEOUT", 2*time.Minute),
		RecoveryInterval:  getEnvDuration("RECOVERY_INTERVAL", 30*time.Second),
		RecoveryMaxAge:    getEnvDuration("RECOVERY_MAX_AGE", 5*time.Minute),
		RunURL:            getEnv("TIO_RUN_URL", "https://tio.run/cgi-bin/run/api/"),
		LanguagesURL:      getEnv("TIO_LANGUAGES_URL", "https://tio.run/languages.json"),
		RefreshInterval:   getEnvDuration("CATALOG_REFRESH_INTERVAL", 5*time.Hour),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		MaxFetchBytes:     int64(getEnvInt("MAX_FETCH_BYTES", 1<<20)),
		PastePrimaryURL:   getEnv("PASTE_PRIMARY_URL", "https://hastebin.com"),
		PasteFallbackURL:  getEnv("PASTE_FALLBACK_URL", "https://bin.drlazor.be"),
		MaxOutputChars:    getEnvInt("MAX_OUTPUT_CHARS", 1990),
		MaxOutputLines:    getEnvInt("MAX_OUTPUT_LINES", 40),
		PreviewLines:      getEnvInt("PREVIEW_LINES", 10),
		RateLimitCalls:    getEnvInt("RATE_LIMIT_CALLS", 3),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 10*time.Second),
		ResourcesDir:      getEnv("RESOURCES_DIR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	var problems []string

	if c.RunURL == "" {
		problems = append(problems, "TIO_RUN_URL is empty")
	}
	if c.LanguagesURL == "" {
		problems = append(problems, "TIO_LANGUAGES_URL is empty")
	}
	if c.PastePrimaryURL == "" && c.PasteFallbackURL == "" {
		problems = append(problems, "no paste service configured")
	}
	if c.WorkerConcurrency <= 0 {
		problems = append(problems, "WORKER_CONCURRENCY must be > 0")
	}
	if c.RefreshInterval <= 0 {
		problems = append(problems, "CATALOG_REFRESH_INTERVAL must be > 0")
	}
	if c.MaxOutputChars <= 0 || c.MaxOutputLines <= 0 {
		problems = append(problems, "output budget must be > 0")
	}
	if c.PreviewLines < 0 {
		problems = append(problems, "PREVIEW_LINES must be >= 0")
	}
	if c.JobTimeout <= 0 {
		problems = append(problems, "JOB_TIMEOUT must be > 0")
	} else if c.StartDeadline() <= 0 {
		problems = append(problems, fmt.Sprintf("RECOVERY_MAX_AGE must exceed JOB_TIMEOUT by more than %s", RecoveryMargin))
	}
	if c.RateLimitCalls <= 0 || c.RateLimitWindow <= 0 {
		problems = append(problems, "rate limit must be > 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// RecoveryMargin is the time left between the latest possible end of a job and the moment
// recovery may claim its queue entry, covering the broadcast and ack.
const RecoveryMargin = 30 * time.Second

// StartDeadline is how long after delivery a worker may still start a job. A job started
// later could still be running when recovery claims its entry, so it is left to recovery.
func (c *Config) StartDeadline() time.Duration {
	return c.RecoveryMaxAge - c.JobTimeout - RecoveryMargin
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
