package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

const bytesPerKB = 1024

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	errUnknownDriver  = errors.New("unknown storage driver")
	errMissingDSN     = errors.New("POSTGRES_DSN is required for the postgres driver")
	errMissingPath    = errors.New("SQLITE_PATH is required for the sqlite driver")
	errNonPositive    = errors.New("must be positive")
	errNegativeSizing = errors.New("must not be negative")
	errSubSecondStep  = errors.New("must be zero or at least one second")
)

type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"local"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	HealthPort    int    `env:"HEALTH_PORT" envDefault:"8080"`
	MCPEnabled    bool   `env:"MCP_ENABLED" envDefault:"true"`

	Database   DatabaseConfig
	SQLite     SQLiteConfig
	Telegram   TelegramBotConfig
	Filter     FilterConfig
	Escalation EscalationConfig
	Buffer     BufferConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	cfg.Filter.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			return errMissingDSN
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return errMissingPath
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, c.StorageDriver)
	}

	positive := map[string]int{
		"WARNS_BEFORE_MUTE":    c.Escalation.WarnsBeforeMute,
		"MUTES_BEFORE_BAN":     c.Escalation.MutesBeforeBan,
		"DEFAULT_MUTE_MINUTES": c.Escalation.DefaultMuteMinutes,
		"HISTORY_LIMIT":        c.Escalation.HistoryLimit,
		"STATS_LIMIT":          c.Escalation.StatsLimit,
	}

	for key, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s %w", key, errNonPositive)
		}
	}

	durations := map[string]time.Duration{
		"THRESHOLD_TICK_INTERVAL": c.Buffer.ThresholdTickInterval,
		"PERSIST_FLUSH_INTERVAL":  c.Buffer.PersistFlushInterval,
		"SHUTDOWN_FLUSH_TIMEOUT":  c.Buffer.ShutdownFlushTimeout,
		"CHAT_WORKER_IDLE_TTL":    c.Telegram.ChatIdleTTL,
	}

	for key, v := range durations {
		if v <= 0 {
			return fmt.Errorf("%s %w", key, errNonPositive)
		}
	}

	nonNegative := map[string]int{
		"MESSAGE_MAX_CHARS":       c.Buffer.MessageMaxChars,
		"DRAIN_MAX_TOTAL_KB":      c.Buffer.DrainMaxTotalKB,
		"DRAIN_MAX_MESSAGE_BYTES": c.Buffer.DrainMaxMessageBytes,
		"SIZE_STEP_KB":            c.Buffer.SizeStepKB,
	}

	for key, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("%s %w", key, errNegativeSizing)
		}
	}

	// Zero disables the time trigger, like SIZE_STEP_KB for the size trigger.
	if c.Buffer.TimeStep < 0 {
		return fmt.Errorf("TIME_STEP %w", errNegativeSizing)
	}

	// Review windows are counted in whole seconds of message time.
	if c.Buffer.TimeStep > 0 && c.Buffer.TimeStep < time.Second {
		return fmt.Errorf("TIME_STEP %w", errSubSecondStep)
	}

	return nil
}

// IsLocal reports whether the process runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}

// ContentFilter returns the content gate configuration.
func (c *Config) ContentFilter() domain.ContentFilterConfig {
	return domain.ContentFilterConfig{
		BlocklistPhrases:   c.Filter.BlocklistPhrases,
		WhitelistedDomains: c.Filter.WhitelistedDomains,
		BlockAllLinks:      c.Filter.BlockAllLinks,
	}
}

// EscalationPolicy returns the warn -> mute -> ban thresholds.
func (c *Config) EscalationPolicy() domain.EscalationPolicy {
	return domain.EscalationPolicy{
		WarnsBeforeMute: c.Escalation.WarnsBeforeMute,
		MutesBeforeBan:  c.Escalation.MutesBeforeBan,
	}
}

// DefaultMute is the mute length used when a call names none.
func (c *Config) DefaultMute() time.Duration {
	return time.Duration(c.Escalation.DefaultMuteMinutes) * time.Minute
}

// DrainMaxTotalBytes is the byte budget of a single drain.
func (c *Config) DrainMaxTotalBytes() int {
	return c.Buffer.DrainMaxTotalKB * bytesPerKB
}

// SizeStepBytes is the size threshold step in bytes.
func (c *Config) SizeStepBytes() int {
	return c.Buffer.SizeStepKB * bytesPerKB
}

func (f *FilterConfig) normalize() {
	f.BlocklistPhrases = compact(f.BlocklistPhrases)
	f.WhitelistedDomains = compact(f.WhitelistedDomains)

	for i, d := range f.WhitelistedDomains {
		f.WhitelistedDomains[i] = strings.ToLower(strings.TrimPrefix(d, "."))
	}
}

func compact(values []string) []string {
	out := values[:0]

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}
