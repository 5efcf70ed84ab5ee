package config

import "time"

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	PostgresDSN       string        `env:"POSTGRES_DSN"`
	MaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	MinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// SQLiteConfig holds the local single-file store settings.
type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"./data/moderator.db"`
}

// TelegramBotConfig holds Telegram bot settings.
type TelegramBotConfig struct {
	Token    string  `env:"BOT_TOKEN,required"`
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
	// ReviewChatID receives review requests; zero logs them instead.
	ReviewChatID int64 `env:"REVIEW_CHAT_ID"`
	// GatewayRPS bounds outgoing moderation calls.
	GatewayRPS   float64       `env:"GATEWAY_RPS" envDefault:"20"`
	PollTimeout  int           `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"60"`
	ChatQueueLen int           `env:"CHAT_QUEUE_LEN" envDefault:"256"`
	ChatIdleTTL  time.Duration `env:"CHAT_WORKER_IDLE_TTL" envDefault:"10m"`
}

// FilterConfig holds the content gate lists.
type FilterConfig struct {
	BlocklistPhrases   []string `env:"BLOCKLIST_PHRASES" envSeparator:","`
	WhitelistedDomains []string `env:"WHITELISTED_DOMAINS" envSeparator:","`
	BlockAllLinks      bool     `env:"BLOCK_ALL_LINKS" envDefault:"false"`
}

// EscalationConfig holds the warn -> mute -> ban ladder and ledger read limits.
type EscalationConfig struct {
	WarnsBeforeMute    int `env:"WARNS_BEFORE_MUTE" envDefault:"3"`
	MutesBeforeBan     int `env:"MUTES_BEFORE_BAN" envDefault:"2"`
	DefaultMuteMinutes int `env:"DEFAULT_MUTE_MINUTES" envDefault:"60"`
	HistoryLimit       int `env:"HISTORY_LIMIT" envDefault:"10"`
	StatsLimit         int `env:"STATS_LIMIT" envDefault:"100"`
}

// BufferConfig holds chat buffer sizing, review thresholds and timers.
type BufferConfig struct {
	MessageMaxChars       int           `env:"MESSAGE_MAX_CHARS" envDefault:"4000"`
	DrainMaxTotalKB       int           `env:"DRAIN_MAX_TOTAL_KB" envDefault:"64"`
	DrainMaxMessageBytes  int           `env:"DRAIN_MAX_MESSAGE_BYTES" envDefault:"2000"`
	SizeStepKB            int           `env:"SIZE_STEP_KB" envDefault:"32"`
	TimeStep              time.Duration `env:"TIME_STEP" envDefault:"1h"`
	ThresholdTickInterval time.Duration `env:"THRESHOLD_TICK_INTERVAL" envDefault:"30s"`
	PersistFlushInterval  time.Duration `env:"PERSIST_FLUSH_INTERVAL" envDefault:"10s"`
	ShutdownFlushTimeout  time.Duration `env:"SHUTDOWN_FLUSH_TIMEOUT" envDefault:"15s"`
	// Retention drops buffered messages nobody drained; zero keeps them forever.
	Retention time.Duration `env:"BUFFER_RETENTION" envDefault:"168h"`
}
