// Package config загружает конфигурацию из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`

	// --- Database ---
	// Если задан DATABASE_URL — он важнее отдельных DB_* переменных.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"ledger"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"ledger"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"2"`
	// Потолки на стороне сервера: зависший запрос или ожидание FOR UPDATE
	// не должны держать соединение пула бесконечно.
	DBStatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"5s"`
	DBLockTimeout      time.Duration `envconfig:"DB_LOCK_TIMEOUT" default:"2s"`
	DBAppName          string        `envconfig:"DB_APP_NAME" default:"ledger-bot"` // application_name в pg_stat_activity

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"32"`

	// --- Auth ---
	AuthMaxFailedAttempts int           `envconfig:"AUTH_MAX_FAILED_ATTEMPTS" default:"3"`
	AuthLockDuration      time.Duration `envconfig:"AUTH_LOCK_DURATION" default:"60s"`
	AuthSessionTTL        time.Duration `envconfig:"AUTH_SESSION_TTL" default:"15m"`
	Argon2MemoryKB        uint32        `envconfig:"ARGON2_MEMORY_KB" default:"65536"`
	Argon2Iterations      uint32        `envconfig:"ARGON2_ITERATIONS" default:"3"`
	Argon2Parallelism     uint8         `envconfig:"ARGON2_PARALLELISM" default:"2"`

	// --- Ledger ---
	// Валюта только для отображения, мультивалютности нет.
	LedgerCurrency     string `envconfig:"LEDGER_CURRENCY" default:"USD"`
	LedgerHistoryLimit int    `envconfig:"LEDGER_HISTORY_LIMIT" default:"20"`

	// --- Jobs ---
	JobsMaxBackground int           `envconfig:"JOBS_MAX_BACKGROUND" default:"4"`
	JobsTaskTimeout   time.Duration `envconfig:"JOBS_TASK_TIMEOUT" default:"30s"`
	JobsStatementCron string        `envconfig:"JOBS_STATEMENT_CRON" default:"0 3 1 * *"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"20"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureFakeTransferEnabled      bool `envconfig:"FEATURE_FAKE_TRANSFER_ENABLED" default:"true"`
	FeatureMonthlyStatementsEnabled bool `envconfig:"FEATURE_MONTHLY_STATEMENTS_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Validate проверяет значения, которые envconfig не может проверить сам.
// Токен Telegram здесь не обязателен: ledgerctl работает без бота.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.DBPassword == "" {
		return fmt.Errorf("не задан DATABASE_URL или DB_PASSWORD")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.DBStatementTimeout <= 0 || c.DBLockTimeout <= 0 {
		return fmt.Errorf("DB_STATEMENT_TIMEOUT и DB_LOCK_TIMEOUT должны быть > 0")
	}
	if c.DBLockTimeout > c.DBStatementTimeout {
		return fmt.Errorf("DB_LOCK_TIMEOUT не может быть больше DB_STATEMENT_TIMEOUT")
	}
	if c.AuthMaxFailedAttempts <= 0 {
		return fmt.Errorf("AUTH_MAX_FAILED_ATTEMPTS должен быть > 0")
	}
	if c.AuthLockDuration <= 0 {
		return fmt.Errorf("AUTH_LOCK_DURATION должен быть > 0")
	}
	if c.Argon2MemoryKB == 0 || c.Argon2Iterations == 0 || c.Argon2Parallelism == 0 {
		return fmt.Errorf("параметры ARGON2_* должны быть > 0")
	}
	if c.LedgerHistoryLimit <= 0 {
		return fmt.Errorf("LEDGER_HISTORY_LIMIT должен быть > 0")
	}
	if c.JobsMaxBackground <= 0 {
		return fmt.Errorf("JOBS_MAX_BACKGROUND должен быть > 0")
	}
	return nil
}

// ValidateBot дополнительно проверяет настройки, нужные только боту.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не задан")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
