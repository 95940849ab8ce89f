// Package postgres управляет подключением к базе данных PostgreSQL.
//
// Одна атомарная операция учёта = одно соединение из пула на время транзакции,
// поэтому на каждом соединении стоят серверные таймауты: зависший запрос или
// долгое ожидание блокировки строки счёта возвращают ошибку, а не занимают пул.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/config"
)

// NewPool создаёт пул соединений и проверяет, что база доступна.
//
// Пример:
//
//	pool, err := postgres.NewPool(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	log.WithFields(log.Fields{
		"max_conns":         poolConfig.MaxConns,
		"statement_timeout": cfg.DBStatementTimeout,
		"lock_timeout":      cfg.DBLockTimeout,
	}).Info("Подключение к PostgreSQL установлено")
	return pool, nil
}

// PoolConfig собирает настройки пула из конфигурации.
//
// Параметры сессии на каждом соединении:
//   - statement_timeout: потолок любого запроса
//   - lock_timeout: сколько ждать SELECT ... FOR UPDATE по счёту
//   - idle_in_transaction_session_timeout: брошенная транзакция не держит блокировки
//   - application_name: чтобы соединения бота и ledgerctl различались в pg_stat_activity
//   - TimeZone=UTC: created_at и границы месяцев выписок считаются в UTC
func PoolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	params := poolConfig.ConnConfig.RuntimeParams
	params["statement_timeout"] = millis(cfg.DBStatementTimeout)
	params["lock_timeout"] = millis(cfg.DBLockTimeout)
	params["idle_in_transaction_session_timeout"] = millis(2 * cfg.DBStatementTimeout)
	params["TimeZone"] = "UTC"
	if cfg.DBAppName != "" {
		params["application_name"] = cfg.DBAppName
	}
	return poolConfig, nil
}

// millis — значение таймаута в формате GUC (целые миллисекунды).
func millis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
