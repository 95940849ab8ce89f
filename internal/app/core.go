package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/config"
	"serotonyl.ru/ledger-bot/internal/db/postgres"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
	"serotonyl.ru/ledger-bot/internal/features/export"
	"serotonyl.ru/ledger-bot/internal/features/ledger"
	"serotonyl.ru/ledger-bot/internal/features/statements"
)

// Core — ядро учёта без Telegram: БД, репозитории и сервисы.
// Используется и ботом, и ledgerctl.
type Core struct {
	DB       *pgxpool.Pool
	Location *time.Location

	AccountRepo *accounts.Repository
	Accounts    *accounts.Service
	Ledger      *ledger.Service
	Statements  *statements.Service
	Export      *export.Service
}

// NewCore подключается к БД и собирает сервисы.
// Миграции не применяет: бот делает это сам, ledgerctl — командой migrate.
func NewCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	loc := common.LoadLocation(cfg.AppTimezone)

	// === 2. Репозитории ===
	accountRepo := accounts.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	statementRepo := statements.NewRepository(pool)

	// === 3. Сервисы ===
	ledgerService := ledger.NewService(ledgerRepo)
	hasher := accounts.NewHasher(accounts.HashParams{
		Memory:      cfg.Argon2MemoryKB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})
	accountService := accounts.NewService(accountRepo, ledgerService, hasher, accounts.Policy{
		MaxFailedAttempts: cfg.AuthMaxFailedAttempts,
		LockDuration:      cfg.AuthLockDuration,
	})

	return &Core{
		DB:          pool,
		Location:    loc,
		AccountRepo: accountRepo,
		Accounts:    accountService,
		Ledger:      ledgerService,
		Statements:  statements.NewService(ledgerRepo, accountRepo, statementRepo, loc),
		Export:      export.NewService(ledgerService, accountRepo, loc),
	}, nil
}

// Close закрывает пул соединений.
func (c *Core) Close() {
	c.DB.Close()
}
