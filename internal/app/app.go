// Package app инициализирует все компоненты приложения.
// app.go — точка сборки бота: миграции, ядро учёта, обработчики,
// фоновые задачи и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/bot"
	"serotonyl.ru/ledger-bot/internal/config"
	"serotonyl.ru/ledger-bot/internal/db/postgres"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
	"serotonyl.ru/ledger-bot/internal/features/export"
	"serotonyl.ru/ledger-bot/internal/features/ledger"
	"serotonyl.ru/ledger-bot/internal/features/statements"
	"serotonyl.ru/ledger-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	*Core

	Bot        *bot.Bot
	BotAPI     *telego.Bot
	Sessions   *accounts.Sessions
	Dispatcher *jobs.Dispatcher
	Scheduler  *jobs.Scheduler
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Миграции ===
	if err := postgres.RunMigrations(cfg.DatabaseDSN()); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Ядро учёта ===
	core, err := NewCore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// === 3. Telegram Bot API ===
	var opts []telego.BotOption
	if cfg.AppEnv == "development" {
		opts = append(opts, telego.WithDefaultDebugLogger())
	}
	botAPI, err := telego.NewBot(cfg.TelegramBotToken, opts...)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	me, err := botAPI.GetMe(ctx)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("ошибка авторизации бота: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)

	// === 4. Сессии и фоновые задачи ===
	sessions := accounts.NewSessions(cfg.AuthSessionTTL)
	dispatcher := jobs.NewDispatcher(cfg.JobsMaxBackground, cfg.JobsTaskTimeout)
	notifier := bot.NewNotifier(botAPI)

	// === 5. Обработчики ===
	handlers := bot.Handlers{
		Accounts: accounts.NewHandler(core.Accounts, sessions, botAPI, cfg.LedgerCurrency),
		Ledger: ledger.NewHandler(core.Ledger, core.AccountRepo, botAPI, ledger.HandlerOptions{
			Currency:            cfg.LedgerCurrency,
			HistoryLimit:        cfg.LedgerHistoryLimit,
			Location:            core.Location,
			FakeTransferEnabled: cfg.FeatureFakeTransferEnabled,
		}),
		Statements: statements.NewHandler(core.Statements, dispatcher, notifier, botAPI, cfg.LedgerCurrency),
		Export:     export.NewHandler(core.Export, dispatcher, notifier, botAPI),
	}

	// === 6. Собираем бота ===
	b := bot.New(botAPI, cfg, sessions, handlers)

	// === 7. Планировщик задач ===
	schedule := jobs.ScheduleConfig{Location: core.Location}
	if cfg.FeatureMonthlyStatementsEnabled {
		schedule.StatementsSpec = cfg.JobsStatementCron
	}
	scheduler := jobs.NewScheduler(schedule, core.Statements, sessions)

	return &App{
		Core:       core,
		Bot:        b,
		BotAPI:     botAPI,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Scheduler:  scheduler,
	}, nil
}
