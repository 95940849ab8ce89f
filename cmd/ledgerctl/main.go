// Package main — ledgerctl, консольная утилита обслуживания счёта:
// миграции, выписки, выгрузки, открытие счёта и проверка PIN.
// Работает с той же БД и теми же переменными окружения, что и бот.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/app"
	"serotonyl.ru/ledger-bot/internal/config"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&migrateCmd{}, "схема")
	commander.Register(&openCmd{}, "счета")
	commander.Register(&loginCmd{}, "счета")
	commander.Register(&hashPinCmd{}, "счета")
	commander.Register(&statementCmd{}, "отчёты")
	commander.Register(&exportCmd{}, "отчёты")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(int(commander.Execute(ctx)))
}

// loadConfig читает конфигурацию и выставляет уровень логов.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil && level < log.DebugLevel {
		log.SetLevel(level)
	}
	if os.Getenv("DB_APP_NAME") == "" {
		cfg.DBAppName = "ledgerctl"
	}
	return cfg, nil
}

// withCore подключается к БД, выполняет fn и закрывает пул.
func withCore(ctx context.Context, fn func(core *app.Core, cfg *config.Config) error) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Error("Не удалось загрузить конфигурацию")
		return subcommands.ExitFailure
	}

	core, err := app.NewCore(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("Не удалось подключиться к БД")
		return subcommands.ExitFailure
	}
	defer core.Close()

	if err := fn(core, cfg); err != nil {
		log.WithError(err).Error("Команда завершилась с ошибкой")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
