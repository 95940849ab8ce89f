package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/db/postgres"
)

type migrateCmd struct {
	down int
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "применить или откатить миграции схемы" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate [-down <n>]

  Без флагов применяет все миграции. -down откатывает n последних.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.down, "down", 0, "сколько последних миграций откатить")
}

func (c *migrateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.down < 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Error("Не удалось загрузить конфигурацию")
		return subcommands.ExitFailure
	}

	if c.down > 0 {
		err = postgres.RollbackMigrations(cfg.DatabaseDSN(), c.down)
	} else {
		err = postgres.RunMigrations(cfg.DatabaseDSN())
	}
	if err != nil {
		log.WithError(err).Error("Ошибка миграций")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
