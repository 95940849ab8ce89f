package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/subcommands"

	"serotonyl.ru/ledger-bot/internal/app"
	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/config"
	"serotonyl.ru/ledger-bot/internal/features/statements"
)

// statementCmd формирует выписку по счёту или по всем счетам.
type statementCmd struct {
	username string
	month    string
	all      bool
}

func (*statementCmd) Name() string     { return "statement" }
func (*statementCmd) Synopsis() string { return "сформировать месячную выписку" }
func (*statementCmd) Usage() string {
	return `ledgerctl statement (-user <имя> | -all) [-month YYYY-MM]

  Без -month берётся текущий месяц. Выписка сохраняется в БД
  и печатается (для -user).
`
}

func (c *statementCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "user", "", "имя пользователя")
	f.StringVar(&c.month, "month", "", "месяц YYYY-MM")
	f.BoolVar(&c.all, "all", false, "по всем счетам")
}

func (c *statementCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.username == "") == !c.all {
		f.Usage()
		return subcommands.ExitUsageError
	}

	var (
		year  int
		month time.Month
	)
	if c.month != "" {
		var err error
		if year, month, err = common.ParseYearMonth(c.month); err != nil {
			fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	return withCore(ctx, func(core *app.Core, cfg *config.Config) error {
		if c.month == "" {
			year, month = core.Statements.CurrentMonth()
		}

		if c.all {
			n, err := core.Statements.GenerateAll(ctx, year, month)
			if err != nil {
				return err
			}
			fmt.Printf("Сформировано выписок за %s: %d\n", common.FormatYearMonth(year, month), n)
			return nil
		}

		acc, err := core.AccountRepo.FindByUsername(ctx, c.username)
		if err != nil {
			return err
		}
		st, err := core.Statements.Generate(ctx, acc.ID, year, month)
		if err != nil {
			return err
		}
		fmt.Println(statements.FormatStatement(st, cfg.LedgerCurrency))
		return nil
	})
}

// exportCmd пишет history_<имя>.csv и .json в каталог.
type exportCmd struct {
	username string
	dir      string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "выгрузить историю счёта в CSV и JSON" }
func (*exportCmd) Usage() string {
	return `ledgerctl export -user <имя> [-dir <каталог>]
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "user", "", "имя пользователя")
	f.StringVar(&c.dir, "dir", ".", "каталог для файлов")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	return withCore(ctx, func(core *app.Core, _ *config.Config) error {
		acc, err := core.AccountRepo.FindByUsername(ctx, c.username)
		if err != nil {
			return err
		}
		files, err := core.Export.Export(ctx, acc.ID)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return err
		}
		for _, file := range files {
			p := filepath.Join(c.dir, file.Name)
			if err := os.WriteFile(p, file.Data, 0o600); err != nil {
				return fmt.Errorf("запись %s: %w", p, err)
			}
			fmt.Println(p)
		}
		return nil
	})
}
