package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/app"
	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/config"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
)

// openCmd открывает счёт.
type openCmd struct {
	username string
	pin      string
	initial  string
}

func (*openCmd) Name() string     { return "open" }
func (*openCmd) Synopsis() string { return "открыть счёт" }
func (*openCmd) Usage() string {
	return `ledgerctl open -user <имя> -pin <PIN> [-initial <сумма>]
`
}

func (c *openCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "user", "", "имя пользователя")
	f.StringVar(&c.pin, "pin", "", "PIN, 4-8 цифр")
	f.StringVar(&c.initial, "initial", "0", "начальный депозит")
}

func (c *openCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	initial := decimal.Zero
	if c.initial != "0" && c.initial != "" {
		amount, err := common.ParseAmount(c.initial)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
			return subcommands.ExitUsageError
		}
		initial = amount
	}

	return withCore(ctx, func(core *app.Core, cfg *config.Config) error {
		id, err := core.Accounts.Register(ctx, c.username, c.pin, initial)
		if err != nil {
			return err
		}
		fmt.Printf("Счёт %s открыт (id %d), баланс %s\n", c.username, id, common.FormatMoney(initial, cfg.LedgerCurrency))
		return nil
	})
}

// loginCmd проверяет PIN так же, как бот, с каналом cli.
// Неудачные попытки учитываются в блокировке.
type loginCmd struct {
	username string
	pin      string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "проверить имя и PIN" }
func (*loginCmd) Usage() string {
	return `ledgerctl login -user <имя> -pin <PIN>

  Попытка записывается в журнал входов с каналом cli.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "user", "", "имя пользователя")
	f.StringVar(&c.pin, "pin", "", "PIN")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withCore(ctx, func(core *app.Core, cfg *config.Config) error {
		res, err := core.Accounts.Login(ctx, c.username, c.pin, accounts.ChannelCLI)
		if err != nil {
			return err
		}
		if res.Outcome == accounts.OutcomeSuccess {
			fmt.Printf("OK: %s, баланс %s\n", res.Account.Username, common.FormatMoney(res.Account.Balance, cfg.LedgerCurrency))
			return nil
		}
		return res.Err()
	})
}

// hashPinCmd печатает соль и хеш PIN без обращения к БД.
type hashPinCmd struct {
	pin  string
	salt string
}

func (*hashPinCmd) Name() string     { return "hash-pin" }
func (*hashPinCmd) Synopsis() string { return "вычислить Argon2id-хеш PIN" }
func (*hashPinCmd) Usage() string {
	return `ledgerctl hash-pin -pin <PIN> [-salt <16 hex>]

  Без -salt генерирует новую соль.
`
}

func (c *hashPinCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.pin, "pin", "", "PIN")
	f.StringVar(&c.salt, "salt", "", "соль, 16 hex-символов")
}

func (c *hashPinCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := accounts.ValidatePin(c.pin); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		return subcommands.ExitUsageError
	}

	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Error("Не удалось загрузить конфигурацию")
		return subcommands.ExitFailure
	}

	salt := c.salt
	if salt == "" {
		if salt, err = accounts.GenerateSalt(); err != nil {
			log.WithError(err).Error("Не удалось сгенерировать соль")
			return subcommands.ExitFailure
		}
	}

	hasher := accounts.NewHasher(accounts.HashParams{
		Memory:      cfg.Argon2MemoryKB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})
	fmt.Printf("salt: %s\nhash: %s\n", salt, hasher.Derive(c.pin, salt))
	return subcommands.ExitSuccess
}
