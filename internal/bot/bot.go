// Package bot содержит главный модуль бота — приём апдейтов, фильтрацию и маршрутизацию.
// bot.go читает апдейты через long polling и раздаёт команды обработчикам фич.
package bot

import (
	"context"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/bot/filters"
	"serotonyl.ru/ledger-bot/internal/bot/middleware"
	"serotonyl.ru/ledger-bot/internal/config"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
	"serotonyl.ru/ledger-bot/internal/features/export"
	"serotonyl.ru/ledger-bot/internal/features/ledger"
	"serotonyl.ru/ledger-bot/internal/features/statements"
)

// pollTimeoutSeconds — таймаут long polling getUpdates.
const pollTimeoutSeconds = 30

const helpText = `🏦 Счёт в боте

/register <имя> <PIN> [сумма] — открыть счёт
/login <имя> <PIN> — войти
/logout — выйти

/balance — баланс
/deposit <сумма> — пополнить
/withdraw <сумма> — снять
/transfer <имя> <сумма> — перевести
/fake <имя> <сумма> — симуляция перевода
/history — последние операции
/statement [YYYY-MM] — выписка за месяц
/export — история в CSV и JSON

Сообщения с PIN бот удаляет сразу.`

// Handlers — обработчики фич, которые подключает бот.
type Handlers struct {
	Accounts   *accounts.Handler
	Ledger     *ledger.Handler
	Statements *statements.Handler
	Export     *export.Handler
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *telego.Bot
	cfg *config.Config

	sessions    *accounts.Sessions
	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	handlers    Handlers

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(api *telego.Bot, cfg *config.Config, sessions *accounts.Sessions, handlers Handlers) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 32
	}

	return &Bot{
		api:         api,
		cfg:         cfg,
		sessions:    sessions,
		chatFilter:  filters.NewChatFilter(api),
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		handlers:    handlers,
		parser:      NewCommandParser(),
		inflight:    make(chan struct{}, maxInFlight),
	}
}

// Start читает апдейты до отмены ctx, затем ждёт обработчики в полёте.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: pollTimeoutSeconds,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  pollTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			select {
			case b.inflight <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			b.wg.Add(1)
			go func(upd telego.Update) {
				defer b.wg.Done()
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// Close освобождает ресурсы бота.
func (b *Bot) Close() {
	b.rateLimiter.Close()
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	message := update.Message
	if message == nil || message.Text == "" {
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		b.sendMessage(ctx, message.Chat.ID, "⏱ Слишком много команд, подождите немного")
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		b.sendMessage(ctx, message.Chat.ID, "Не понимаю. Список команд: /help")
		return
	}

	b.routeCommand(ctx, message, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
// Команды работы со счётом требуют открытой сессии.
func (b *Bot) routeCommand(ctx context.Context, message *telego.Message, cmd string, args []string) {
	chatID := message.Chat.ID
	userID := message.From.ID

	log.WithFields(log.Fields{
		"cmd":     cmd,
		"user_id": userID,
	}).Debug("routing command")

	switch cmd {
	case CmdStart, CmdHelp:
		b.sendMessage(ctx, chatID, helpText)
		return

	case CmdRegister:
		b.handlers.Accounts.HandleRegister(ctx, message, args)
		return

	case CmdLogin:
		b.handlers.Accounts.HandleLogin(ctx, message, args)
		return

	case CmdLogout:
		b.handlers.Accounts.HandleLogout(ctx, chatID, userID)
		return
	}

	if !RequiresSession(cmd) {
		b.sendMessage(ctx, chatID, "Неизвестная команда. Список команд: /help")
		return
	}

	sess, ok := b.sessions.Get(userID)
	if !ok {
		b.sendMessage(ctx, chatID, "🔐 Сначала войдите: /login <имя> <PIN>")
		return
	}

	switch cmd {
	case CmdBalance:
		b.handlers.Ledger.HandleBalance(ctx, chatID, sess)
	case CmdDeposit:
		b.handlers.Ledger.HandleDeposit(ctx, chatID, sess, args)
	case CmdWithdraw:
		b.handlers.Ledger.HandleWithdraw(ctx, chatID, sess, args)
	case CmdTransfer:
		b.handlers.Ledger.HandleTransfer(ctx, chatID, sess, args)
	case CmdFake:
		b.handlers.Ledger.HandleFakeTransfer(ctx, chatID, sess, args)
	case CmdHistory:
		b.handlers.Ledger.HandleHistory(ctx, chatID, sess)
	case CmdStatement:
		b.handlers.Statements.HandleStatement(ctx, chatID, sess, args)
	case CmdExport:
		b.handlers.Export.HandleExport(ctx, chatID, sess)
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
