// Package ledger — handlers.go обрабатывает команды со счётом:
// /balance, /deposit, /withdraw, /transfer, /fake, /history.
// Все команды требуют открытой сессии, её проверяет роутер бота.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
)

// AccountReader — чтение счёта для показа баланса.
type AccountReader interface {
	FindByID(ctx context.Context, id int64) (*accounts.Account, error)
}

// HandlerOptions — настройки отображения.
type HandlerOptions struct {
	Currency            string
	HistoryLimit        int
	Location            *time.Location
	FakeTransferEnabled bool
}

// Handler обрабатывает команды учёта.
type Handler struct {
	service  *Service
	accounts AccountReader
	bot      *telego.Bot
	opts     HandlerOptions
}

// NewHandler создаёт обработчик команд учёта.
func NewHandler(service *Service, accts AccountReader, bot *telego.Bot, opts HandlerOptions) *Handler {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Handler{
		service:  service,
		accounts: accts,
		bot:      bot,
		opts:     opts,
	}
}

// HandleBalance обрабатывает /balance.
//
// Формат ответа:
//
//	💰 Баланс: $150.00
func (h *Handler) HandleBalance(ctx context.Context, chatID int64, sess accounts.Session) {
	acc, err := h.accounts.FindByID(ctx, sess.AccountID)
	if err != nil {
		h.replyError(ctx, chatID, "баланс", err)
		return
	}
	h.sendMessage(ctx, chatID, "💰 Баланс: "+common.FormatMoney(acc.Balance, h.opts.Currency))
}

// HandleDeposit обрабатывает /deposit <сумма>.
func (h *Handler) HandleDeposit(ctx context.Context, chatID int64, sess accounts.Session, args []string) {
	if len(args) < 1 {
		h.sendMessage(ctx, chatID, "❌ Формат: /deposit <сумма>")
		return
	}
	amount, err := common.ParseAmount(args[0])
	if err != nil {
		h.replyError(ctx, chatID, "пополнение", err)
		return
	}

	receipt, err := h.service.Deposit(ctx, sess.AccountID, amount)
	if err != nil {
		h.replyError(ctx, chatID, "пополнение", err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Зачислено %s\n💰 Баланс: %s",
		common.FormatMoney(amount, h.opts.Currency), common.FormatMoney(receipt.Balance, h.opts.Currency)))
}

// HandleWithdraw обрабатывает /withdraw <сумма>.
func (h *Handler) HandleWithdraw(ctx context.Context, chatID int64, sess accounts.Session, args []string) {
	if len(args) < 1 {
		h.sendMessage(ctx, chatID, "❌ Формат: /withdraw <сумма>")
		return
	}
	amount, err := common.ParseAmount(args[0])
	if err != nil {
		h.replyError(ctx, chatID, "снятие", err)
		return
	}

	receipt, err := h.service.Withdraw(ctx, sess.AccountID, amount)
	if err != nil {
		h.replyError(ctx, chatID, "снятие", err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Снято %s\n💰 Баланс: %s",
		common.FormatMoney(amount, h.opts.Currency), common.FormatMoney(receipt.Balance, h.opts.Currency)))
}

// HandleTransfer обрабатывает /transfer <получатель> <сумма>.
// Получатель можно указывать с @ или без.
//
// Ответ при успехе:
//
//	✅ Переведено $25.00 → bob
//	💰 Баланс: $75.00
func (h *Handler) HandleTransfer(ctx context.Context, chatID int64, sess accounts.Session, args []string) {
	if len(args) < 2 {
		h.sendMessage(ctx, chatID, "❌ Формат: /transfer <получатель> <сумма>")
		return
	}
	amount, err := common.ParseAmount(args[1])
	if err != nil {
		h.replyError(ctx, chatID, "перевод", err)
		return
	}

	receipt, err := h.service.Transfer(ctx, sess.AccountID, args[0], amount)
	if err != nil {
		h.replyError(ctx, chatID, "перевод", err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Переведено %s → %s\n💰 Баланс: %s",
		common.FormatMoney(amount, h.opts.Currency),
		strings.TrimPrefix(args[0], "@"),
		common.FormatMoney(receipt.Balance, h.opts.Currency)))
}

// HandleFakeTransfer обрабатывает /fake <получатель> <сумма>.
// Деньги не двигаются, в журнал пишется FakeTransfer.
func (h *Handler) HandleFakeTransfer(ctx context.Context, chatID int64, sess accounts.Session, args []string) {
	if !h.opts.FakeTransferEnabled {
		h.sendMessage(ctx, chatID, "❌ Симуляция переводов отключена")
		return
	}
	if len(args) < 2 {
		h.sendMessage(ctx, chatID, "❌ Формат: /fake <получатель> <сумма>")
		return
	}
	amount, err := common.ParseAmount(args[1])
	if err != nil {
		h.replyError(ctx, chatID, "симуляция", err)
		return
	}

	rec, err := h.service.RecordSimulatedTransfer(ctx, sess.AccountID, args[0], amount)
	if err != nil {
		h.replyError(ctx, chatID, "симуляция", err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("🧪 Записана симуляция перевода %s → %s\nБаланс не изменился",
		common.FormatMoney(rec.Amount, h.opts.Currency), rec.Counterparty))
}

// HandleHistory обрабатывает /history — последние операции, новые сверху.
func (h *Handler) HandleHistory(ctx context.Context, chatID int64, sess accounts.Session) {
	records, err := h.service.History(ctx, sess.AccountID, HistoryFilter{
		Limit:       h.opts.HistoryLimit,
		NewestFirst: true,
	})
	if err != nil {
		h.replyError(ctx, chatID, "история", err)
		return
	}
	h.sendMessage(ctx, chatID, FormatHistory(records, h.opts.Currency, h.opts.Location))
}

// FormatHistory собирает текст истории операций.
//
// Пример строки:
//
//	➖ 05.03.2026 14:20 Исходящий перевод $12.50 (bob)
func FormatHistory(records []*Record, currency string, loc *time.Location) string {
	if len(records) == 0 {
		return "📜 Операций пока нет"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📜 Последние %d %s:\n", len(records), common.PluralizeOperations(len(records)))
	for _, r := range records {
		sign := "🔹"
		switch r.Type.Direction() {
		case DirectionIn:
			sign = "➕"
		case DirectionOut:
			sign = "➖"
		}
		fmt.Fprintf(&b, "\n%s %s %s %s",
			sign, common.FormatDateTime(r.CreatedAt, loc), r.Type.Title(), common.FormatMoney(r.Amount, currency))
		if r.Counterparty != "" {
			fmt.Fprintf(&b, " (%s)", r.Counterparty)
		}
	}
	return b.String()
}

// replyError переводит ошибку ядра в сообщение пользователю.
func (h *Handler) replyError(ctx context.Context, chatID int64, op string, err error) {
	switch {
	case common.IsValidation(err):
		h.sendMessage(ctx, chatID, "❌ "+err.Error())
	case errors.Is(err, common.ErrInsufficientFunds):
		h.sendMessage(ctx, chatID, "❌ Недостаточно средств на счёте")
	case errors.Is(err, common.ErrBalanceLimit):
		h.sendMessage(ctx, chatID, "❌ Баланс превысил бы максимально допустимый")
	case errors.Is(err, common.ErrRecipientNotFound):
		h.sendMessage(ctx, chatID, "❌ Получатель не найден")
	case errors.Is(err, common.ErrSelfTransfer):
		h.sendMessage(ctx, chatID, "❌ Нельзя переводить самому себе")
	case errors.Is(err, common.ErrAccountNotFound):
		h.sendMessage(ctx, chatID, "❌ Счёт не найден, войдите заново: /login")
	default:
		log.WithError(err).WithField("op", op).Error("Ошибка операции со счётом")
		h.sendMessage(ctx, chatID, "❌ Операция не выполнена, попробуйте позже")
	}
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
