// Package accounts — handlers.go обрабатывает команды в личке бота:
// /register, /login, /logout.
// Сообщения с PIN удаляются из чата сразу после обработки.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/common"
)

// Handler обрабатывает команды входа и регистрации.
type Handler struct {
	service  *Service
	sessions *Sessions
	bot      *telego.Bot
	currency string // Валюта отображения
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, sessions *Sessions, bot *telego.Bot, currency string) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		bot:      bot,
		currency: currency,
	}
}

// HandleRegister обрабатывает /register <username> <pin> [начальный депозит].
//
// Ответ при успехе:
//
//	✅ Счёт alice открыт
//	💰 Баланс: $100.00
func (h *Handler) HandleRegister(ctx context.Context, msg *telego.Message, args []string) {
	chatID := msg.Chat.ID
	defer h.deleteMessage(ctx, msg)

	if len(args) < 2 {
		h.sendMessage(ctx, chatID, "❌ Формат: /register <имя> <PIN> [начальный депозит]")
		return
	}

	initial := decimal.Zero
	if len(args) >= 3 && args[2] != "0" {
		amount, err := common.ParseAmount(args[2])
		if err != nil {
			h.sendMessage(ctx, chatID, "❌ "+err.Error())
			return
		}
		initial = amount
	}

	_, err := h.service.Register(ctx, args[0], args[1], initial)
	if err != nil {
		switch {
		case common.IsValidation(err):
			h.sendMessage(ctx, chatID, "❌ "+err.Error())
		case errors.Is(err, common.ErrDuplicateUsername):
			h.sendMessage(ctx, chatID, "❌ Имя пользователя уже занято")
		default:
			log.WithError(err).Error("Ошибка регистрации")
			h.sendMessage(ctx, chatID, "❌ Не удалось открыть счёт, попробуйте позже")
		}
		return
	}

	h.sendMessage(ctx, chatID, fmt.Sprintf(
		"✅ Счёт %s открыт\n💰 Баланс: %s\n\nВойдите: /login %s <PIN>",
		args[0], common.FormatMoney(initial, h.currency), args[0],
	))
}

// HandleLogin обрабатывает /login <username> <pin>.
// При успехе открывает сессию для Telegram-пользователя.
func (h *Handler) HandleLogin(ctx context.Context, msg *telego.Message, args []string) {
	chatID := msg.Chat.ID
	defer h.deleteMessage(ctx, msg)

	if len(args) < 2 {
		h.sendMessage(ctx, chatID, "❌ Формат: /login <имя> <PIN>")
		return
	}

	res, err := h.service.Login(ctx, args[0], args[1], ChannelTelegram)
	if err != nil {
		switch {
		case common.IsValidation(err), errors.Is(err, common.ErrAccountNotFound):
			h.sendMessage(ctx, chatID, "❌ Неверное имя пользователя или PIN")
		default:
			log.WithError(err).Error("Ошибка входа")
			h.sendMessage(ctx, chatID, "❌ Сервис временно недоступен")
		}
		return
	}

	switch res.Outcome {
	case OutcomeSuccess:
		h.sessions.Start(msg.From.ID, res.Account)
		h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Добро пожаловать, %s!\n💰 Баланс: %s",
			res.Account.Username, common.FormatMoney(res.Account.Balance, h.currency)))

	case OutcomeInvalid:
		h.sendMessage(ctx, chatID, fmt.Sprintf("❌ Неверный PIN. Осталось %d %s",
			res.AttemptsRemaining, common.PluralizeAttempts(res.AttemptsRemaining)))

	case OutcomeTooManyAttempts:
		secs := (&common.LockedError{Remaining: res.LockedFor}).RemainingSeconds()
		h.sendMessage(ctx, chatID, fmt.Sprintf("🔒 Слишком много неудачных попыток. Счёт заблокирован на %d %s",
			secs, common.PluralizeSeconds(secs)))

	case OutcomeLocked:
		secs := (&common.LockedError{Remaining: res.LockedFor}).RemainingSeconds()
		h.sendMessage(ctx, chatID, fmt.Sprintf("🔒 Счёт заблокирован. Попробуйте через %d %s",
			secs, common.PluralizeSeconds(secs)))
	}
}

// HandleLogout обрабатывает /logout.
func (h *Handler) HandleLogout(ctx context.Context, chatID, userID int64) {
	if h.sessions.End(userID) {
		h.sendMessage(ctx, chatID, "👋 Вы вышли из счёта")
		return
	}
	h.sendMessage(ctx, chatID, "Вы и так не вошли")
}

// deleteMessage удаляет сообщение с PIN. В личке бот может удалять сообщения пользователя.
func (h *Handler) deleteMessage(ctx context.Context, msg *telego.Message) {
	err := h.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(msg.Chat.ID),
		MessageID: msg.MessageID,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", msg.Chat.ID).Warn("Не удалось удалить сообщение с PIN")
	}
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
