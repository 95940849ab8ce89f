// Package statements — handlers.go обрабатывает /statement [YYYY-MM].
// Выписка формируется в фоне, ответ приходит отдельным сообщением.
package statements

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
	"serotonyl.ru/ledger-bot/internal/features/ledger"
	"serotonyl.ru/ledger-bot/internal/jobs"
)

// Submitter ставит фоновую задачу (jobs.Dispatcher).
type Submitter interface {
	Submit(name string, task jobs.Task) string
}

// Handler обрабатывает команду выписки.
type Handler struct {
	service  *Service
	jobs     Submitter
	notifier jobs.Notifier
	bot      *telego.Bot
	currency string
}

// NewHandler создаёт обработчик выписок.
func NewHandler(service *Service, submitter Submitter, notifier jobs.Notifier, bot *telego.Bot, currency string) *Handler {
	return &Handler{
		service:  service,
		jobs:     submitter,
		notifier: notifier,
		bot:      bot,
		currency: currency,
	}
}

// HandleStatement обрабатывает /statement [YYYY-MM].
// Без аргумента — текущий месяц. Месяц разбирается сразу,
// чтобы ошибку формата пользователь увидел без ожидания.
func (h *Handler) HandleStatement(ctx context.Context, chatID int64, sess accounts.Session, args []string) {
	year, month := h.service.CurrentMonth()
	if len(args) > 0 {
		y, m, err := common.ParseYearMonth(args[0])
		if err != nil {
			h.sendMessage(ctx, chatID, "❌ Формат: /statement [YYYY-MM], например /statement 2026-09")
			return
		}
		year, month = y, m
	}

	label := common.FormatYearMonth(year, month)
	id := h.jobs.Submit("statement", h.statementTask(chatID, sess.AccountID, year, month))
	if id == "" {
		h.sendMessage(ctx, chatID, "❌ Бот останавливается, попробуйте позже")
		return
	}

	log.WithFields(log.Fields{
		"account_id": sess.AccountID,
		"month":      label,
		"job_id":     id,
	}).Debug("Выписка поставлена в очередь")
	h.sendMessage(ctx, chatID, "⏳ Формирую выписку за "+label+"...")
}

// statementTask формирует выписку и отправляет её в чат.
func (h *Handler) statementTask(chatID, accountID int64, year int, month time.Month) jobs.Task {
	return func(ctx context.Context) error {
		st, err := h.service.Generate(ctx, accountID, year, month)
		if err != nil {
			jobs.NotifyFailure(ctx, h.notifier, chatID,
				"❌ Не удалось сформировать выписку за "+common.FormatYearMonth(year, month))
			return err
		}
		return h.notifier.Notify(ctx, chatID, FormatStatement(st, h.currency))
	}
}

// FormatStatement собирает текст выписки.
//
// Формат:
//
//	🧾 Выписка за 2026-09
//	➕ Поступления: $150.00
//	➖ Списания: $20.00
//	📌 Баланс на конец месяца: $130.00
//	💰 Текущий баланс: $130.00
//	Операций: 3
func FormatStatement(st *Statement, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 Выписка за %s\n", common.FormatYearMonth(st.Year(), st.MonthNumber()))
	fmt.Fprintf(&b, "➕ Поступления: %s\n", common.FormatMoney(st.TotalIn, currency))
	fmt.Fprintf(&b, "➖ Списания: %s\n", common.FormatMoney(st.TotalOut, currency))
	fmt.Fprintf(&b, "📌 Баланс на конец месяца: %s\n", common.FormatMoney(st.ClosingBalance, currency))
	fmt.Fprintf(&b, "💰 Текущий баланс: %s\n", common.FormatMoney(st.EndingBalance, currency))
	fmt.Fprintf(&b, "Операций: %d", len(st.Items))

	simulated := 0
	for _, it := range st.Items {
		if it.Type.Direction() == ledger.DirectionNone {
			simulated++
		}
	}
	if simulated > 0 {
		fmt.Fprintf(&b, " (из них симуляций: %d)", simulated)
	}
	return b.String()
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
