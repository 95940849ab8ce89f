package export

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/features/accounts"
	"serotonyl.ru/ledger-bot/internal/jobs"
)

// Submitter ставит фоновую задачу (jobs.Dispatcher).
type Submitter interface {
	Submit(name string, task jobs.Task) string
}

// Handler обрабатывает /export.
type Handler struct {
	service  *Service
	jobs     Submitter
	notifier jobs.Notifier
	bot      *telego.Bot
}

// NewHandler создаёт обработчик выгрузок.
func NewHandler(service *Service, submitter Submitter, notifier jobs.Notifier, bot *telego.Bot) *Handler {
	return &Handler{
		service:  service,
		jobs:     submitter,
		notifier: notifier,
		bot:      bot,
	}
}

// HandleExport ставит выгрузку в фон и отправляет файлы документами.
func (h *Handler) HandleExport(ctx context.Context, chatID int64, sess accounts.Session) {
	id := h.jobs.Submit("export", h.exportTask(chatID, sess))
	if id == "" {
		h.sendMessage(ctx, chatID, "❌ Бот останавливается, попробуйте позже")
		return
	}

	log.WithFields(log.Fields{
		"account_id": sess.AccountID,
		"job_id":     id,
	}).Debug("Выгрузка поставлена в очередь")
	h.sendMessage(ctx, chatID, "⏳ Готовлю выгрузку истории...")
}

// exportTask готовит файлы и отправляет их документами.
func (h *Handler) exportTask(chatID int64, sess accounts.Session) jobs.Task {
	return func(ctx context.Context) error {
		files, err := h.service.Export(ctx, sess.AccountID)
		if err != nil {
			jobs.NotifyFailure(ctx, h.notifier, chatID, "❌ Не удалось выгрузить историю")
			return err
		}
		for _, f := range files {
			caption := fmt.Sprintf("📎 История операций %s", sess.Username)
			if err := h.notifier.NotifyDocument(ctx, chatID, f.Name, f.Data, caption); err != nil {
				return fmt.Errorf("отправка %s: %w", f.Name, err)
			}
		}
		return nil
	}
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
