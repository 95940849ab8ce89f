// Package filters решает, какие сообщения бот обрабатывает.
// PIN вводится в сообщениях, поэтому команды принимаются только в личке.
package filters

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Verdict — решение фильтра по сообщению.
type Verdict int

// Решения фильтра
const (
	Allow  Verdict = iota // Личное сообщение от пользователя
	Ignore                // Служебное сообщение, молча пропускаем
	Deny                  // Групповой чат, отвечаем подсказкой
)

// denyText — ответ в групповом чате.
const denyText = "🔒 Счёт доступен только в личных сообщениях с ботом"

// ChatFilter пропускает только личные сообщения от пользователей.
type ChatFilter struct {
	bot *telego.Bot
}

// NewChatFilter создаёт фильтр.
func NewChatFilter(bot *telego.Bot) *ChatFilter {
	return &ChatFilter{bot: bot}
}

// Check выносит решение без побочных эффектов.
func Check(message *telego.Message) Verdict {
	if message == nil || message.From == nil || message.From.IsBot {
		return Ignore
	}
	if message.Chat.Type != telego.ChatTypePrivate {
		return Deny
	}
	return Allow
}

// CheckAccess возвращает true, если сообщение надо обрабатывать.
// В групповом чате отвечает подсказкой.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *telego.Message) bool {
	switch Check(message) {
	case Allow:
		return true

	case Deny:
		logger := log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
			"user_id":   message.From.ID,
		})
		logger.Debug("deny: not a private chat")
		if _, err := f.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), denyText)); err != nil {
			logger.WithError(err).Warn("failed to send deny message")
		}
		return false

	default:
		return false
	}
}
