// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	"strings"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// maxLoggedText — сколько символов текста попадает в лог.
const maxLoggedText = 50

// secretCommands — команды, у которых после имени идёт PIN.
var secretCommands = map[string]bool{
	"login":    true,
	"register": true,
	"вход":     true,
}

// LogMessage логирует входящее сообщение.
// Записывает: user_id, chat_id, username, текст (первые 50 символов, без PIN).
func LogMessage(message *telego.Message) {
	if message == nil || message.From == nil {
		return
	}

	log.WithFields(log.Fields{
		"user_id":   message.From.ID,
		"chat_id":   message.Chat.ID,
		"username":  message.From.Username,
		"text":      MaskSecrets(message.Text),
		"update_ts": message.Date,
	}).Debug("Входящее сообщение")
}

// MaskSecrets скрывает всё после имени пользователя в командах входа и регистрации
// и обрезает длинный текст.
//
//	MaskSecrets("/login alice 1234") → "/login alice ***"
func MaskSecrets(text string) string {
	fields := strings.Fields(text)
	if len(fields) > 2 {
		cmd := strings.ToLower(strings.TrimLeft(fields[0], "!./"))
		if i := strings.IndexByte(cmd, '@'); i >= 0 {
			cmd = cmd[:i]
		}
		if secretCommands[cmd] {
			text = fields[0] + " " + fields[1] + " ***"
		}
	}

	if utf8.RuneCountInString(text) > maxLoggedText {
		runes := []rune(text)
		text = string(runes[:maxLoggedText]) + "..."
	}
	return text
}
