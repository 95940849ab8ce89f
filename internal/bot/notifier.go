package bot

import (
	"bytes"
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Notifier доставляет результаты фоновых задач в чат.
type Notifier struct {
	api *telego.Bot
}

// NewNotifier создаёт Notifier поверх API бота.
func NewNotifier(api *telego.Bot) *Notifier {
	return &Notifier{api: api}
}

// Notify отправляет текстовое сообщение.
func (n *Notifier) Notify(ctx context.Context, chatID int64, text string) error {
	_, err := n.api.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}

// NotifyDocument отправляет файл документом.
func (n *Notifier) NotifyDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	doc := tu.Document(tu.ID(chatID), tu.File(tu.NameReader(bytes.NewReader(data), filename)))
	doc.Caption = caption
	_, err := n.api.SendDocument(ctx, doc)
	return err
}
