// Package notify — доставка сообщений пользователям о судьбе их сигналов.
package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"auto_trader/pkg/logger"
)

type Notifier interface {
	SendF(ctx context.Context, chatID int64, format string, args ...interface{})
}

// Telegram шлёт сообщения напрямую в чат пользователя.
// UserID в системе и есть telegram chat ID.
type Telegram struct {
	bot *tgbot.BotAPI
}

func NewTelegram(token string) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b}, nil
}

// SendF не возвращает ошибку: нотификация не должна влиять на исход
// сделки, неудача только логируется.
func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...interface{}) {
	if t == nil || t.bot == nil || chatID == 0 {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if _, err := t.bot.Send(tgbot.NewMessage(chatID, msg)); err != nil {
		logger.Warn("telegram send to %d: %v", chatID, err)
	}
}

// Stdout — заглушка для локального запуска без токена.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) SendF(ctx context.Context, chatID int64, format string, args ...interface{}) {
	logger.Info("notify[%d]: %s", chatID, fmt.Sprintf(format, args...))
}
