package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot - второй канал уведомлений. Пользователь пишет боту /start, получает
// код (chat id) и привязывает его в приложении.
type Bot struct {
	api *tgbotapi.BotAPI
	log *slog.Logger
}

func New(api *tgbotapi.BotAPI, log *slog.Logger) *Bot {
	return &Bot{api: api, log: log.With("component", "telegram")}
}

// clientTimeout больше long polling в Run, иначе getUpdates обрывается.
const clientTimeout = 45 * time.Second

// Connect создаёт клиента по токену. Пустой токен - канал выключен (nil, nil).
func Connect(token string, log *slog.Logger) (*Bot, error) {
	if token == "" {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: clientTimeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return New(api, log), nil
}

// Send отправляет текст в чат. Ошибка возвращается вызывающему, повторов нет.
func (b *Bot) Send(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// Run обрабатывает входящие сообщения до отмены ctx.
func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				b.onMessage(ctx, upd.Message)
			}
		}
	}
}

func (b *Bot) onMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.Chat == nil {
		return
	}
	if err := b.Send(ctx, m.Chat.ID, Reply(m.Text, m.Chat.ID)); err != nil {
		b.log.Error("reply failed", "chat_id", m.Chat.ID, "err", err)
	}
}

// Reply - ответ бота на входящий текст.
func Reply(text string, chatID int64) string {
	cmd := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(cmd, "/start"), strings.HasPrefix(cmd, "/codigo"):
		return fmt.Sprintf("Olá! Seu código de vinculação é %d.\nCole este código em Configurações > Notificações no Mãos da Obra para receber alertas das suas obras aqui.", chatID)
	default:
		return "Eu envio alertas das suas obras. Envie /codigo para ver seu código de vinculação."
	}
}
