package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/domain/notifications"
	"github.com/Spok95/maos-da-obra/internal/domain/users"
	"github.com/Spok95/maos-da-obra/internal/infra/push"
)

type Pusher interface {
	Notify(ctx context.Context, userID uuid.UUID, msg push.Message) (push.Report, error)
}

type ChatSender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Fanout доставляет созданное уведомление во внешние каналы. Всё best effort:
// ошибки только логируются, запись уведомления уже сделана.
type Fanout struct {
	log     *slog.Logger
	pusher  Pusher
	chat    ChatSender // nil - Telegram выключен
	users   UserLookup
	baseURL string
	timeout time.Duration

	wg sync.WaitGroup
}

func NewFanout(log *slog.Logger, pusher Pusher, chat ChatSender, users UserLookup, baseURL string) *Fanout {
	return &Fanout{
		log:     log.With("component", "fanout"),
		pusher:  pusher,
		chat:    chat,
		users:   users,
		baseURL: baseURL,
		timeout: 15 * time.Second,
	}
}

// Go доставляет уведомление в фоне, не задерживая запрос. Отмена запроса
// доставку не прерывает, срок ограничен timeout. Подходит как Engine.OnCreated.
func (f *Fanout) Go(ctx context.Context, n notifications.Notification) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		f.Deliver(ctx, n)
	}()
}

// Wait ждёт фоновые доставки (остановка сервера).
func (f *Fanout) Wait() { f.wg.Wait() }

// Deliver доставляет синхронно.
func (f *Fanout) Deliver(ctx context.Context, n notifications.Notification) {
	link := f.link(n)
	if f.pusher != nil {
		rep, err := f.pusher.Notify(ctx, n.UserID, push.Message{Title: n.Title, Body: n.Message, URL: link, Tag: n.Tag})
		if err != nil {
			f.log.Warn("push fanout failed", "user_id", n.UserID, "tag", n.Tag, "err", err)
		} else {
			f.log.Debug("push fanout", "user_id", n.UserID, "sent", rep.Sent, "pruned", rep.Pruned)
		}
	}

	if f.chat == nil || f.users == nil {
		return
	}
	u, err := f.users.GetByID(ctx, n.UserID)
	if err != nil {
		f.log.Error("load user failed", "user_id", n.UserID, "err", err)
		return
	}
	if u == nil || u.TelegramChatID == nil {
		return
	}
	text := fmt.Sprintf("%s\n%s\n%s", n.Title, n.Message, link)
	if err := f.chat.Send(ctx, *u.TelegramChatID, text); err != nil {
		f.log.Warn("telegram fanout failed", "user_id", n.UserID, "err", err)
	}
}

func (f *Fanout) link(n notifications.Notification) string {
	if n.WorkID != nil {
		return fmt.Sprintf("%s/works/%s", f.baseURL, n.WorkID)
	}
	return f.baseURL + "/notifications"
}
