package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/domain/pushsubs"
	"github.com/Spok95/maos-da-obra/internal/infra/metrics"
)

// Message - содержимое push, которое читает service worker клиента.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender доставляет одно сообщение на одну подписку и возвращает HTTP-статус push-сервиса.
type Sender interface {
	Send(ctx context.Context, sub pushsubs.Subscription, payload []byte) (int, error)
}

// VAPIDSender - Sender на webpush-go с ключами VAPID.
type VAPIDSender struct {
	publicKey  string
	privateKey string
	subject    string
	client     *http.Client
}

func NewVAPIDSender(publicKey, privateKey, subject string) *VAPIDSender {
	return &VAPIDSender{publicKey: publicKey, privateKey: privateKey, subject: subject, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *VAPIDSender) PublicKey() string { return s.publicKey }

func (s *VAPIDSender) Send(ctx context.Context, sub pushsubs.Subscription, payload []byte) (int, error) {
	if s.publicKey == "" {
		return 0, apperr.NotConfigured("VAPID_PUBLIC_KEY")
	}
	if s.privateKey == "" {
		return 0, apperr.NotConfigured("VAPID_PRIVATE_KEY")
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60 * 60 * 24,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return 0, &apperr.NetworkError{Op: "webpush", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Store - подписки пользователя.
type Store interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]pushsubs.Subscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Report - итог рассылки по всем подпискам пользователя.
type Report struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Pruned int `json:"pruned"`
}

type Dispatcher struct {
	log    *slog.Logger
	sender Sender
	store  Store
}

func NewDispatcher(log *slog.Logger, sender Sender, store Store) *Dispatcher {
	return &Dispatcher{log: log.With("component", "push"), sender: sender, store: store}
}

// Notify рассылает сообщение на все подписки пользователя. Подписки, на которые
// push-сервис ответил 404/410, удаляются.
func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, msg Message) (Report, error) {
	var rep Report
	subs, err := d.store.ListByUser(ctx, userID)
	if err != nil {
		return rep, err
	}
	if len(subs) == 0 {
		return rep, nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return rep, fmt.Errorf("push: encode: %w", err)
	}

	for _, sub := range subs {
		status, err := d.sender.Send(ctx, sub, payload)
		switch {
		case err != nil:
			var ce *apperr.ConfigurationError
			if errors.As(err, &ce) {
				// без ключей VAPID остальные подписки тоже не пройдут
				return rep, err
			}
			rep.Failed++
			metrics.PushSent.WithLabelValues("error").Inc()
			d.log.Warn("push send failed", "user_id", userID, "err", err)
		case status == http.StatusNotFound || status == http.StatusGone:
			if err := d.store.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				d.log.Error("prune subscription failed", "err", err)
				continue
			}
			rep.Pruned++
			metrics.PushSent.WithLabelValues("gone").Inc()
		case status >= 200 && status < 300:
			rep.Sent++
			metrics.PushSent.WithLabelValues("ok").Inc()
		default:
			rep.Failed++
			metrics.PushSent.WithLabelValues("error").Inc()
			d.log.Warn("push rejected", "user_id", userID, "status", status)
		}
	}
	return rep, nil
}
