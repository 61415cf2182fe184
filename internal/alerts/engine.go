// Package alerts - генератор «умных» уведомлений по этапам, расходам и материалам объекта.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/domain/civil"
	"github.com/Spok95/maos-da-obra/internal/domain/notifications"
	"github.com/Spok95/maos-da-obra/internal/infra/metrics"
)

// Store - проверка дубля и запись уведомления.
// Проверка и вставка не атомарны: при гонке возможен один дубль.
type Store interface {
	HasUnread(ctx context.Context, userID uuid.UUID, tag string) (bool, error)
	Create(ctx context.Context, n *notifications.Notification) (*notifications.Notification, error)
}

type Engine struct {
	log    *slog.Logger
	store  Store
	window int
	loc    *time.Location
	now    func() time.Time

	// OnCreated получает каждое новое уведомление (push, Telegram).
	OnCreated func(ctx context.Context, n notifications.Notification)
}

func NewEngine(log *slog.Logger, store Store, windowDays int, loc *time.Location) *Engine {
	if windowDays <= 0 {
		windowDays = 3
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		log:    log.With("component", "alerts"),
		store:  store,
		window: windowDays,
		loc:    loc,
		now:    time.Now,
	}
}

// Evaluate прогоняет правила без записи. Паника одного правила не мешает остальным.
func (e *Engine) Evaluate(in Input) []Alert {
	today := civil.Today(e.now(), e.loc)
	var out []Alert
	for _, r := range rules {
		alerts, err := e.safeEval(r, in, today)
		if err != nil {
			e.log.Error("rule failed", "rule", r.name, "work_id", in.Work.ID, "err", err)
			continue
		}
		out = append(out, alerts...)
	}
	return out
}

func (e *Engine) safeEval(r rule, in Input, today civil.Date) (out []Alert, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.eval(in, today, e.window), nil
}

// Generate создаёт уведомления, которых ещё нет среди непрочитанных. Повторный вызов
// на тех же данных ничего не добавляет.
func (e *Engine) Generate(ctx context.Context, in Input) []notifications.Notification {
	var created []notifications.Notification
	for _, a := range e.Evaluate(in) {
		exists, err := e.store.HasUnread(ctx, in.UserID, a.Tag)
		if err != nil {
			e.log.Error("dedup check failed", "tag", a.Tag, "err", err)
			continue
		}
		if exists {
			continue
		}

		workID := in.Work.ID
		n, err := e.store.Create(ctx, &notifications.Notification{
			UserID:  in.UserID,
			WorkID:  &workID,
			Title:   a.Title,
			Message: a.Message,
			Type:    a.Type,
			Tag:     a.Tag,
		})
		if err != nil {
			e.log.Error("create notification failed", "tag", a.Tag, "err", err)
			continue
		}
		metrics.AlertsCreated.WithLabelValues(a.Rule).Inc()
		e.log.Debug("notification created", "tag", a.Tag, "user_id", in.UserID)
		created = append(created, *n)

		if e.OnCreated != nil {
			e.OnCreated(ctx, *n)
		}
	}
	return created
}
