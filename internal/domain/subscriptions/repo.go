package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/maos-da-obra/internal/infra/db"
)

var ErrUserNotFound = errors.New("subscriptions: user not found")

// Repo меняет план пользователя. Сама подписка живёт в колонках users.
type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

// Activate выставляет оплаченный план и снимает флаг пробного периода.
func (r *Repo) Activate(ctx context.Context, userID uuid.UUID, plan Plan, expiresAt *time.Time) error {
	return ActivateWith(ctx, r.db, userID, plan, expiresAt)
}

// ActivateWith - Activate внутри внешней транзакции.
func ActivateWith(ctx context.Context, q db.Querier, userID uuid.UUID, plan Plan, expiresAt *time.Time) error {
	const sql = `
UPDATE users
SET plan = $2,
    subscription_expires_at = $3,
    is_trial = FALSE,
    updated_at = NOW()
WHERE id = $1
`
	tag, err := q.Exec(ctx, sql, userID, string(plan), expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
