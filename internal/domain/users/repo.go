package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const columns = `id, email, name, plan, subscription_expires_at, is_trial, telegram_chat_id, created_at, updated_at`

func scan(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Plan, &u.SubscriptionExpiresAt, &u.IsTrial, &u.TelegramChatID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// Ensure создаёт пользователя при первом входе с пробным периодом до trialUntil.
// Существующему обновляет только email и имя, план не трогает.
func (r *Repo) Ensure(ctx context.Context, p Profile, trialPlan string, trialUntil time.Time) (*User, error) {
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, plan, subscription_expires_at, is_trial)
		VALUES ($1,$2,$3,$4,$5,TRUE)
		ON CONFLICT (id)
		DO UPDATE SET
			email      = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE users.email END,
			name       = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE users.name END,
			updated_at = now()
		RETURNING `+columns,
		p.ID, p.Email, p.Name, trialPlan, trialUntil))
}

// SetTelegramChat привязывает (или отвязывает при nil) чат Telegram для уведомлений.
func (r *Repo) SetTelegramChat(ctx context.Context, id uuid.UUID, chatID *int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET telegram_chat_id = $2, updated_at = now() WHERE id = $1`, id, chatID)
	return err
}
