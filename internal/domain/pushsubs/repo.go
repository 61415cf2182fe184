package pushsubs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Upsert сохраняет подписку; тот же endpoint перепривязывается к пользователю.
func (r *Repo) Upsert(ctx context.Context, s Subscription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO push_subscriptions (endpoint, user_id, p256dh, auth)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (endpoint) DO UPDATE SET
		  user_id=$2, p256dh=$3, auth=$4
	`, s.Endpoint, s.UserID, s.Keys.P256dh, s.Keys.Auth)
	if err != nil {
		return fmt.Errorf("pushsubs: upsert: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID uuid.UUID, endpoint string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1 AND user_id = $2`, endpoint, userID)
	return err
}

// DeleteByEndpoint удаляет протухшую подписку (push-сервис ответил 404/410).
func (r *Repo) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT endpoint, user_id, p256dh, auth, created_at
		FROM push_subscriptions WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("pushsubs: list: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.Endpoint, &s.UserID, &s.Keys.P256dh, &s.Keys.Auth, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
