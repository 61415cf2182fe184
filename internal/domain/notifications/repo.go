package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/maos-da-obra/internal/apperr"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const columns = `id, user_id, work_id, title, message, type, read, tag, created_at`

func scan(row pgx.Row) (*Notification, error) {
	var n Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.WorkID, &n.Title, &n.Message, &n.Type, &n.Read, &n.Tag, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("notificação")
		}
		return nil, err
	}
	return &n, nil
}

func (r *Repo) Create(ctx context.Context, n *Notification) (*Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, work_id, title, message, type, read, tag)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE,$7)
		RETURNING `+columns,
		n.ID, n.UserID, n.WorkID, n.Title, n.Message, string(n.Type), n.Tag))
}

// HasUnread - есть ли непрочитанное уведомление с таким тегом.
func (r *Repo) HasUnread(ctx context.Context, userID uuid.UUID, tag string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM notifications WHERE user_id = $1 AND tag = $2 AND NOT read)
	`, userID, tag).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("notifications: has unread: %w", err)
	}
	return exists, nil
}

// ListByUser последние limit уведомлений, непрочитанные сверху.
func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID, onlyUnread bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT ` + columns + ` FROM notifications WHERE user_id = $1`
	if onlyUnread {
		q += ` AND NOT read`
	}
	q += ` ORDER BY read, created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("notifications: list: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *Repo) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("notifications: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notificação")
	}
	return nil
}

func (r *Repo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, fmt.Errorf("notifications: mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}
