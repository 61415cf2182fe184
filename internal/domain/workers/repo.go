package workers

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

const columns = `id, work_id, name, role, phone, daily_rate, created_at`

func scan(row pgx.Row) (*Worker, error) {
	var w Worker
	if err := row.Scan(&w.ID, &w.WorkID, &w.Name, &w.Role, &w.Phone, &w.DailyRate, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("profissional")
		}
		return nil, err
	}
	return &w, nil
}

func (r *Repo) List(ctx context.Context, workID uuid.UUID) ([]Worker, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM workers WHERE work_id = $1 ORDER BY name`, workID)
	if err != nil {
		return nil, fmt.Errorf("workers: list: %w", err)
	}
	defer rows.Close()

	var out []Worker
	for rows.Next() {
		w, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, workID, id uuid.UUID) (*Worker, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM workers WHERE id = $1 AND work_id = $2`, id, workID))
}

func (r *Repo) Create(ctx context.Context, w *Worker) (*Worker, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO workers (id, work_id, name, role, phone, daily_rate)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+columns,
		w.ID, w.WorkID, w.Name, w.Role, w.Phone, w.DailyRate))
}

func (r *Repo) Update(ctx context.Context, w *Worker) (*Worker, error) {
	return scan(r.pool.QueryRow(ctx, `
		UPDATE workers SET name=$3, role=$4, phone=$5, daily_rate=$6
		WHERE id=$1 AND work_id=$2
		RETURNING `+columns,
		w.ID, w.WorkID, w.Name, w.Role, w.Phone, w.DailyRate))
}

func (r *Repo) Delete(ctx context.Context, workID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workers WHERE id=$1 AND work_id=$2`, id, workID)
	if err != nil {
		return fmt.Errorf("workers: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("profissional")
	}
	return nil
}
