package photos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/infra/db"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const columns = `id, work_id, step_id, url, caption, taken_at, created_at`

func scan(row pgx.Row) (*Photo, error) {
	var p Photo
	if err := row.Scan(&p.ID, &p.WorkID, &p.StepID, &p.URL, &p.Caption, &p.TakenAt, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("foto")
		}
		return nil, db.ConstraintError(err)
	}
	return &p, nil
}

func (r *Repo) List(ctx context.Context, workID uuid.UUID) ([]Photo, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM photos WHERE work_id = $1 ORDER BY taken_at DESC NULLS LAST, created_at DESC`, workID)
	if err != nil {
		return nil, fmt.Errorf("photos: list: %w", err)
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, workID, id uuid.UUID) (*Photo, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM photos WHERE id = $1 AND work_id = $2`, id, workID))
}

func (r *Repo) Create(ctx context.Context, p *Photo) (*Photo, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO photos (id, work_id, step_id, url, caption, taken_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+columns,
		p.ID, p.WorkID, p.StepID, p.URL, p.Caption, p.TakenAt))
}

func (r *Repo) Update(ctx context.Context, p *Photo) (*Photo, error) {
	return scan(r.pool.QueryRow(ctx, `
		UPDATE photos SET step_id=$3, url=$4, caption=$5, taken_at=$6
		WHERE id=$1 AND work_id=$2
		RETURNING `+columns,
		p.ID, p.WorkID, p.StepID, p.URL, p.Caption, p.TakenAt))
}

func (r *Repo) Delete(ctx context.Context, workID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM photos WHERE id=$1 AND work_id=$2`, id, workID)
	if err != nil {
		return fmt.Errorf("photos: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("foto")
	}
	return nil
}
