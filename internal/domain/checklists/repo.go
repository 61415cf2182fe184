package checklists

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

const columns = `id, work_id, step_id, title, done, created_at`

func scan(row pgx.Row) (*Item, error) {
	var i Item
	if err := row.Scan(&i.ID, &i.WorkID, &i.StepID, &i.Title, &i.Done, &i.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("item do checklist")
		}
		return nil, db.ConstraintError(err)
	}
	return &i, nil
}

func (r *Repo) List(ctx context.Context, workID uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM checklist_items WHERE work_id = $1 ORDER BY done, created_at`, workID)
	if err != nil {
		return nil, fmt.Errorf("checklists: list: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		i, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, workID, id uuid.UUID) (*Item, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM checklist_items WHERE id = $1 AND work_id = $2`, id, workID))
}

func (r *Repo) Create(ctx context.Context, i *Item) (*Item, error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO checklist_items (id, work_id, step_id, title, done)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+columns,
		i.ID, i.WorkID, i.StepID, i.Title, i.Done))
}

func (r *Repo) Update(ctx context.Context, i *Item) (*Item, error) {
	return scan(r.pool.QueryRow(ctx, `
		UPDATE checklist_items SET step_id=$3, title=$4, done=$5
		WHERE id=$1 AND work_id=$2
		RETURNING `+columns,
		i.ID, i.WorkID, i.StepID, i.Title, i.Done))
}

func (r *Repo) Delete(ctx context.Context, workID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM checklist_items WHERE id=$1 AND work_id=$2`, id, workID)
	if err != nil {
		return fmt.Errorf("checklists: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("item do checklist")
	}
	return nil
}
