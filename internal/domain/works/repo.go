package works

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

const columns = `id, user_id, name, address, budget_planned, start_date, end_date, status, notes, created_at`

func scan(row pgx.Row) (*Work, error) {
	var w Work
	if err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Address, &w.BudgetPlanned, &w.StartDate, &w.EndDate, &w.Status, &w.Notes, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("obra")
		}
		return nil, err
	}
	return &w, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID) ([]Work, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM works WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("works: list: %w", err)
	}
	defer rows.Close()

	var out []Work
	for rows.Next() {
		w, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// Get отдаёт объект только владельцу: чужой объект неотличим от отсутствующего.
func (r *Repo) Get(ctx context.Context, userID, id uuid.UUID) (*Work, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM works WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *Repo) Create(ctx context.Context, w *Work) (*Work, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Status == "" {
		w.Status = StatusPlanning
	}
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO works (id, user_id, name, address, budget_planned, start_date, end_date, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+columns,
		w.ID, w.UserID, w.Name, w.Address, w.BudgetPlanned, w.StartDate, w.EndDate, string(w.Status), w.Notes))
}

func (r *Repo) Update(ctx context.Context, w *Work) (*Work, error) {
	if w.Status == "" {
		w.Status = StatusPlanning
	}
	return scan(r.pool.QueryRow(ctx, `
		UPDATE works SET name=$3, address=$4, budget_planned=$5, start_date=$6, end_date=$7, status=$8, notes=$9
		WHERE id=$1 AND user_id=$2
		RETURNING `+columns,
		w.ID, w.UserID, w.Name, w.Address, w.BudgetPlanned, w.StartDate, w.EndDate, string(w.Status), w.Notes))
}

func (r *Repo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM works WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("works: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("obra")
	}
	return nil
}
