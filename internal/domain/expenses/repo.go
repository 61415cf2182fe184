package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/domain/civil"
	"github.com/Spok95/maos-da-obra/internal/infra/db"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const columns = `id, work_id, step_id, material_id, description, amount, paid_amount, category, date, created_at`

func scan(row pgx.Row) (*Expense, error) {
	var e Expense
	if err := row.Scan(&e.ID, &e.WorkID, &e.StepID, &e.MaterialID, &e.Description, &e.Amount, &e.PaidAmount, &e.Category, &e.Date, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("despesa")
		}
		return nil, db.ConstraintError(err)
	}
	return &e, nil
}

func (r *Repo) List(ctx context.Context, workID uuid.UUID) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM expenses WHERE work_id = $1 ORDER BY date DESC, created_at DESC`, workID)
	if err != nil {
		return nil, fmt.Errorf("expenses: list: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, workID, id uuid.UUID) (*Expense, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM expenses WHERE id = $1 AND work_id = $2`, id, workID))
}

func (r *Repo) Create(ctx context.Context, e *Expense) (*Expense, error) {
	return Insert(ctx, r.pool, e)
}

// Insert пишет расход через пул или транзакцию (покупка материала).
func Insert(ctx context.Context, q db.Querier, e *Expense) (*Expense, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Category == "" {
		e.Category = CategoryOther
	}
	if e.Date.IsZero() {
		e.Date = civil.Of(time.Now())
	}
	return scan(q.QueryRow(ctx, `
		INSERT INTO expenses (id, work_id, step_id, material_id, description, amount, paid_amount, category, date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+columns,
		e.ID, e.WorkID, e.StepID, e.MaterialID, e.Description, e.Amount, e.PaidAmount, e.Category, e.Date))
}

func (r *Repo) Update(ctx context.Context, e *Expense) (*Expense, error) {
	if e.Category == "" {
		e.Category = CategoryOther
	}
	if e.Date.IsZero() {
		e.Date = civil.Of(time.Now())
	}
	return scan(r.pool.QueryRow(ctx, `
		UPDATE expenses SET step_id=$3, material_id=$4, description=$5, amount=$6, paid_amount=$7, category=$8, date=$9
		WHERE id=$1 AND work_id=$2
		RETURNING `+columns,
		e.ID, e.WorkID, e.StepID, e.MaterialID, e.Description, e.Amount, e.PaidAmount, e.Category, e.Date))
}

func (r *Repo) Delete(ctx context.Context, workID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id=$1 AND work_id=$2`, id, workID)
	if err != nil {
		return fmt.Errorf("expenses: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("despesa")
	}
	return nil
}
