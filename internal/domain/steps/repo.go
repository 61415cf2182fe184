package steps

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

const columns = `id, work_id, name, start_date, end_date, status, created_at`

func scan(row pgx.Row) (*Step, error) {
	var s Step
	if err := row.Scan(&s.ID, &s.WorkID, &s.Name, &s.StartDate, &s.EndDate, &s.Status, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("etapa")
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) List(ctx context.Context, workID uuid.UUID) ([]Step, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM steps WHERE work_id = $1 ORDER BY start_date NULLS LAST, created_at`, workID)
	if err != nil {
		return nil, fmt.Errorf("steps: list: %w", err)
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, workID, id uuid.UUID) (*Step, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM steps WHERE id = $1 AND work_id = $2`, id, workID))
}

func (r *Repo) Create(ctx context.Context, s *Step) (*Step, error) {
	return Insert(ctx, r.pool, s)
}

// Insert пишет этап через пул или транзакцию (план от ассистента).
func Insert(ctx context.Context, q db.Querier, s *Step) (*Step, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = StatusNotStarted
	}
	return scan(q.QueryRow(ctx, `
		INSERT INTO steps (id, work_id, name, start_date, end_date, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+columns,
		s.ID, s.WorkID, s.Name, s.StartDate, s.EndDate, string(s.Status)))
}

func (r *Repo) Update(ctx context.Context, s *Step) (*Step, error) {
	if s.Status == "" {
		s.Status = StatusNotStarted
	}
	return scan(r.pool.QueryRow(ctx, `
		UPDATE steps SET name=$3, start_date=$4, end_date=$5, status=$6
		WHERE id=$1 AND work_id=$2
		RETURNING `+columns,
		s.ID, s.WorkID, s.Name, s.StartDate, s.EndDate, string(s.Status)))
}

func (r *Repo) Delete(ctx context.Context, workID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM steps WHERE id=$1 AND work_id=$2`, id, workID)
	if err != nil {
		return fmt.Errorf("steps: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("etapa")
	}
	return nil
}
