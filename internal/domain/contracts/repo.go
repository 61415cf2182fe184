package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/infra/db"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const columns = `id, work_id, worker_id, supplier_id, title, value, status, signed_at, created_at`

func scan(row pgx.Row) (*Contract, error) {
	var c Contract
	if err := row.Scan(&c.ID, &c.WorkID, &c.WorkerID, &c.SupplierID, &c.Title, &c.Value, &c.Status, &c.SignedAt, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("contrato")
		}
		return nil, db.ConstraintError(err)
	}
	return &c, nil
}

func (r *Repo) List(ctx context.Context, workID uuid.UUID) ([]Contract, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM contracts WHERE work_id = $1 ORDER BY created_at DESC`, workID)
	if err != nil {
		return nil, fmt.Errorf("contracts: list: %w", err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, workID, id uuid.UUID) (*Contract, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM contracts WHERE id = $1 AND work_id = $2`, id, workID))
}

func (r *Repo) Create(ctx context.Context, c *Contract) (*Contract, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.normalize(time.Now())
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO contracts (id, work_id, worker_id, supplier_id, title, value, status, signed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+columns,
		c.ID, c.WorkID, c.WorkerID, c.SupplierID, c.Title, c.Value, string(c.Status), c.SignedAt))
}

func (r *Repo) Update(ctx context.Context, c *Contract) (*Contract, error) {
	c.normalize(time.Now())
	return scan(r.pool.QueryRow(ctx, `
		UPDATE contracts SET worker_id=$3, supplier_id=$4, title=$5, value=$6, status=$7, signed_at=$8
		WHERE id=$1 AND work_id=$2
		RETURNING `+columns,
		c.ID, c.WorkID, c.WorkerID, c.SupplierID, c.Title, c.Value, string(c.Status), c.SignedAt))
}

func (r *Repo) Delete(ctx context.Context, workID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contracts WHERE id=$1 AND work_id=$2`, id, workID)
	if err != nil {
		return fmt.Errorf("contracts: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contrato")
	}
	return nil
}
