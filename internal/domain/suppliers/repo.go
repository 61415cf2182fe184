package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/maos-da-obra/internal/apperr"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const columns = `id, work_id, name, category, phone, email, created_at`

func scan(row pgx.Row) (*Supplier, error) {
	var s Supplier
	if err := row.Scan(&s.ID, &s.WorkID, &s.Name, &s.Category, &s.Phone, &s.Email, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("fornecedor")
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) List(ctx context.Context, workID uuid.UUID) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM suppliers WHERE work_id = $1 ORDER BY name`, workID)
	if err != nil {
		return nil, fmt.Errorf("suppliers: list: %w", err)
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, workID, id uuid.UUID) (*Supplier, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM suppliers WHERE id = $1 AND work_id = $2`, id, workID))
}

func (r *Repo) Create(ctx context.Context, s *Supplier) (*Supplier, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Name = strings.TrimSpace(s.Name)
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (id, work_id, name, category, phone, email)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+columns,
		s.ID, s.WorkID, s.Name, s.Category, s.Phone, s.Email))
}

func (r *Repo) Update(ctx context.Context, s *Supplier) (*Supplier, error) {
	s.Name = strings.TrimSpace(s.Name)
	return scan(r.pool.QueryRow(ctx, `
		UPDATE suppliers SET name=$3, category=$4, phone=$5, email=$6
		WHERE id=$1 AND work_id=$2
		RETURNING `+columns,
		s.ID, s.WorkID, s.Name, s.Category, s.Phone, s.Email))
}

func (r *Repo) Delete(ctx context.Context, workID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id=$1 AND work_id=$2`, id, workID)
	if err != nil {
		return fmt.Errorf("suppliers: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("fornecedor")
	}
	return nil
}
