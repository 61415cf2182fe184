package files

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

const columns = `id, work_id, name, url, content_type, size_bytes, created_at`

func scan(row pgx.Row) (*File, error) {
	var f File
	if err := row.Scan(&f.ID, &f.WorkID, &f.Name, &f.URL, &f.ContentType, &f.SizeBytes, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("arquivo")
		}
		return nil, err
	}
	return &f, nil
}

func (r *Repo) List(ctx context.Context, workID uuid.UUID) ([]File, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM files WHERE work_id = $1 ORDER BY created_at DESC`, workID)
	if err != nil {
		return nil, fmt.Errorf("files: list: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, workID, id uuid.UUID) (*File, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM files WHERE id = $1 AND work_id = $2`, id, workID))
}

func (r *Repo) Create(ctx context.Context, f *File) (*File, error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO files (id, work_id, name, url, content_type, size_bytes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+columns,
		f.ID, f.WorkID, f.Name, f.URL, f.ContentType, f.SizeBytes))
}

func (r *Repo) Update(ctx context.Context, f *File) (*File, error) {
	return scan(r.pool.QueryRow(ctx, `
		UPDATE files SET name=$3, url=$4, content_type=$5, size_bytes=$6
		WHERE id=$1 AND work_id=$2
		RETURNING `+columns,
		f.ID, f.WorkID, f.Name, f.URL, f.ContentType, f.SizeBytes))
}

func (r *Repo) Delete(ctx context.Context, workID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM files WHERE id=$1 AND work_id=$2`, id, workID)
	if err != nil {
		return fmt.Errorf("files: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("arquivo")
	}
	return nil
}
