package materials

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/domain/expenses"
	"github.com/Spok95/maos-da-obra/internal/infra/db"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const columns = `id, work_id, step_id, name, unit, planned_qty, purchased_qty, total_cost, created_at`

func scan(row pgx.Row) (*Material, error) {
	var m Material
	if err := row.Scan(&m.ID, &m.WorkID, &m.StepID, &m.Name, &m.Unit, &m.PlannedQty, &m.PurchasedQty, &m.TotalCost, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("material")
		}
		return nil, db.ConstraintError(err)
	}
	return &m, nil
}

func (r *Repo) List(ctx context.Context, workID uuid.UUID) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM materials WHERE work_id = $1 ORDER BY name`, workID)
	if err != nil {
		return nil, fmt.Errorf("materials: list: %w", err)
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, workID, id uuid.UUID) (*Material, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM materials WHERE id = $1 AND work_id = $2`, id, workID))
}

func (r *Repo) Create(ctx context.Context, m *Material) (*Material, error) {
	return Insert(ctx, r.pool, m)
}

func Insert(ctx context.Context, q db.Querier, m *Material) (*Material, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Unit == "" {
		m.Unit = "un"
	}
	return scan(q.QueryRow(ctx, `
		INSERT INTO materials (id, work_id, step_id, name, unit, planned_qty, purchased_qty, total_cost)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+columns,
		m.ID, m.WorkID, m.StepID, m.Name, m.Unit, m.PlannedQty, m.PurchasedQty, m.TotalCost))
}

func (r *Repo) Update(ctx context.Context, m *Material) (*Material, error) {
	if m.Unit == "" {
		m.Unit = "un"
	}
	return scan(r.pool.QueryRow(ctx, `
		UPDATE materials SET step_id=$3, name=$4, unit=$5, planned_qty=$6, purchased_qty=$7, total_cost=$8
		WHERE id=$1 AND work_id=$2
		RETURNING `+columns,
		m.ID, m.WorkID, m.StepID, m.Name, m.Unit, m.PlannedQty, m.PurchasedQty, m.TotalCost))
}

func (r *Repo) Delete(ctx context.Context, workID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id=$1 AND work_id=$2`, id, workID)
	if err != nil {
		return fmt.Errorf("materials: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("material")
	}
	return nil
}

// RegisterPurchase увеличивает купленное количество и стоимость материала
// и в той же транзакции пишет связанный расход. Ошибка расхода откатывает обе записи.
func (r *Repo) RegisterPurchase(ctx context.Context, workID, id uuid.UUID, p Purchase) (*Material, *expenses.Expense, error) {
	if !p.Qty.IsPositive() {
		return nil, nil, apperr.Invalid("qty", "Informe uma quantidade maior que zero.")
	}
	if p.Cost.IsNegative() {
		return nil, nil, apperr.Invalid("cost", "O valor não pode ser negativo.")
	}

	var (
		mat *Material
		exp *expenses.Expense
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		mat, err = scan(tx.QueryRow(ctx, `
			UPDATE materials
			SET purchased_qty = purchased_qty + $3,
			    total_cost = total_cost + $4
			WHERE id=$1 AND work_id=$2
			RETURNING `+columns,
			id, workID, p.Qty, p.Cost))
		if err != nil {
			return err
		}

		paid := p.Cost
		if p.PaidAmount != nil {
			paid = *p.PaidAmount
		}
		desc := p.Description
		if desc == "" {
			desc = fmt.Sprintf("Compra: %s (%s %s)", mat.Name, p.Qty.String(), mat.Unit)
		}
		exp, err = expenses.Insert(ctx, tx, &expenses.Expense{
			WorkID:      workID,
			StepID:      mat.StepID,
			MaterialID:  &mat.ID,
			Description: desc,
			Amount:      p.Cost,
			PaidAmount:  paid,
			Category:    expenses.CategoryMaterial,
		})
		if err != nil {
			return fmt.Errorf("materials: purchase expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return mat, exp, nil
}
