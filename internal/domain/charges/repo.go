package charges

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

const columns = `id, user_id, plan, method, transaction_id, gateway_id, amount, status, created_at, updated_at`

func scan(row pgx.Row) (*Charge, error) {
	var c Charge
	if err := row.Scan(&c.ID, &c.UserID, &c.Plan, &c.Method, &c.TransactionID, &c.GatewayID, &c.Amount, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("cobrança")
		}
		return nil, err
	}
	return &c, nil
}

// Upsert создаёт счёт по transaction_id. Повтор с тем же id (ретрай после сетевой ошибки)
// обновляет gateway_id и статус, но не сбрасывает уже оплаченный счёт.
func (r *Repo) Upsert(ctx context.Context, c *Charge) (*Charge, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO charges (id, user_id, plan, method, transaction_id, gateway_id, amount, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (transaction_id) DO UPDATE SET
			gateway_id = CASE WHEN EXCLUDED.gateway_id <> '' THEN EXCLUDED.gateway_id ELSE charges.gateway_id END,
			status     = CASE WHEN charges.status = 'PAID' THEN charges.status ELSE EXCLUDED.status END,
			updated_at = now()
		RETURNING `+columns,
		c.ID, c.UserID, string(c.Plan), string(c.Method), c.TransactionID, c.GatewayID, c.Amount, string(c.Status)))
}

func (r *Repo) GetByTransaction(ctx context.Context, txnID string) (*Charge, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM charges WHERE transaction_id = $1`, txnID))
}

func (r *Repo) GetByGatewayID(ctx context.Context, gatewayID string) (*Charge, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM charges WHERE gateway_id = $1`, gatewayID))
}

// MarkPaidWith переводит счёт в PAID внутри внешней транзакции.
// changed=false, если счёт уже был оплачен.
func MarkPaidWith(ctx context.Context, q db.Querier, txnID string) (*Charge, bool, error) {
	c, err := scan(q.QueryRow(ctx, `
		UPDATE charges SET status = 'PAID', updated_at = now()
		WHERE transaction_id = $1 AND status <> 'PAID'
		RETURNING `+columns, txnID))
	if err == nil {
		return c, true, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, false, fmt.Errorf("charges: mark paid: %w", err)
	}
	// либо счёта нет, либо он уже оплачен
	c, err = scan(q.QueryRow(ctx, `SELECT `+columns+` FROM charges WHERE transaction_id = $1`, txnID))
	if err != nil {
		return nil, false, err
	}
	return c, false, nil
}

func (r *Repo) MarkFailed(ctx context.Context, txnID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE charges SET status = 'FAILED', updated_at = now()
		WHERE transaction_id = $1 AND status = 'PENDING'
	`, txnID)
	return err
}
