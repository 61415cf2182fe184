package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/maos-da-obra/internal/domain/charges"
	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
	"github.com/Spok95/maos-da-obra/internal/infra/db"
)

// PGSettler - Settler поверх Postgres: счёт и план меняются в одной транзакции.
type PGSettler struct {
	pool *pgxpool.Pool
	subs *subscriptions.Repo
}

func NewPGSettler(pool *pgxpool.Pool) *PGSettler {
	return &PGSettler{pool: pool, subs: subscriptions.NewRepo(pool)}
}

func (s *PGSettler) Settle(ctx context.Context, txnID string, now time.Time) (*charges.Charge, bool, error) {
	var (
		c       *charges.Charge
		changed bool
	)
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		c, changed, err = charges.MarkPaidWith(ctx, tx, txnID)
		if err != nil || !changed {
			return err
		}
		return subscriptions.ActivateWith(ctx, tx, c.UserID, c.Plan, subscriptions.ExpiresAt(c.Plan, now))
	})
	if err != nil {
		return nil, false, err
	}
	return c, changed, nil
}

func (s *PGSettler) Renew(ctx context.Context, userID uuid.UUID, plan subscriptions.Plan, until time.Time) error {
	return s.subs.Activate(ctx, userID, plan, &until)
}
