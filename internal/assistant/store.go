package assistant

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/maos-da-obra/internal/domain/materials"
	"github.com/Spok95/maos-da-obra/internal/domain/steps"
	"github.com/Spok95/maos-da-obra/internal/infra/db"
)

// PGPlanStore пишет план одной транзакцией: при ошибке не остаётся ни этапов, ни материалов.
type PGPlanStore struct{ pool *pgxpool.Pool }

func NewPGPlanStore(pool *pgxpool.Pool) *PGPlanStore { return &PGPlanStore{pool: pool} }

func (s *PGPlanStore) SavePlan(ctx context.Context, st []steps.Step, mats []materials.Material) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for i := range st {
			if _, err := steps.Insert(ctx, tx, &st[i]); err != nil {
				return fmt.Errorf("assistant: create step: %w", err)
			}
		}
		for i := range mats {
			if _, err := materials.Insert(ctx, tx, &mats[i]); err != nil {
				return fmt.Errorf("assistant: create material: %w", err)
			}
		}
		return nil
	})
}
