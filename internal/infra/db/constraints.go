package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Spok95/maos-da-obra/internal/apperr"
)

// Коды SQLSTATE нарушений ограничений.
const (
	codeForeignKey = "23503"
	codeCheck      = "23514"
)

// constraintFields - ограничение из migrations -> поле запроса, на которое указывает ошибка.
var constraintFields = map[string]string{
	"materials_step_same_work":     "stepId",
	"expenses_step_same_work":      "stepId",
	"expenses_material_same_work":  "materialId",
	"photos_step_same_work":        "stepId",
	"checklist_step_same_work":     "stepId",
	"contracts_worker_same_work":   "workerId",
	"contracts_supplier_same_work": "supplierId",
	"expenses_amount_nonneg":       "amount",
	"expenses_paid_nonneg":         "paidAmount",
}

// ConstraintError переводит известные нарушения ограничений в ValidationError.
// Остальные ошибки возвращаются как есть.
func ConstraintError(err error) error {
	var pg *pgconn.PgError
	if !errors.As(err, &pg) {
		return err
	}
	field, ok := constraintFields[pg.ConstraintName]
	if !ok {
		return err
	}
	switch pg.Code {
	case codeForeignKey:
		return apperr.Invalid(field, "O item informado não pertence a esta obra.")
	case codeCheck:
		return apperr.Invalid(field, "O valor não pode ser negativo.")
	}
	return err
}
