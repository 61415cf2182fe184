package expenses

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/maos-da-obra/internal/domain/civil"
)

const (
	CategoryMaterial = "MATERIAL"
	CategoryLabor    = "MAO_DE_OBRA"
	CategoryOther    = "OUTROS"
)

type Expense struct {
	ID          uuid.UUID       `json:"id"`
	WorkID      uuid.UUID       `json:"workId"`
	StepID      *uuid.UUID      `json:"stepId"`
	MaterialID  *uuid.UUID      `json:"materialId"`
	Description string          `json:"description" binding:"required,max=300"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAmount  decimal.Decimal `json:"paidAmount"`
	Category    string          `json:"category" binding:"max=40"`
	Date        civil.Date      `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (e *Expense) Scope(workID, id uuid.UUID) { e.WorkID, e.ID = workID, id }

// Total - сумма amount по всем расходам.
func Total(list []Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range list {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// TotalPaid - сумма фактически оплаченного.
func TotalPaid(list []Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range list {
		sum = sum.Add(e.PaidAmount)
	}
	return sum
}
