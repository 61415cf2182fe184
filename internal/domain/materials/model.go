package materials

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Material struct {
	ID           uuid.UUID       `json:"id"`
	WorkID       uuid.UUID       `json:"workId"`
	StepID       *uuid.UUID      `json:"stepId"`
	Name         string          `json:"name" binding:"required,max=200"`
	Unit         string          `json:"unit" binding:"max=20"`
	PlannedQty   decimal.Decimal `json:"plannedQty"`
	PurchasedQty decimal.Decimal `json:"purchasedQty"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (m *Material) Scope(workID, id uuid.UUID) { m.WorkID, m.ID = workID, id }

// IsPending - куплено меньше запланированного.
func (m Material) IsPending() bool {
	return m.PurchasedQty.LessThan(m.PlannedQty)
}

// CountPending считает материалы, которые ещё надо докупить.
func CountPending(list []Material) int {
	n := 0
	for _, m := range list {
		if m.IsPending() {
			n++
		}
	}
	return n
}

// Purchase - регистрация покупки: количество, стоимость и оплаченная часть.
type Purchase struct {
	Qty         decimal.Decimal  `json:"qty"`
	Cost        decimal.Decimal  `json:"cost"`
	PaidAmount  *decimal.Decimal `json:"paidAmount"`
	Description string           `json:"description" binding:"max=300"`
}
