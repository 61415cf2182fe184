package subscriptions

import (
	"time"

	"github.com/shopspring/decimal"
)

type Plan string

const (
	PlanNone      Plan = ""
	PlanMensal    Plan = "MENSAL"
	PlanSemestral Plan = "SEMESTRAL"
	PlanVitalicio Plan = "VITALICIO"
)

// Valid - план из каталога (пустой план не считается).
func (p Plan) Valid() bool {
	switch p {
	case PlanMensal, PlanSemestral, PlanVitalicio:
		return true
	}
	return false
}

// Offer - позиция каталога планов.
type Offer struct {
	ID          Plan            `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Months      int             `json:"months"` // 0 - бессрочно
	Recurring   bool            `json:"recurring"`
	Description string          `json:"description"`
}

var Catalog = map[Plan]Offer{
	PlanMensal: {
		ID: PlanMensal, Name: "Mensal", Price: decimal.RequireFromString("29.90"),
		Months: 1, Recurring: true, Description: "Acesso completo, renovação mensal.",
	},
	PlanSemestral: {
		ID: PlanSemestral, Name: "Semestral", Price: decimal.RequireFromString("149.90"),
		Months: 6, Recurring: true, Description: "Seis meses de acesso com desconto.",
	},
	PlanVitalicio: {
		ID: PlanVitalicio, Name: "Vitalício", Price: decimal.RequireFromString("247.00"),
		Months: 0, Recurring: false, Description: "Pagamento único, acesso para sempre e IA liberada.",
	},
}

// Ordered каталог в порядке показа.
func Ordered() []Offer {
	return []Offer{Catalog[PlanMensal], Catalog[PlanSemestral], Catalog[PlanVitalicio]}
}

// ExpiresAt - срок действия плана, купленного в момент now. Для VITALICIO nil.
func ExpiresAt(p Plan, now time.Time) *time.Time {
	o, ok := Catalog[p]
	if !ok || o.Months == 0 {
		return nil
	}
	t := now.AddDate(0, o.Months, 0)
	return &t
}
