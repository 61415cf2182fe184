package alerts

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/maos-da-obra/internal/domain/civil"
	"github.com/Spok95/maos-da-obra/internal/domain/expenses"
	"github.com/Spok95/maos-da-obra/internal/domain/materials"
	"github.com/Spok95/maos-da-obra/internal/domain/notifications"
	"github.com/Spok95/maos-da-obra/internal/domain/steps"
	"github.com/Spok95/maos-da-obra/internal/domain/works"
)

// Input - срез данных одного объекта на момент проверки.
type Input struct {
	UserID    uuid.UUID
	Work      works.Work
	Steps     []steps.Step
	Expenses  []expenses.Expense
	Materials []materials.Material
}

// Alert - кандидат в уведомление до дедупликации.
type Alert struct {
	Rule    string
	Tag     string
	Type    notifications.Type
	Title   string
	Message string
}

type rule struct {
	name string
	eval func(in Input, today civil.Date, window int) []Alert
}

var budgetWarnRatio = decimal.RequireFromString("0.85")

func DelayTag(stepID uuid.UUID) string          { return "delay:" + stepID.String() }
func BudgetOverrunTag(workID uuid.UUID) string  { return "budget-overrun:" + workID.String() }
func BudgetWarningTag(workID uuid.UUID) string  { return "budget-warning:" + workID.String() }
func MaterialPendingTag(matID uuid.UUID) string { return "material-pending:" + matID.String() }

var rules = []rule{
	{name: "delay", eval: delayRule},
	{name: "budget", eval: budgetRule},
	{name: "material_pending", eval: materialRule},
}

func delayRule(in Input, today civil.Date, _ int) []Alert {
	var out []Alert
	for _, s := range in.Steps {
		if !s.IsDelayed(today) {
			continue
		}
		out = append(out, Alert{
			Rule:    "delay",
			Tag:     DelayTag(s.ID),
			Type:    notifications.TypeWarning,
			Title:   "Etapa atrasada",
			Message: fmt.Sprintf("A etapa \"%s\" da obra \"%s\" deveria ter terminado em %s.", s.Name, in.Work.Name, formatDate(*s.EndDate)),
		})
	}
	return out
}

// budgetRule: перерасход (ERROR) важнее предупреждения (WARNING), срабатывает не больше одного.
func budgetRule(in Input, _ civil.Date, _ int) []Alert {
	budget := in.Work.BudgetPlanned
	if !budget.IsPositive() {
		return nil
	}
	spent := expenses.Total(in.Expenses)
	switch {
	case spent.GreaterThan(budget):
		return []Alert{{
			Rule:  "budget_overrun",
			Tag:   BudgetOverrunTag(in.Work.ID),
			Type:  notifications.TypeError,
			Title: "Orçamento estourado",
			Message: fmt.Sprintf("A obra \"%s\" já gastou %s, acima do orçamento de %s.",
				in.Work.Name, FormatBRL(spent), FormatBRL(budget)),
		}}
	case spent.GreaterThanOrEqual(budget.Mul(budgetWarnRatio)):
		pct := spent.Div(budget).Mul(decimal.NewFromInt(100)).Round(0)
		return []Alert{{
			Rule:  "budget_warning",
			Tag:   BudgetWarningTag(in.Work.ID),
			Type:  notifications.TypeWarning,
			Title: "Orçamento quase no limite",
			Message: fmt.Sprintf("A obra \"%s\" já usou %s%% do orçamento (%s de %s).",
				in.Work.Name, pct.String(), FormatBRL(spent), FormatBRL(budget)),
		}}
	}
	return nil
}

// materialRule: материал не докуплен, а его этап заканчивается в ближайшие window дней (или уже должен был).
func materialRule(in Input, today civil.Date, window int) []Alert {
	byID := make(map[uuid.UUID]steps.Step, len(in.Steps))
	for _, s := range in.Steps {
		byID[s.ID] = s
	}
	limit := today.AddDays(window)

	var out []Alert
	for _, m := range in.Materials {
		if !m.IsPending() || m.StepID == nil {
			continue
		}
		s, ok := byID[*m.StepID]
		if !ok || s.Status == steps.StatusCompleted || s.EndDate == nil || s.EndDate.IsZero() {
			continue
		}
		if s.EndDate.After(limit) {
			continue
		}
		missing := m.PlannedQty.Sub(m.PurchasedQty)
		out = append(out, Alert{
			Rule:  "material_pending",
			Tag:   MaterialPendingTag(m.ID),
			Type:  notifications.TypeWarning,
			Title: "Material pendente",
			Message: fmt.Sprintf("Faltam %s %s de \"%s\" para a etapa \"%s\", que termina em %s.",
				missing.String(), m.Unit, m.Name, s.Name, formatDate(*s.EndDate)),
		})
	}
	return out
}

func formatDate(d civil.Date) string {
	return d.Time().Format("02/01/2006")
}

// FormatBRL: 1234.5 -> "R$ 1.234,50".
func FormatBRL(v decimal.Decimal) string {
	neg := v.IsNegative()
	s := v.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
