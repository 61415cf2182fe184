// Package dashboard собирает срез объекта (этапы, материалы, расходы) и
// считает сводку для главной страницы.
package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/maos-da-obra/internal/alerts"
	"github.com/Spok95/maos-da-obra/internal/domain/civil"
	"github.com/Spok95/maos-da-obra/internal/domain/expenses"
	"github.com/Spok95/maos-da-obra/internal/domain/materials"
	"github.com/Spok95/maos-da-obra/internal/domain/steps"
	"github.com/Spok95/maos-da-obra/internal/domain/works"
)

type Summary struct {
	BudgetPlanned    decimal.Decimal `json:"budgetPlanned"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	Balance          decimal.Decimal `json:"balance"`
	BudgetUsedPct    int             `json:"budgetUsedPct"`
	PendingMaterials int             `json:"pendingMaterials"`
	DelayedSteps     int             `json:"delayedSteps"`
	StepsTotal       int             `json:"stepsTotal"`
	StepsCompleted   int             `json:"stepsCompleted"`
	// Progress - доля завершённых этапов, 0..100.
	Progress int `json:"progress"`
}

// Snapshot - всё, что нужно сводке, правилам и отчёту по одному объекту.
type Snapshot struct {
	Work      works.Work
	Steps     []steps.Step
	Materials []materials.Material
	Expenses  []expenses.Expense
}

func (s Snapshot) AlertInput(userID uuid.UUID) alerts.Input {
	return alerts.Input{
		UserID:    userID,
		Work:      s.Work,
		Steps:     s.Steps,
		Expenses:  s.Expenses,
		Materials: s.Materials,
	}
}

var hundred = decimal.NewFromInt(100)

// Summarize - чистая функция: balance = budgetPlanned - totalSpent.
func Summarize(s Snapshot, today civil.Date) Summary {
	out := Summary{
		BudgetPlanned:    s.Work.BudgetPlanned,
		TotalSpent:       expenses.Total(s.Expenses),
		TotalPaid:        expenses.TotalPaid(s.Expenses),
		PendingMaterials: materials.CountPending(s.Materials),
		StepsTotal:       len(s.Steps),
	}
	out.Balance = out.BudgetPlanned.Sub(out.TotalSpent)
	if out.BudgetPlanned.IsPositive() {
		out.BudgetUsedPct = int(out.TotalSpent.Mul(hundred).Div(out.BudgetPlanned).Round(0).IntPart())
	}
	for _, st := range s.Steps {
		if st.Status == steps.StatusCompleted {
			out.StepsCompleted++
		}
		if st.IsDelayed(today) {
			out.DelayedSteps++
		}
	}
	if out.StepsTotal > 0 {
		out.Progress = out.StepsCompleted * 100 / out.StepsTotal
	}
	return out
}

type WorkSource interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*works.Work, error)
}

type StepSource interface {
	List(ctx context.Context, workID uuid.UUID) ([]steps.Step, error)
}

type MaterialSource interface {
	List(ctx context.Context, workID uuid.UUID) ([]materials.Material, error)
}

type ExpenseSource interface {
	List(ctx context.Context, workID uuid.UUID) ([]expenses.Expense, error)
}

type Loader struct {
	Works     WorkSource
	Steps     StepSource
	Materials MaterialSource
	Expenses  ExpenseSource
}

// Load читает объект пользователя целиком. Чужой объект - NotFoundError от Works.
func (l Loader) Load(ctx context.Context, userID, workID uuid.UUID) (*Snapshot, error) {
	w, err := l.Works.Get(ctx, userID, workID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Work: *w}
	if snap.Steps, err = l.Steps.List(ctx, workID); err != nil {
		return nil, fmt.Errorf("dashboard: steps: %w", err)
	}
	if snap.Materials, err = l.Materials.List(ctx, workID); err != nil {
		return nil, fmt.Errorf("dashboard: materials: %w", err)
	}
	if snap.Expenses, err = l.Expenses.List(ctx, workID); err != nil {
		return nil, fmt.Errorf("dashboard: expenses: %w", err)
	}
	return snap, nil
}
