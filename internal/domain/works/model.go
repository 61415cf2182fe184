package works

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/maos-da-obra/internal/domain/civil"
)

type Status string

const (
	StatusPlanning   Status = "PLANNING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusPaused     Status = "PAUSED"
)

type Work struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	Name          string          `json:"name" binding:"required,max=200"`
	Address       string          `json:"address" binding:"max=300"`
	BudgetPlanned decimal.Decimal `json:"budgetPlanned"`
	StartDate     *civil.Date     `json:"startDate"`
	EndDate       *civil.Date     `json:"endDate"`
	Status        Status          `json:"status" binding:"omitempty,oneof=PLANNING IN_PROGRESS COMPLETED PAUSED"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"createdAt"`
}
