package workers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Worker struct {
	ID        uuid.UUID       `json:"id"`
	WorkID    uuid.UUID       `json:"workId"`
	Name      string          `json:"name" binding:"required,max=200"`
	Role      string          `json:"role" binding:"max=100"`
	Phone     string          `json:"phone" binding:"max=40"`
	DailyRate decimal.Decimal `json:"dailyRate"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (w *Worker) Scope(workID, id uuid.UUID) { w.WorkID, w.ID = workID, id }
