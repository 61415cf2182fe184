package steps

import (
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/domain/civil"
)

type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

type Step struct {
	ID        uuid.UUID   `json:"id"`
	WorkID    uuid.UUID   `json:"workId"`
	Name      string      `json:"name" binding:"required,max=200"`
	StartDate *civil.Date `json:"startDate"`
	EndDate   *civil.Date `json:"endDate"`
	Status    Status      `json:"status" binding:"omitempty,oneof=NOT_STARTED IN_PROGRESS COMPLETED"`
	CreatedAt time.Time   `json:"createdAt"`
}

// IsDelayed - этап не завершён, а дата окончания уже прошла.
func (s Step) IsDelayed(today civil.Date) bool {
	if s.Status == StatusCompleted || s.EndDate == nil || s.EndDate.IsZero() {
		return false
	}
	return s.EndDate.Before(today)
}

func (s *Step) Scope(workID, id uuid.UUID) { s.WorkID, s.ID = workID, id }
