package photos

import (
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/domain/civil"
)

type Photo struct {
	ID        uuid.UUID   `json:"id"`
	WorkID    uuid.UUID   `json:"workId"`
	StepID    *uuid.UUID  `json:"stepId"`
	URL       string      `json:"url" binding:"required,url"`
	Caption   string      `json:"caption" binding:"max=300"`
	TakenAt   *civil.Date `json:"takenAt"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (p *Photo) Scope(workID, id uuid.UUID) { p.WorkID, p.ID = workID, id }
