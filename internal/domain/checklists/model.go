package checklists

import (
	"time"

	"github.com/google/uuid"
)

type Item struct {
	ID        uuid.UUID  `json:"id"`
	WorkID    uuid.UUID  `json:"workId"`
	StepID    *uuid.UUID `json:"stepId"`
	Title     string     `json:"title" binding:"required,max=300"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (i *Item) Scope(workID, id uuid.UUID) { i.WorkID, i.ID = workID, id }
