package suppliers

import (
	"time"

	"github.com/google/uuid"
)

type Supplier struct {
	ID        uuid.UUID `json:"id"`
	WorkID    uuid.UUID `json:"workId"`
	Name      string    `json:"name" binding:"required,max=200"`
	Category  string    `json:"category" binding:"max=100"`
	Phone     string    `json:"phone" binding:"max=40"`
	Email     string    `json:"email" binding:"omitempty,email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Supplier) Scope(workID, id uuid.UUID) { s.WorkID, s.ID = workID, id }
