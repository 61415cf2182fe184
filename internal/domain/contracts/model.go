package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSigned    Status = "SIGNED"
	StatusCancelled Status = "CANCELLED"
)

type Contract struct {
	ID         uuid.UUID       `json:"id"`
	WorkID     uuid.UUID       `json:"workId"`
	WorkerID   *uuid.UUID      `json:"workerId"`
	SupplierID *uuid.UUID      `json:"supplierId"`
	Title      string          `json:"title" binding:"required,max=200"`
	Value      decimal.Decimal `json:"value"`
	Status     Status          `json:"status" binding:"omitempty,oneof=DRAFT SIGNED CANCELLED"`
	SignedAt   *time.Time      `json:"signedAt"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (c *Contract) Scope(workID, id uuid.UUID) { c.WorkID, c.ID = workID, id }

// normalize выставляет статус по умолчанию и дату подписи при переходе в SIGNED.
func (c *Contract) normalize(now time.Time) {
	if c.Status == "" {
		c.Status = StatusDraft
	}
	switch {
	case c.Status == StatusSigned && c.SignedAt == nil:
		t := now
		c.SignedAt = &t
	case c.Status == StatusDraft:
		c.SignedAt = nil
	}
}
