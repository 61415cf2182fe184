package charges

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
)

type Method string

const (
	MethodCard Method = "CARD"
	MethodPix  Method = "PIX"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// Charge - счёт на оплату плана в платёжном шлюзе.
type Charge struct {
	ID            uuid.UUID          `json:"id"`
	UserID        uuid.UUID          `json:"userId"`
	Plan          subscriptions.Plan `json:"plan"`
	Method        Method             `json:"method"`
	TransactionID string             `json:"transactionId"`
	GatewayID     string             `json:"gatewayId"`
	Amount        decimal.Decimal    `json:"amount"`
	Status        Status             `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}
