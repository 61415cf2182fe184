package pushsubs

import (
	"time"

	"github.com/google/uuid"
)

// Subscription - W3C PushSubscription, ключ - endpoint.
type Subscription struct {
	Endpoint  string    `json:"endpoint" binding:"required,url"`
	UserID    uuid.UUID `json:"userId"`
	Keys      Keys      `json:"keys" binding:"required"`
	CreatedAt time.Time `json:"createdAt"`
}

type Keys struct {
	P256dh string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}
