package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
)

type User struct {
	ID                    uuid.UUID          `json:"id"`
	Email                 string             `json:"email"`
	Name                  string             `json:"name"`
	Plan                  subscriptions.Plan `json:"plan"`
	SubscriptionExpiresAt *time.Time         `json:"subscriptionExpiresAt"`
	IsTrial               bool               `json:"isTrial"`
	TelegramChatID        *int64             `json:"telegramChatId,omitempty"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
}

// Profile - данные из токена авторизации.
type Profile struct {
	ID    uuid.UUID
	Email string
	Name  string
}
