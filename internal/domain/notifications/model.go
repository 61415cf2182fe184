package notifications

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeInfo    Type = "INFO"
	TypeWarning Type = "WARNING"
	TypeSuccess Type = "SUCCESS"
	TypeError   Type = "ERROR"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	WorkID    *uuid.UUID `json:"workId"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      Type       `json:"type"`
	Read      bool       `json:"read"`
	Tag       string     `json:"tag"`
	CreatedAt time.Time  `json:"createdAt"`
}
