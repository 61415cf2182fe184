package attempts

import (
	"time"

	"github.com/google/uuid"
)

// State - состояние попытки оформления подписки.
type State string

const (
	StateIdle         State = "IDLE"
	StateValidating   State = "VALIDATING"
	StateSubmitting   State = "SUBMITTING"
	StateSuccess      State = "SUCCESS"
	StateRejected     State = "REJECTED"
	StateNetworkError State = "NETWORK_ERROR"
)

type Payload map[string]any

type Item struct {
	UserID    uuid.UUID
	State     State
	Payload   Payload
	UpdatedAt time.Time
}

// GetString Helper для безопасного чтения строк из payload
func GetString(p Payload, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
