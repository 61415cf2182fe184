package billing

import (
	"fmt"

	"github.com/Spok95/maos-da-obra/internal/domain/attempts"
)

// transitions попытки оформления. REJECTED и NETWORK_ERROR возвращаются в IDLE
// (повторная отправка только по действию пользователя), SUCCESS конечное.
var transitions = map[attempts.State][]attempts.State{
	attempts.StateIdle:         {attempts.StateValidating},
	attempts.StateValidating:   {attempts.StateSubmitting, attempts.StateIdle},
	attempts.StateSubmitting:   {attempts.StateSuccess, attempts.StateRejected, attempts.StateNetworkError},
	attempts.StateRejected:     {attempts.StateIdle},
	attempts.StateNetworkError: {attempts.StateIdle},
}

func CanTransition(from, to attempts.State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine - состояние одной попытки в памяти запроса.
type Machine struct {
	state attempts.State
}

func NewMachine() *Machine { return &Machine{state: attempts.StateIdle} }

func (m *Machine) State() attempts.State { return m.state }

func (m *Machine) To(next attempts.State) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("billing: transition %s -> %s not allowed", m.state, next)
	}
	m.state = next
	return nil
}

// Resubmittable - можно ли начинать новую попытку из сохранённого состояния.
func Resubmittable(s attempts.State) bool {
	switch s {
	case attempts.StateSubmitting:
		return false
	}
	return true
}
