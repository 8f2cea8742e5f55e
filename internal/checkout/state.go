package checkout

import (
	"fmt"
	"net/http"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/gateway"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
)

var ErrInvalidTransition = resilience.NewError(http.StatusConflict, "invalid checkout state transition")

// State is where a checkout attempt stands from the payer's point of view.
type State string

const (
	StateInitiated            State = "initiated"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
	StateTimedOut             State = "timed_out"
)

// transitions lists the allowed moves. A timed out attempt only stopped being
// watched; a late confirmation may still settle it.
var transitions = map[State][]State{
	StateInitiated:            {StateAwaitingConfirmation, StateCompleted, StateFailed},
	StateAwaitingConfirmation: {StateCompleted, StateFailed, StateTimedOut},
	StateTimedOut:             {StateAwaitingConfirmation, StateCompleted, StateFailed},
}

func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// stateOf maps a stored status onto the attempt state it implies.
func stateOf(status models.TransactionStatus) State {
	switch status {
	case models.StatusCompleted:
		return StateCompleted
	case models.StatusFailed:
		return StateFailed
	}
	return StateAwaitingConfirmation
}

// Attempt is one checkout as seen by its caller.
type Attempt struct {
	Reference   string                  `json:"reference"`
	State       State                   `json:"state"`
	Gateway     models.Provider         `json:"gateway"`
	Result      *gateway.CheckoutResult `json:"result,omitempty"`
	Transaction *models.Transaction     `json:"transaction,omitempty"`
}

func (a *Attempt) advance(to State) error {
	if a.State == to {
		return nil
	}
	if !a.State.CanTransition(to) {
		return fmt.Errorf("%s: %s -> %s: %w", a.Reference, a.State, to, ErrInvalidTransition)
	}
	a.State = to
	return nil
}
