package workflow

import "errors"

// Sentinel errors surfaced by CanFire/Fire. Callers match with
// errors.Is; the machine never wraps anything else around them.
var (
	// ErrInvalidTransition means the trigger has no edge from the
	// current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState means the state is not part of the definition
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed means a PermitIf guard rejected the transition
	ErrGuardFailed = errors.New("guard condition failed")
)
