package workflow

import "context"

// StateMachine tracks the current state of one record and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether trigger would succeed from the current state,
	// evaluating guards against ctx
	CanFire(ctx context.Context, trigger Trigger) bool

	// Fire executes the trigger, moving to the first permitted target state
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the configured triggers of the current state, sorted
	PermittedTriggers() []Trigger
}
