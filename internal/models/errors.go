package models

import "errors"

// Error taxonomy shared by the engine. Handlers map these onto HTTP codes;
// services return them wrapped so callers can use errors.Is.
var (
	// ErrDataUnavailable means the telemetry store has no usable samples for
	// a (farm, parameter) pair or window. Recovered locally as "condition did
	// not fire this cycle" and never surfaced as a crash.
	ErrDataUnavailable = errors.New("telemetry data unavailable")

	// ErrInvalidStateTransition means the attempted transition is not legal
	// from the entity's current state.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrAlreadyDecided means another writer (reviewer or the auto-approval
	// sweep) decided the claim first.
	ErrAlreadyDecided = errors.New("claim already decided")

	// ErrValidation means a reviewer action is missing required justification
	// text or carries an out-of-taxonomy value. Rejected before any mutation.
	ErrValidation = errors.New("validation failed")
)
