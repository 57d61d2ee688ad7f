package services

import (
	"errors"
	"fmt"
)

// Error taxonomy. Controllers map these with errors.Is; everything a
// handler needs to pick a status code and a user-facing message hangs off
// one of these sentinels.
var (
	// malformed request; terminal, the client must correct and resubmit
	ErrValidation = errors.New("validation failed")
	// business-rule rejection by the state machine; terminal
	ErrInvalidTransition = errors.New("invalid transition")
	// transient concurrent-write race; lost commits are retried against
	// fresh state internally
	ErrConflict = errors.New("conflicting concurrent update")
	// wraps ErrConflict, surfaced when the retry budget is exhausted;
	// the request is safe to re-attempt
	ErrConcurrentModification = fmt.Errorf("%w: retries exhausted, please retry the request", ErrConflict)
	ErrNotFound               = errors.New("not found")
	// store outage after backoff; the caller can show a retry affordance
	ErrUnavailable = errors.New("service temporarily unavailable")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func transitionErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}
