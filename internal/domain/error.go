package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction context")

	// Reconciliation outcomes. These are the only conditions the webhook
	// pipeline is allowed to surface; anything else is a bug.
	ErrVerificationFailed      = errors.New("webhook signature verification failed")
	ErrDuplicateEvent          = errors.New("event already applied")
	ErrUnknownOrder            = errors.New("no payment matches gateway order")
	ErrAmountMismatch          = errors.New("event amount does not match payment amount")
	ErrInvalidTransition       = errors.New("stale or invalid status transition")
	ErrConflictingSubscription = errors.New("client already has a live subscription for this package")

	ErrLockNotAcquired = errors.New("could not acquire payment lock")
)
