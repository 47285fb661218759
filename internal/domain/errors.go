package domain

import "errors"

var (
	// ErrDuplicatePendingIntent: the owner already has a non-terminal intent.
	ErrDuplicatePendingIntent = errors.New("owner already has a pending payment intent")

	// ErrAlreadyAttached: a second, different external reference for the same
	// intent. Provider retries resend the same reference; a different one is an
	// anomaly and must not overwrite.
	ErrAlreadyAttached = errors.New("external reference already attached")

	// ErrAlreadyTerminal: transition requested out of a terminal status.
	ErrAlreadyTerminal = errors.New("payment intent already terminal")

	// ErrTransitionConflict: a concurrent writer moved the intent between the
	// compare-and-set and the re-read. The caller saw neither a replay nor a
	// terminal guard and should re-read before retrying.
	ErrTransitionConflict = errors.New("concurrent payment intent transition")

	// ErrAmountMismatch: provider-confirmed amount disagrees with the intent.
	ErrAmountMismatch = errors.New("provider amount does not match intent")

	ErrIntentNotFound = errors.New("payment intent not found")
	ErrUnknownOwner   = errors.New("unknown owner kind")
	ErrOwnerNotFound  = errors.New("owning entity not found")
)
