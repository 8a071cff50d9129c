package domain

import "errors"

// ErrSessionNotFound is returned when a session key is absent (or expired) in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrStoreUnavailable is returned when the session store cannot be reached.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrTransitionRejected is returned when no rule accepts a trigger in the current state.
var ErrTransitionRejected = errors.New("transition rejected")

// ErrUserNotFound is returned when no user exists for a phone number.
var ErrUserNotFound = errors.New("user not found")

// ErrInteractionNotFound is returned when an interaction id does not exist.
var ErrInteractionNotFound = errors.New("interaction not found")

// ErrMessageNotFound is returned when no qualifying message exists.
var ErrMessageNotFound = errors.New("message not found")
