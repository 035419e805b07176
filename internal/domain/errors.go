package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrConflict     = errors.New("resource already exists")
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingParticipant is the one hard precondition failure: a
	// conversation cannot be addressed without both user identifiers.
	ErrMissingParticipant = errors.New("conversation requires two user identifiers")

	ErrEmptyContent       = errors.New("message has neither text nor media")
	ErrInvalidMessageType = errors.New("unsupported message type")
	ErrInvalidStatus      = errors.New("unsupported message status")
	ErrStatusChanged      = errors.New("message status changed since it was read")

	ErrAlreadyMounted = errors.New("conversation view already mounted")
	ErrNotMounted     = errors.New("conversation view not mounted")
)

// IsPrecondition reports whether err is a configuration error that must be
// surfaced to the user instead of being logged and dropped.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrMissingParticipant)
}
