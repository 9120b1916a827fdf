package friends

import "errors"

var (
	// ErrInvalidArgument marks a caller-supplied user or enum value that
	// fails a precondition. An integration bug, never retried.
	ErrInvalidArgument = errors.New("friends: invalid argument")

	// ErrDuplicateRelationship is returned by Request when any relationship
	// row already exists between the pair, in either direction.
	ErrDuplicateRelationship = errors.New("friends: relationship already exists")

	// ErrRelationshipNotFound is returned by Accept and Delete when no row
	// exists between the pair.
	ErrRelationshipNotFound = errors.New("friends: relationship not found")

	// ErrAlreadyAccepted is returned by Accept when the row is already in
	// Friends status.
	ErrAlreadyAccepted = errors.New("friends: request already accepted")

	// ErrNotTheTarget is returned by Accept when the caller is not the
	// target of the original request.
	ErrNotTheTarget = errors.New("friends: only the request target may accept")

	// ErrUnknownStatus means a seeded status row is missing from the store.
	// Signals store misconfiguration, not a user error.
	ErrUnknownStatus = errors.New("friends: unknown friend status")

	// ErrPageOutOfRange is returned by SearchUsers when the requested page
	// exceeds the number of available pages while results exist.
	ErrPageOutOfRange = errors.New("friends: page out of range")
)
