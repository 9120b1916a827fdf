package ratings

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRatingNotFound  = errors.New("rating not found")
	ErrNotOwner        = errors.New("rating belongs to another user")
)
