package service

import "errors"

var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation error")
	// ErrNoConversations is returned when a user's inbox aggregation is
	// empty. The HTTP layer surfaces it as 404, matching the frontend's
	// expectation.
	ErrNoConversations = errors.New("no conversations found")
)
