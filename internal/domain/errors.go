package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidServiceProvider = errors.New("service provider id must be a positive integer")
	ErrInvalidCustomer        = errors.New("customer id must be a positive integer")
	ErrInvalidScore           = errors.New("score must be between 1 and 5")
	ErrCommentTooLong         = errors.New("comment must not exceed 1000 characters")
	ErrInvalidNotificationID  = errors.New("notification id must not be empty")
	ErrInvalidKind            = errors.New("unknown notification type")
	ErrInvalidLimit           = errors.New("limit must be between 1 and 50")
)
