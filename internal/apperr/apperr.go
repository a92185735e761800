package apperr

import (
	"errors"
	"fmt"
)

// Category classifies an error for callers that map failures to user-facing
// behavior. The backend remains authoritative: a category describes what the
// backend (or transport) reported, not what the caller is allowed to do.
type Category string

const (
	NotFound     Category = "not-found"
	Forbidden    Category = "forbidden"
	Unauthorized Category = "unauthorized"
	Network      Category = "network"
	RateLimited  Category = "rate-limited"
	Conflict     Category = "conflict"
	Validation   Category = "validation"
	Unsupported  Category = "unsupported"
	Internal     Category = "internal"
)

// Error is a categorized application error.
type Error struct {
	Category Category
	Message  string
	Err      error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the original error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a categorized error.
func New(cat Category, message string, err error) *Error {
	return &Error{Category: cat, Message: message, Err: err}
}

// Newf creates a categorized error with a formatted message.
func Newf(cat Category, format string, args ...interface{}) *Error {
	return &Error{Category: cat, Message: fmt.Sprintf(format, args...)}
}

// CategoryOf extracts the category from err, or Internal if err carries none.
func CategoryOf(err error) Category {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return Internal
}

// Is reports whether err carries the given category.
func Is(err error, cat Category) bool {
	return CategoryOf(err) == cat
}
