package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an absent shop or listing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput signals a malformed shop URL, empty listing ID or
	// malformed credential.
	ErrInvalidInput = errors.New("invalid input")
)

// APIError is a non-2xx response from the Etsy API. It carries the
// status code and the server-supplied message when one was present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("etsy api error (status %d): %s", e.Status, e.Message)
}

// NewAPIError builds an APIError, substituting a generic message when
// the server did not supply one.
func NewAPIError(status int, message string) *APIError {
	if message == "" {
		message = "Unknown API error"
	}
	return &APIError{Status: status, Message: message}
}
