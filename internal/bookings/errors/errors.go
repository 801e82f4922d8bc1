package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusChanged means a conditional transition found the booking in a
	// different status than the caller expected.
	ErrStatusChanged = errors.New("booking status changed concurrently")

	ErrDuplicateOrder = errors.New("payment order already attached to a booking")
)
