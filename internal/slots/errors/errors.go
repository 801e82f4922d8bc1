package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	// ErrSlotTaken means the conditional claim matched no free record: the
	// slot is booked or blocked, or a concurrent claim won the insert.
	ErrSlotTaken = errors.New("slot is already booked or blocked")
)
