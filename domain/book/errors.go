package book

import "errors"

var (
	// ErrInvalidOrder rejects a submission before any state is touched.
	// The caller may correct the input and resubmit.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrOrderNotFound signals a cancellation miss. The id may never have
	// existed or may already have been consumed by fills.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvariantViolation is a defect, not a runtime condition. A call
	// that returns it has aborted before applying the offending mutation.
	ErrInvariantViolation = errors.New("book invariant violated")
)
