// Package services defines the business logic for order ingestion and the
// top-orders report. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Ingestion errors. Record-level errors are wrapped as "record N: <err>" where
// N is the zero-based position in the submitted array; match them with errors.Is.
var (
	// ErrEmptyBatch is returned when POST /store receives an empty array.
	ErrEmptyBatch = errors.New("batch is empty")

	// ErrBatchTooLarge is returned when a batch exceeds the configured
	// maximum number of records.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrInvalidRecord is returned when a record is missing a sub-object or
	// a required field (phone, product code).
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidPrice is returned when productPrice is not a non-negative
	// decimal number.
	ErrInvalidPrice = errors.New("productPrice must be a non-negative number")

	// ErrInvalidTimestamp is returned when a createdAt value cannot be parsed.
	ErrInvalidTimestamp = errors.New("createdAt is not a recognizable timestamp")
)

// IsValidation reports whether err was caused by bad client input rather than
// a storage failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidTimestamp)
}
